package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>drawhub — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document covering the auth and diagram endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "drawhub", "version": "v0.1.0" },
  "paths": {
    "/auth/login": {
      "post": {
        "summary": "Exchange authorization code / login",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"mode":{"type":"string"},"username":{"type":"string"},"password":{"type":"string"},"code":{"type":"string"},"redirect_uri":{"type":"string"}}}}}},
        "responses": { "200": { "description": "tokens returned" } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Rotate refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new token pair" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Logout and invalidate refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/api/diagrams": {
      "get": { "summary": "List diagrams the caller created", "responses": { "200": { "description": "diagram list" } } },
      "post": { "summary": "Create a diagram", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"name":{"type":"string"},"payload":{"type":"object"}}}}}}, "responses": { "201": { "description": "created at version 1" } } }
    },
    "/api/diagrams/shared": {
      "get": { "summary": "List diagrams shared with the caller", "responses": { "200": { "description": "diagram list with granted level" } } }
    },
    "/api/diagrams/{id}": {
      "get": { "summary": "Fetch a diagram", "responses": { "200": { "description": "diagram" }, "403": { "description": "no access" }, "404": { "description": "missing" } } },
      "put": { "summary": "Save against an expected version", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"expectedVersion":{"type":"integer"},"payload":{"type":"object"},"name":{"type":"string"}}}}}}, "responses": { "200": { "description": "committed" }, "409": { "description": "version conflict; current state inline" }, "423": { "description": "save lock busy, retry" } } },
      "delete": { "summary": "Delete (creator only)", "responses": { "204": { "description": "deleted" }, "403": { "description": "not the creator" } } }
    },
    "/api/diagrams/{id}/version": {
      "get": { "summary": "Lock-free version probe", "responses": { "200": { "description": "version metadata without payload" } } }
    },
    "/api/diagrams/{id}/shares": {
      "get": { "summary": "List share entries (manage-shares only)", "responses": { "200": { "description": "entries" } } },
      "post": { "summary": "Grant access", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"granteeId":{"type":"string"},"level":{"type":"string","enum":["viewer","editor","owner"]}}}}}}, "responses": { "201": { "description": "granted" }, "409": { "description": "already shared" } } }
    },
    "/api/diagrams/{id}/shares/{granteeId}": {
      "put": { "summary": "Change a granted level", "responses": { "200": { "description": "updated" } } },
      "delete": { "summary": "Revoke access", "responses": { "204": { "description": "revoked" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
