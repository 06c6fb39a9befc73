package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/drawhub/drawhub/backend/go-services/internal/sessions"
)

// ActorKey is the gin context key under which the verified actor identity
// (the token subject) is stored. Everything downstream trusts this value;
// no handler re-verifies credentials.
const ActorKey = "actor"

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// Actor returns the verified actor identity for the request, or "" when the
// request was not authenticated.
func Actor(c *gin.Context) string {
	v, ok := c.Get(ActorKey)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using
// the provided verifier and exposes the claims and the actor subject to
// handlers. Blacklisted tokens are rejected even when they verify.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		// Expect 'Bearer <token>'
		var token string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &token); n != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		if black, err := sessions.IsAccessTokenBlacklisted(c.Request.Context(), token); err == nil && black {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
			return
		}

		idToken, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": err.Error()})
			return
		}

		var claims map[string]interface{}
		if err := idToken.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}

		c.Set("claims", claims)
		c.Set(ActorKey, sub)
		c.Next()
	}
}

// ActorFromHeader trusts the X-Actor header as the identity. Only wired in
// the standalone diagram service for local development and integration
// tests, never in the combined service.
func ActorFromHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		sub := c.GetHeader("X-Actor")
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-Actor header"})
			return
		}
		c.Set(ActorKey, sub)
		c.Next()
	}
}
