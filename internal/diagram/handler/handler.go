package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/drawhub/drawhub/backend/go-services/internal/access"
	"github.com/drawhub/drawhub/backend/go-services/internal/diagram"
	"github.com/drawhub/drawhub/backend/go-services/internal/diagram/repository"
	"github.com/drawhub/drawhub/backend/go-services/internal/diagram/service"
	"github.com/drawhub/drawhub/backend/go-services/internal/locks"
	"github.com/drawhub/drawhub/backend/go-services/internal/share"
	"github.com/gin-gonic/gin"
	"github.com/drawhub/drawhub/backend/go-services/pkg/middleware"
)

func diagramJSON(d *diagram.Diagram) gin.H {
	return gin.H{
		"id":             d.ID,
		"ownerId":        d.OwnerID,
		"name":           d.Name,
		"payload":        d.Payload,
		"version":        d.Version,
		"lastModifiedBy": d.LastModifiedBy,
		"lastModifiedAt": d.LastModifiedAt,
		"createdAt":      d.CreatedAt,
		"shared":         d.Shared,
	}
}

// writeErr maps domain sentinels onto HTTP statuses. 423 signals the save
// lock could not be acquired in time; the client should retry with the
// same expected version.
func writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, share.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, share.ErrUnknownGrantee):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown grantee"})
	case errors.Is(err, access.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, share.ErrAlreadyShared):
		c.JSON(http.StatusConflict, gin.H{"error": "already shared"})
	case errors.Is(err, locks.ErrAcquireTimeout):
		c.JSON(http.StatusLocked, gin.H{"error": "diagram is being saved, retry shortly"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// RegisterDiagramRoutes wires the diagram and share endpoints onto r. The
// caller is responsible for mounting authentication in front; handlers read
// the verified identity via middleware.Actor.
func RegisterDiagramRoutes(r gin.IRouter, svc *service.Service, shares *share.Service) {
	r.POST("/api/diagrams", func(c *gin.Context) {
		var req struct {
			Name    string          `json:"name"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		d, err := svc.Create(c.Request.Context(), middleware.Actor(c), req.Name, req.Payload)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, diagramJSON(d))
	})

	r.GET("/api/diagrams", func(c *gin.Context) {
		list, err := svc.ListOwnedBy(c.Request.Context(), middleware.Actor(c))
		if err != nil {
			writeErr(c, err)
			return
		}
		out := make([]gin.H, 0, len(list))
		for _, d := range list {
			out = append(out, diagramJSON(d))
		}
		c.JSON(http.StatusOK, out)
	})

	r.GET("/api/diagrams/shared", func(c *gin.Context) {
		list, err := shares.ListSharedWith(c.Request.Context(), middleware.Actor(c))
		if err != nil {
			writeErr(c, err)
			return
		}
		out := make([]gin.H, 0, len(list))
		for _, sd := range list {
			h := diagramJSON(sd.Diagram)
			h["level"] = sd.Level
			out = append(out, h)
		}
		c.JSON(http.StatusOK, out)
	})

	r.GET("/api/diagrams/:id", func(c *gin.Context) {
		d, err := svc.Get(c.Request.Context(), c.Param("id"), middleware.Actor(c))
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, diagramJSON(d))
	})

	r.GET("/api/diagrams/:id/version", func(c *gin.Context) {
		info, err := svc.PeekVersion(c.Request.Context(), c.Param("id"), middleware.Actor(c))
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"version":        info.Version,
			"lastModifiedBy": info.LastModifiedBy,
			"lastModifiedAt": info.LastModifiedAt,
		})
	})

	r.PUT("/api/diagrams/:id", func(c *gin.Context) {
		var req struct {
			ExpectedVersion *int64          `json:"expectedVersion"`
			Payload         json.RawMessage `json:"payload"`
			Name            *string         `json:"name,omitempty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.ExpectedVersion == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expectedVersion is required"})
			return
		}
		res, err := svc.Mutate(c.Request.Context(), c.Param("id"), middleware.Actor(c), *req.ExpectedVersion, req.Payload, req.Name)
		if err != nil {
			writeErr(c, err)
			return
		}
		if !res.Committed {
			c.JSON(http.StatusConflict, gin.H{
				"error":    "version conflict",
				"conflict": diagramJSON(res.Current),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"committed": true, "version": res.Version})
	})

	r.DELETE("/api/diagrams/:id", func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id"), middleware.Actor(c)); err != nil {
			writeErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	r.POST("/api/diagrams/:id/shares", func(c *gin.Context) {
		var req struct {
			GranteeID string             `json:"granteeId"`
			Level     diagram.Permission `json:"level"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.GranteeID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "granteeId is required"})
			return
		}
		if req.Level == diagram.PermissionNone {
			c.JSON(http.StatusBadRequest, gin.H{"error": "level is required"})
			return
		}
		if err := shares.Grant(c.Request.Context(), c.Param("id"), middleware.Actor(c), req.GranteeID, req.Level); err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"diagramId": c.Param("id"), "granteeId": req.GranteeID, "level": req.Level})
	})

	r.GET("/api/diagrams/:id/shares", func(c *gin.Context) {
		entries, err := shares.ListFor(c.Request.Context(), c.Param("id"), middleware.Actor(c))
		if err != nil {
			writeErr(c, err)
			return
		}
		out := make([]gin.H, 0, len(entries))
		for _, e := range entries {
			out = append(out, gin.H{
				"granteeId": e.GranteeID,
				"grantorId": e.GrantorID,
				"level":     e.Level,
				"createdAt": e.CreatedAt,
				"updatedAt": e.UpdatedAt,
			})
		}
		c.JSON(http.StatusOK, out)
	})

	r.PUT("/api/diagrams/:id/shares/:granteeId", func(c *gin.Context) {
		var req struct {
			Level diagram.Permission `json:"level"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Level == diagram.PermissionNone {
			c.JSON(http.StatusBadRequest, gin.H{"error": "level is required"})
			return
		}
		if err := shares.UpdateLevel(c.Request.Context(), c.Param("id"), middleware.Actor(c), c.Param("granteeId"), req.Level); err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"diagramId": c.Param("id"), "granteeId": c.Param("granteeId"), "level": req.Level})
	})

	r.DELETE("/api/diagrams/:id/shares/:granteeId", func(c *gin.Context) {
		if err := shares.Revoke(c.Request.Context(), c.Param("id"), middleware.Actor(c), c.Param("granteeId")); err != nil {
			writeErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
