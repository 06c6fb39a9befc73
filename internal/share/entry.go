package share

import (
	"time"

	"github.com/drawhub/drawhub/backend/go-services/internal/diagram"
)

// Entry is a durable grant of a permission level on a single diagram.
// (DiagramID, GranteeID) is unique: a grantee holds at most one level per
// diagram, and changing it goes through UpdateLevel, never a second grant.
type Entry struct {
	DiagramID string             `json:"diagramId"`
	GranteeID string             `json:"granteeId"`
	GrantorID string             `json:"grantorId"` // actor who created or last changed the grant
	Level     diagram.Permission `json:"level"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
