package diagram

import (
	"encoding/json"
	"time"
)

// Diagram is the versioned shared entity. Payload is opaque to the backend:
// the editor owns its shape, the server only stores and versions it.
// Version starts at 1 and advances by exactly 1 per committed save; it only
// ever changes together with Payload, LastModifiedBy and LastModifiedAt.
type Diagram struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"ownerId"`
	Name           string          `json:"name"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Version        int64           `json:"version"`
	LastModifiedBy string          `json:"lastModifiedBy"`
	LastModifiedAt time.Time       `json:"lastModifiedAt"`
	CreatedAt      time.Time       `json:"createdAt"`

	// Shared is derived at read time: true iff at least one share entry
	// references this diagram. Never persisted.
	Shared bool `json:"shared"`
}

// Clone returns a deep copy so callers can never alias store-internal state.
func (d *Diagram) Clone() *Diagram {
	cp := *d
	if d.Payload != nil {
		cp.Payload = make(json.RawMessage, len(d.Payload))
		copy(cp.Payload, d.Payload)
	}
	return &cp
}

// VersionInfo is the lock-free staleness probe result: enough for a client
// to tell whether its last synchronized version is behind, without pulling
// the payload or contending with an in-flight save.
type VersionInfo struct {
	Version        int64     `json:"version"`
	LastModifiedBy string    `json:"lastModifiedBy"`
	LastModifiedAt time.Time `json:"lastModifiedAt"`
}
