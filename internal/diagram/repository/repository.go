package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/drawhub/drawhub/backend/go-services/internal/diagram"
)

var (
	ErrNotFound = errors.New("diagram not found")

	// ErrVersionConflict is returned by CompareAndSwap when the expected
	// version no longer matches the stored one. It is a normal outcome of
	// concurrent editing, not a failure: the accompanying diagram is the
	// full current state so the caller can reconcile without another read.
	ErrVersionConflict = errors.New("diagram version conflict")
)

// Repository persists versioned diagrams. CompareAndSwap is the sole
// mutation entry point for payload/version state; implementations must
// guarantee that no two concurrent calls observing the same expected
// version both succeed against the same diagram.
type Repository interface {
	Create(ctx context.Context, d *diagram.Diagram) (string, error)
	Get(ctx context.Context, id string) (*diagram.Diagram, error)
	ListOwnedBy(ctx context.Context, ownerID string) ([]*diagram.Diagram, error)

	// CompareAndSwap atomically applies payload (and optionally a rename)
	// when expectedVersion matches the stored version, advancing the version
	// by exactly 1. Returns the committed state on success, or the current
	// stored state together with ErrVersionConflict on mismatch. The store
	// is untouched on any non-nil error.
	CompareAndSwap(ctx context.Context, id string, expectedVersion int64, payload json.RawMessage, name *string, mutatorID string) (*diagram.Diagram, error)

	Delete(ctx context.Context, id string) error
}
