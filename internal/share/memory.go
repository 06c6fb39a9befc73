package share

import (
	"context"
	"sync"
	"time"

	"github.com/drawhub/drawhub/backend/go-services/internal/diagram"
)

// MemoryRepository is the in-memory share store used in tests and in the
// Mongo-less service mode. Keyed by diagram id, then grantee id.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]map[string]*Entry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]map[string]*Entry)}
}

func copyEntry(e *Entry) *Entry {
	cp := *e
	return &cp
}

func (r *MemoryRepository) Create(ctx context.Context, e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byGrantee, ok := r.store[e.DiagramID]
	if !ok {
		byGrantee = make(map[string]*Entry)
		r.store[e.DiagramID] = byGrantee
	}
	if _, exists := byGrantee[e.GranteeID]; exists {
		return ErrAlreadyShared
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	byGrantee[e.GranteeID] = copyEntry(e)
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, diagramID, granteeID string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.store[diagramID][granteeID]; ok {
		return copyEntry(e), nil
	}
	return nil, nil
}

func (r *MemoryRepository) UpdateLevel(ctx context.Context, diagramID, granteeID string, level diagram.Permission, grantorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.store[diagramID][granteeID]
	if !ok {
		return ErrNotFound
	}
	e.Level = level
	e.GrantorID = grantorID
	e.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, diagramID, granteeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byGrantee, ok := r.store[diagramID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := byGrantee[granteeID]; !ok {
		return ErrNotFound
	}
	delete(byGrantee, granteeID)
	if len(byGrantee) == 0 {
		delete(r.store, diagramID)
	}
	return nil
}

func (r *MemoryRepository) ListByDiagram(ctx context.Context, diagramID string) ([]*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Entry{}
	for _, e := range r.store[diagramID] {
		out = append(out, copyEntry(e))
	}
	return out, nil
}

func (r *MemoryRepository) ListByGrantee(ctx context.Context, granteeID string) ([]*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Entry{}
	for _, byGrantee := range r.store {
		if e, ok := byGrantee[granteeID]; ok {
			out = append(out, copyEntry(e))
		}
	}
	return out, nil
}

func (r *MemoryRepository) CountByDiagram(ctx context.Context, diagramID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.store[diagramID])), nil
}

func (r *MemoryRepository) DeleteByDiagram(ctx context.Context, diagramID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.store, diagramID)
	return nil
}

// LevelFor satisfies the access-evaluator lookup.
func (r *MemoryRepository) LevelFor(ctx context.Context, diagramID, actorID string) (diagram.Permission, bool, error) {
	e, err := r.Get(ctx, diagramID, actorID)
	if err != nil || e == nil {
		return diagram.PermissionNone, false, err
	}
	return e.Level, true, nil
}
