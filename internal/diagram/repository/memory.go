package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/drawhub/drawhub/backend/go-services/internal/diagram"
)

// MemoryRepo is an in-memory diagram store used for unit tests and for
// running the diagram service without MongoDB. The map mutex is held across
// the compare and the write in CompareAndSwap, which is what makes the
// version check atomic here.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*diagram.Diagram
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*diagram.Diagram)}
}

func newDiagramID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "dgm_" + time.Now().Format("20060102T150405.000000000")
	}
	return "dgm_" + hex.EncodeToString(b)
}

func (m *MemoryRepo) Create(ctx context.Context, d *diagram.Diagram) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = newDiagramID()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.Version = 1
	d.LastModifiedBy = d.OwnerID
	d.LastModifiedAt = now
	m.store[d.ID] = d.Clone()
	return d.ID, nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*diagram.Diagram, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.store[id]; ok {
		return d.Clone(), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) ListOwnedBy(ctx context.Context, ownerID string) ([]*diagram.Diagram, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*diagram.Diagram, 0)
	for _, d := range m.store {
		if d.OwnerID == ownerID {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

func (m *MemoryRepo) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, payload json.RawMessage, name *string, mutatorID string) (*diagram.Diagram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	if d.Version != expectedVersion {
		return d.Clone(), ErrVersionConflict
	}
	d.Payload = append(json.RawMessage(nil), payload...)
	if name != nil {
		d.Name = *name
	}
	d.Version++
	d.LastModifiedBy = mutatorID
	d.LastModifiedAt = time.Now().UTC()
	return d.Clone(), nil
}

func (m *MemoryRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}
