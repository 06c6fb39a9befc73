package users

import (
	"context"
	"sync"
	"time"

	"github.com/drawhub/drawhub/backend/go-services/internal/models"
)

// MemoryUserRepository keeps users in a map, for tests and Mongo-less runs.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	bySub map[string]*models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{bySub: make(map[string]*models.User)}
}

func (r *MemoryUserRepository) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.bySub[u.Sub]; ok {
		existing.Email = u.Email
		existing.Name = u.Name
		existing.UpdatedAt = now
		cp := *existing
		return &cp, nil
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.ID == "" {
		u.ID = "usr_" + u.Sub
	}
	cp := *u
	r.bySub[u.Sub] = &cp
	ret := cp
	return &ret, nil
}

func (r *MemoryUserRepository) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.bySub[sub]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}
