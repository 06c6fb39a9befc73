package sessions

import (
	"context"
	"testing"
	"time"
)

// fake repo for testing
type fakeRepo struct {
	store map[string]*Session
}

func (f *fakeRepo) Create(ctx context.Context, s *Session) error {
	if f.store == nil {
		f.store = map[string]*Session{}
	}
	f.store[s.RefreshToken] = s
	return nil
}
func (f *fakeRepo) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	s, ok := f.store[refresh]
	if !ok {
		return nil, nil
	}
	return s, nil
}
func (f *fakeRepo) DeleteByRefresh(ctx context.Context, refresh string) error {
	delete(f.store, refresh)
	return nil
}

func TestCreateAndValidateSession(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()
	r, err := svc.CreateSession(ctx, "sub-1", time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if r == "" {
		t.Fatalf("expected refresh token")
	}
	sess, err := svc.ValidateRefresh(ctx, r)
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if sess == nil || sess.Sub != "sub-1" {
		t.Fatalf("unexpected session: %v", sess)
	}
	if err := svc.DeleteRefresh(ctx, r); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	sess2, _ := svc.ValidateRefresh(ctx, r)
	if sess2 != nil {
		t.Fatalf("expected session removed")
	}
}

func TestRotateRefresh(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	r, err := svc.CreateSession(ctx, "sub-2", time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	old, next, err := svc.RotateRefresh(ctx, r, time.Hour)
	if err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if old == nil || old.Sub != "sub-2" {
		t.Fatalf("unexpected rotated session: %v", old)
	}
	if next == "" || next == r {
		t.Fatalf("expected a fresh token, got %q", next)
	}

	// old token no longer valid, new one is
	if s, _ := svc.ValidateRefresh(ctx, r); s != nil {
		t.Fatalf("expected old token invalidated")
	}
	if s, _ := svc.ValidateRefresh(ctx, next); s == nil || s.Sub != "sub-2" {
		t.Fatalf("expected new token valid for same sub, got %v", s)
	}

	// rotating garbage yields nil without error
	old, next, err = svc.RotateRefresh(ctx, "bogus", time.Hour)
	if err != nil || old != nil || next != "" {
		t.Fatalf("expected nil rotation for unknown token: %v %q %v", old, next, err)
	}
}
