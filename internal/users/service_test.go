package users

import (
	"context"
	"testing"
)

func TestUpsertFromClaims(t *testing.T) {
	repo := NewMemoryUserRepository()
	svc := NewService(repo)
	ctx := context.Background()

	claims := map[string]interface{}{
		"sub":   "sub-123",
		"email": "x@example.com",
		"name":  "X User",
	}
	u, err := svc.UpsertFromClaims(ctx, claims)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u == nil {
		t.Fatal("expected user, got nil")
	}
	if u.Sub != "sub-123" || u.Email != "x@example.com" || u.Name != "X User" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.CreatedAt.IsZero() || u.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set: %+v", u)
	}

	// upsert again with changed name keeps identity, bumps UpdatedAt
	claims["name"] = "Renamed"
	u2, err := svc.UpsertFromClaims(ctx, claims)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u2.Name != "Renamed" {
		t.Fatalf("expected updated name, got %s", u2.Name)
	}
	if u2.CreatedAt.After(u2.UpdatedAt) {
		t.Fatalf("createdAt after updatedAt: %v > %v", u2.CreatedAt, u2.UpdatedAt)
	}

	// missing sub => nil, no error
	u3, err := svc.UpsertFromClaims(ctx, map[string]interface{}{"email": "y@e.com"})
	if err != nil {
		t.Fatalf("unexpected error on missing sub: %v", err)
	}
	if u3 != nil {
		t.Fatalf("expected nil when sub missing, got: %v", u3)
	}
}

func TestExists(t *testing.T) {
	repo := NewMemoryUserRepository()
	svc := NewService(repo)
	ctx := context.Background()

	ok, err := svc.Exists(ctx, "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected unknown sub to not exist")
	}

	if _, err := svc.UpsertFromClaims(ctx, map[string]interface{}{"sub": "known"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	ok, err = svc.Exists(ctx, "known")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected known sub to exist")
	}
}
