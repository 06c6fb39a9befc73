package users

import (
	"context"

	"github.com/drawhub/drawhub/backend/go-services/internal/models"
)

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// UpsertFromClaims creates or updates a user using OIDC claims map
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if sub == "" {
		return nil, nil
	}
	u := &models.User{
		Sub:   sub,
		Email: email,
		Name:  name,
	}
	return s.repo.UpsertBySub(ctx, u)
}

func (s *Service) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	return s.repo.GetBySub(ctx, sub)
}

// Exists reports whether the subject resolves to a known user. The share
// registry uses it to reject grants to identities that were never seen.
func (s *Service) Exists(ctx context.Context, sub string) (bool, error) {
	u, err := s.repo.GetBySub(ctx, sub)
	if err != nil {
		return false, err
	}
	return u != nil, nil
}
