package share

import (
	"context"
	"errors"

	"github.com/drawhub/drawhub/backend/go-services/internal/access"
	"github.com/drawhub/drawhub/backend/go-services/internal/diagram"
	"github.com/drawhub/drawhub/backend/go-services/internal/diagram/repository"
)

// ErrUnknownGrantee is returned when the grantee identity does not resolve
// to a known user.
var ErrUnknownGrantee = errors.New("unknown grantee")

// GranteeDirectory resolves grantee identities. Satisfied by the users
// service.
type GranteeDirectory interface {
	Exists(ctx context.Context, sub string) (bool, error)
}

// SharedDiagram pairs a diagram with the level granted to the listing actor.
type SharedDiagram struct {
	Diagram *diagram.Diagram   `json:"diagram"`
	Level   diagram.Permission `json:"level"`
}

// Service is the share registry: grants, level changes, revocations and the
// two listings. Every management operation re-checks the requester's
// manage-shares right against current state before touching an entry.
type Service struct {
	diagrams  repository.Repository
	shares    Repository
	eval      *access.Evaluator
	directory GranteeDirectory
}

func NewService(diagrams repository.Repository, shares Repository, eval *access.Evaluator, directory GranteeDirectory) *Service {
	return &Service{diagrams: diagrams, shares: shares, eval: eval, directory: directory}
}

func (s *Service) requireManage(ctx context.Context, diagramID, requesterID string) (*diagram.Diagram, error) {
	d, err := s.diagrams.Get(ctx, diagramID)
	if err != nil {
		return nil, err
	}
	ok, err := s.eval.CanManageShares(ctx, requesterID, d)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, access.ErrForbidden
	}
	return d, nil
}

// Grant creates a new share entry. It is not idempotent: a second grant for
// the same grantee fails with ErrAlreadyShared and the caller must use
// UpdateLevel instead.
func (s *Service) Grant(ctx context.Context, diagramID, grantorID, granteeID string, level diagram.Permission) error {
	d, err := s.requireManage(ctx, diagramID, grantorID)
	if err != nil {
		return err
	}
	if granteeID == d.OwnerID {
		// the creator already holds owner; an entry would only shadow it
		return ErrAlreadyShared
	}
	ok, err := s.directory.Exists(ctx, granteeID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownGrantee
	}
	return s.shares.Create(ctx, &Entry{
		DiagramID: diagramID,
		GranteeID: granteeID,
		GrantorID: grantorID,
		Level:     level,
	})
}

func (s *Service) UpdateLevel(ctx context.Context, diagramID, requesterID, granteeID string, level diagram.Permission) error {
	if _, err := s.requireManage(ctx, diagramID, requesterID); err != nil {
		return err
	}
	return s.shares.UpdateLevel(ctx, diagramID, granteeID, level, requesterID)
}

func (s *Service) Revoke(ctx context.Context, diagramID, requesterID, granteeID string) error {
	if _, err := s.requireManage(ctx, diagramID, requesterID); err != nil {
		return err
	}
	return s.shares.Delete(ctx, diagramID, granteeID)
}

// ListFor returns every entry on a diagram. Share lists are visible to
// manage-shares holders only, not to viewers or editors.
func (s *Service) ListFor(ctx context.Context, diagramID, requesterID string) ([]*Entry, error) {
	if _, err := s.requireManage(ctx, diagramID, requesterID); err != nil {
		return nil, err
	}
	return s.shares.ListByDiagram(ctx, diagramID)
}

// ListSharedWith returns every diagram shared to the actor with the granted
// level. No check beyond the actor's own identity: anyone may enumerate what
// has been shared to them.
func (s *Service) ListSharedWith(ctx context.Context, actorID string) ([]SharedDiagram, error) {
	entries, err := s.shares.ListByGrantee(ctx, actorID)
	if err != nil {
		return nil, err
	}
	out := []SharedDiagram{}
	for _, e := range entries {
		d, err := s.diagrams.Get(ctx, e.DiagramID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// entry outlived its diagram; cascade already queued it for removal
				continue
			}
			return nil, err
		}
		d.Shared = true
		out = append(out, SharedDiagram{Diagram: d, Level: e.Level})
	}
	return out, nil
}
