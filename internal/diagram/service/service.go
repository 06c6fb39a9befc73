package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/drawhub/drawhub/backend/go-services/internal/access"
	"github.com/drawhub/drawhub/backend/go-services/internal/archive"
	"github.com/drawhub/drawhub/backend/go-services/internal/diagram"
	"github.com/drawhub/drawhub/backend/go-services/internal/diagram/repository"
	"github.com/drawhub/drawhub/backend/go-services/internal/locks"
	"github.com/drawhub/drawhub/backend/go-services/internal/share"
	"github.com/drawhub/drawhub/backend/go-services/pkg/logger"
	"github.com/drawhub/drawhub/backend/go-services/pkg/metrics"
)

// Result is the outcome of a save attempt. A conflict is a normal outcome,
// not an error: Current then carries the full stored diagram so the client
// can offer keep-remote / keep-local / defer without a second round-trip.
type Result struct {
	Committed bool
	Version   int64            // new version when committed
	Current   *diagram.Diagram // stored state when conflicted
}

// Service runs the optimistic save protocol over the diagram store:
// authorize, lock the single target diagram, compare the expected version,
// then apply or report the conflict. Every failure path leaves the store
// exactly as it was.
type Service struct {
	repo      repository.Repository
	shares    share.Repository
	eval      *access.Evaluator
	locker    locks.Locker
	snapshots *archive.Store // nil disables archiving
}

func New(repo repository.Repository, shares share.Repository, eval *access.Evaluator, locker locks.Locker, snapshots *archive.Store) *Service {
	return &Service{repo: repo, shares: shares, eval: eval, locker: locker, snapshots: snapshots}
}

// Create allocates a diagram owned by actorID at version 1.
func (s *Service) Create(ctx context.Context, ownerID, name string, payload json.RawMessage) (*diagram.Diagram, error) {
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	d := &diagram.Diagram{OwnerID: ownerID, Name: name, Payload: payload}
	if _, err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Get returns the diagram with its derived shared flag. Requires any level.
func (s *Service) Get(ctx context.Context, id, actorID string) (*diagram.Diagram, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.eval.CanRead(ctx, actorID, d)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, access.ErrForbidden
	}
	n, err := s.shares.CountByDiagram(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Shared = n > 0
	return d, nil
}

// ListOwnedBy returns every diagram the actor created. Ordering is left to
// the caller.
func (s *Service) ListOwnedBy(ctx context.Context, actorID string) ([]*diagram.Diagram, error) {
	list, err := s.repo.ListOwnedBy(ctx, actorID)
	if err != nil {
		return nil, err
	}
	for _, d := range list {
		n, err := s.shares.CountByDiagram(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		d.Shared = n > 0
	}
	return list, nil
}

// PeekVersion is the lock-free staleness probe: version and last-modified
// metadata without the payload and without contending with in-flight saves.
func (s *Service) PeekVersion(ctx context.Context, id, actorID string) (*diagram.VersionInfo, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.eval.CanRead(ctx, actorID, d)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, access.ErrForbidden
	}
	return &diagram.VersionInfo{
		Version:        d.Version,
		LastModifiedBy: d.LastModifiedBy,
		LastModifiedAt: d.LastModifiedAt,
	}, nil
}

// Mutate is the save protocol. Error cases: repository.ErrNotFound,
// access.ErrForbidden, locks.ErrAcquireTimeout (retry shortly, same
// expected version). A version mismatch is reported via the Result, not as
// an error.
func (s *Service) Mutate(ctx context.Context, id, actorID string, expectedVersion int64, payload json.RawMessage, name *string) (*Result, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.eval.CanMutatePayload(ctx, actorID, d)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, access.ErrForbidden
	}

	release, err := s.locker.Acquire(ctx, id)
	if err != nil {
		if errors.Is(err, locks.ErrAcquireTimeout) {
			metrics.MutationLockTimeouts.Inc()
		}
		return nil, err
	}
	defer release()

	// re-read under the lock; the diagram may have moved or vanished while
	// we waited
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Version != expectedVersion {
		metrics.MutationConflicts.Inc()
		return &Result{Committed: false, Current: cur}, nil
	}

	committed, err := s.repo.CompareAndSwap(ctx, id, expectedVersion, payload, name, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			// a writer bypassed the locker; the store-level check still held
			metrics.MutationConflicts.Inc()
			return &Result{Committed: false, Current: committed}, nil
		}
		return nil, err
	}

	if s.snapshots != nil {
		// best effort: losing a snapshot never fails the save
		if err := s.snapshots.PutSnapshot(ctx, id, cur.Version, cur.Payload); err != nil {
			logger.Warnf("snapshot archive failed for %s v%d: %v", id, cur.Version, err)
		}
	}

	metrics.MutationsCommitted.Inc()
	return &Result{Committed: true, Version: committed.Version}, nil
}

// Delete destroys a diagram and cascades its share entries. Only the
// literal creator may delete; owner-level grantees may not.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !access.CanDelete(actorID, d) {
		return access.ErrForbidden
	}
	if s.snapshots != nil {
		if err := s.snapshots.PutSnapshot(ctx, id, d.Version, d.Payload); err != nil {
			logger.Warnf("final snapshot failed for %s v%d: %v", id, d.Version, err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.shares.DeleteByDiagram(ctx, id); err != nil {
		// the diagram is gone; orphaned entries are invisible to permission
		// checks but report the cleanup failure
		logger.Errorf("share cascade failed for %s: %v", id, err)
		return err
	}
	return nil
}
