// Package locks provides the exclusive per-diagram lock held across a save
// attempt's compare-and-apply window. The lock is always scoped to a single
// diagram id: saves on different diagrams never contend and no lock ever
// spans more than one diagram.
package locks

import (
	"context"
	"errors"
)

// ErrAcquireTimeout means another save on the same diagram held the lock for
// the whole acquire window. Deliberately distinct from a version conflict:
// the caller should retry shortly with the same expected version rather than
// reconcile.
var ErrAcquireTimeout = errors.New("diagram lock acquire timeout")

// Locker acquires an exclusive lease on one diagram id. The returned release
// function must be called exactly once, and only by the acquirer.
type Locker interface {
	Acquire(ctx context.Context, id string) (release func(), err error)
}
