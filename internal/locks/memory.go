package locks

import (
	"context"
	"sync"
	"time"
)

// Keyed is the in-process locker: one slot channel per diagram id. Suitable
// for single-instance deployments and tests; multi-instance runs use the
// Redis lease instead.
type Keyed struct {
	timeout time.Duration
	mu      sync.Mutex
	slots   map[string]chan struct{}
}

func NewKeyed(acquireTimeout time.Duration) *Keyed {
	if acquireTimeout <= 0 {
		acquireTimeout = 3 * time.Second
	}
	return &Keyed{timeout: acquireTimeout, slots: make(map[string]chan struct{})}
}

func (k *Keyed) slot(id string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	ch, ok := k.slots[id]
	if !ok {
		ch = make(chan struct{}, 1)
		k.slots[id] = ch
	}
	return ch
}

func (k *Keyed) Acquire(ctx context.Context, id string) (func(), error) {
	ch := k.slot(id)
	timer := time.NewTimer(k.timeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-timer.C:
		return nil, ErrAcquireTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
