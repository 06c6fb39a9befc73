package locks

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// release only when the key still holds our token, so an expired lease
// re-acquired by someone else is never deleted from under them
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

const acquireRetryInterval = 25 * time.Millisecond

// RedisLease implements Locker as a SET NX PX lease in Redis, usable across
// service instances. The lease TTL bounds how long a crashed holder can
// block a diagram.
type RedisLease struct {
	client         *redis.Client
	prefix         string
	acquireTimeout time.Duration
	lease          time.Duration
}

// NewRedisLease creates a Redis-backed locker. Prefix may be empty.
func NewRedisLease(client *redis.Client, prefix string, acquireTimeout, lease time.Duration) *RedisLease {
	if prefix == "" {
		prefix = "lock:diagram:"
	}
	if acquireTimeout <= 0 {
		acquireTimeout = 3 * time.Second
	}
	if lease < acquireTimeout {
		lease = 2 * acquireTimeout
	}
	return &RedisLease{client: client, prefix: prefix, acquireTimeout: acquireTimeout, lease: lease}
}

func newToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (l *RedisLease) Acquire(ctx context.Context, id string) (func(), error) {
	key := l.prefix + id
	token := newToken()
	deadline := time.Now().Add(l.acquireTimeout)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				rctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_, _ = releaseScript.Run(rctx, l.client, []string{key}, token).Result()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrAcquireTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(acquireRetryInterval):
		}
	}
}
