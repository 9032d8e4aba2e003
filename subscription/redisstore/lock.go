package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/entitledhq/entitled/pkg/keylock"
)

const lockKeyPrefix = "entitled:lock:"

// releaseScript deletes the lock only if the caller still owns it, so a
// worker whose lease expired cannot release a lock another worker now holds.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

var ErrLockLost = errors.New("redis lock lease expired before release")

// Locker is a Redis-backed keylock.Locker for multi-worker deployments,
// where webhook deliveries for one customer can land on different nodes.
// Locks carry a lease TTL as crash protection; the critical section must
// finish well within it.
type Locker struct {
	client     redis.UniversalClient
	lease      time.Duration
	retryDelay time.Duration
}

// NewLocker creates a distributed locker. lease bounds how long a crashed
// holder can block a key.
func NewLocker(client redis.UniversalClient, lease time.Duration) *Locker {
	if client == nil {
		panic("redisstore: redis client is required")
	}
	if lease <= 0 {
		lease = 30 * time.Second
	}
	return &Locker{
		client:     client,
		lease:      lease,
		retryDelay: 50 * time.Millisecond,
	}
}

// WithLock implements keylock.Locker. Acquisition polls with a short delay
// until the context is done.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	redisKey := lockKeyPrefix + key
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.lease).Result()
		if err != nil {
			return err
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}

	fnErr := fn(ctx)

	// Release on a fresh context so a canceled caller still unlocks.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	released, err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Int()
	if err != nil {
		return errors.Join(fnErr, err)
	}
	if released == 0 && fnErr == nil {
		// The lease expired mid-section; mutual exclusion may have been
		// violated and the caller must treat the work as suspect.
		return ErrLockLost
	}

	return fnErr
}

var _ keylock.Locker = (*Locker)(nil)
