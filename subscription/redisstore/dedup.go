package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/entitledhq/entitled/subscription"
)

const dedupKeyPrefix = "entitled:webhook:seen:"

// DedupCache is a Redis-backed fast path in front of the event ledger,
// shared by every processing worker. Entries expire on their own; the
// Postgres ledger stays the durable source of truth.
type DedupCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewDedupCache creates a dedup cache with the given entry TTL.
// Billing providers retry for roughly 72 hours, so the TTL should cover at
// least that window to be useful.
func NewDedupCache(client redis.UniversalClient, ttl time.Duration) *DedupCache {
	if client == nil {
		panic("redisstore: redis client is required")
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &DedupCache{client: client, ttl: ttl}
}

// Seen implements subscription.DedupFilter.
func (d *DedupCache) Seen(ctx context.Context, eventID string) (bool, error) {
	err := d.client.Get(ctx, dedupKeyPrefix+eventID).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return false, err
}

// MarkSeen implements subscription.DedupFilter.
func (d *DedupCache) MarkSeen(ctx context.Context, eventID string) error {
	return d.client.Set(ctx, dedupKeyPrefix+eventID, "1", d.ttl).Err()
}

var _ subscription.DedupFilter = (*DedupCache)(nil)
