package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const fingerprintKeyPrefix = "entitled:fingerprint:accounts:"

// FingerprintIndex tracks which accounts have enrolled from the same device
// fingerprint. The abuse scorer treats a fingerprint shared by several
// accounts as a trial-farming signal.
type FingerprintIndex struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewFingerprintIndex creates an index whose per-fingerprint sets expire
// after ttl of inactivity. Defaults to 90 days, longer than the scorer's
// rolling window so repeat offenders stay visible.
func NewFingerprintIndex(client redis.UniversalClient, ttl time.Duration) *FingerprintIndex {
	if client == nil {
		panic("redisstore: redis client is required")
	}
	if ttl <= 0 {
		ttl = 90 * 24 * time.Hour
	}
	return &FingerprintIndex{client: client, ttl: ttl}
}

// Link records that accountID enrolled from fingerprint and refreshes the
// set's expiry.
func (f *FingerprintIndex) Link(ctx context.Context, fingerprint, accountID string) error {
	if fingerprint == "" || accountID == "" {
		return nil
	}

	key := fingerprintKeyPrefix + fingerprint
	pipe := f.client.TxPipeline()
	pipe.SAdd(ctx, key, accountID)
	pipe.Expire(ctx, key, f.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// AccountCount reports how many distinct accounts share the fingerprint.
func (f *FingerprintIndex) AccountCount(ctx context.Context, fingerprint string) (int, error) {
	if fingerprint == "" {
		return 0, nil
	}

	n, err := f.client.SCard(ctx, fingerprintKeyPrefix+fingerprint).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
