/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratesource

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/throttled/throttled/v2"
	goredisstore "github.com/throttled/throttled/v2/store/goredisstore.v8"
	"github.com/throttled/throttled/v2/store/memstore"
)

// LeakyBucket implements GCRA (Generic Cell Rate Algorithm). It's a leaky bucket variant algorithm.
// More details and good explanation of this alg is provided here: https://brandur.org/rate-limiting#gcra.
type LeakyBucket struct {
	limiter *throttled.GCRARateLimiterCtx
	key     string

	failOpen bool
	onError  func(err error)
}

// LeakyBucketOpts represents options for the GCRA-based sources.
type LeakyBucketOpts struct {
	// FailOpen determines whether an acquisition is admitted when the
	// underlying store fails. Matters only for remote stores.
	FailOpen bool

	// OnError is called with the store error when the acquisition
	// cannot be performed. May be nil.
	OnError func(err error)
}

// NewLeakyBucket creates a new GCRA rate source with an in-memory store.
// GCRA admits maxBurst+1 instant acquisitions of a single token.
func NewLeakyBucket(maxRate Rate, maxBurst int) (*LeakyBucket, error) {
	store, err := memstore.NewCtx(0)
	if err != nil {
		return nil, fmt.Errorf("new in-memory store: %w", err)
	}
	return newGCRABucket(store, "", maxRate, maxBurst, LeakyBucketOpts{})
}

// NewRedisLeakyBucket creates a new GCRA rate source with a Redis-backed store,
// so the budget is shared by all processes using the same key.
func NewRedisLeakyBucket(
	client *redis.Client, key string, maxRate Rate, maxBurst int, opts LeakyBucketOpts,
) (*LeakyBucket, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if key == "" {
		return nil, fmt.Errorf("key is required")
	}
	store, err := goredisstore.NewCtx(client, "ratesource:")
	if err != nil {
		return nil, fmt.Errorf("new redis store: %w", err)
	}
	return newGCRABucket(store, key, maxRate, maxBurst, opts)
}

func newGCRABucket(
	store throttled.GCRAStoreCtx, key string, maxRate Rate, maxBurst int, opts LeakyBucketOpts,
) (*LeakyBucket, error) {
	if err := maxRate.validate(); err != nil {
		return nil, err
	}
	if maxBurst < 0 {
		return nil, fmt.Errorf("max burst should be >= 0, got %d", maxBurst)
	}
	quota := throttled.RateQuota{
		MaxRate:  throttled.PerDuration(maxRate.Count, maxRate.Duration),
		MaxBurst: maxBurst,
	}
	gcraLimiter, err := throttled.NewGCRARateLimiterCtx(store, quota)
	if err != nil {
		return nil, fmt.Errorf("new GCRA rate limiter: %w", err)
	}
	return &LeakyBucket{limiter: gcraLimiter, key: key, failOpen: opts.FailOpen, onError: opts.OnError}, nil
}

// TryAcquire attempts to consume n tokens without blocking.
func (b *LeakyBucket) TryAcquire(ctx context.Context, n int) bool {
	limited, _, err := b.limiter.RateLimitCtx(ctx, b.key, n)
	if err != nil {
		if b.onError != nil {
			b.onError(err)
		}
		return b.failOpen
	}
	return !limited
}
