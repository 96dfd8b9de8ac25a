/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/acronis/go-admission/internal/ratesource"
)

// TokenSource is the rate-limiting primitive a RequestLimiter consumes cost
// from: a non-blocking check-and-consume of n tokens from a continuously
// refilling budget. Implementations must be safe for concurrent use; the
// acquire call is the sole synchronization point.
type TokenSource interface {
	// TryAcquire attempts to consume n tokens without blocking and reports
	// whether the acquisition succeeded. A failed acquisition consumes nothing.
	TryAcquire(ctx context.Context, n int) bool
}

// Rate describes the refill frequency of a token budget.
type Rate = ratesource.Rate

// Alg represents a type for specifying rate-limiting algorithm.
type Alg int

// Supported rate-limiting algorithms.
const (
	AlgTokenBucket Alg = iota
	AlgLeakyBucket
	AlgSlidingWindow
)

// NewTokenSource creates an in-process token source with the given algorithm.
// maxBurst matters for the token bucket (bucket capacity, defaults to
// maxRate.Count) and the leaky bucket (GCRA burst) and is ignored by the
// sliding window.
func NewTokenSource(alg Alg, maxRate Rate, maxBurst int) (TokenSource, error) {
	switch alg {
	case AlgTokenBucket:
		return ratesource.NewTokenBucket(maxRate, maxBurst)
	case AlgLeakyBucket:
		return ratesource.NewLeakyBucket(maxRate, maxBurst)
	case AlgSlidingWindow:
		return ratesource.NewSlidingWindow(maxRate)
	default:
		return nil, fmt.Errorf("unknown rate limit alg")
	}
}

// RedisTokenSourceOpts represents options for NewRedisTokenSource.
type RedisTokenSourceOpts struct {
	// MaxBurst is the GCRA burst: maxBurst+1 single tokens may be consumed instantly.
	MaxBurst int

	// FailOpen determines whether an acquisition is admitted when Redis is
	// unavailable. By default such acquisitions are denied.
	FailOpen bool

	// OnError is called with the store error when an acquisition cannot be
	// performed. May be nil.
	OnError func(err error)
}

// NewRedisTokenSource creates a token source whose budget is shared by all
// processes using the same Redis instance and key (GCRA over a Redis store).
func NewRedisTokenSource(client *redis.Client, key string, maxRate Rate, opts RedisTokenSourceOpts) (TokenSource, error) {
	return ratesource.NewRedisLeakyBucket(client, key, maxRate, opts.MaxBurst, ratesource.LeakyBucketOpts{
		FailOpen: opts.FailOpen,
		OnError:  opts.OnError,
	})
}
