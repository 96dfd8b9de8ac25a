/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratesource

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket is a classic token bucket built on golang.org/x/time/rate.
// The bucket starts full, so up to burst tokens are available instantly.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket creates a new token bucket refilled at maxRate.
// If maxBurst is not positive, the bucket capacity defaults to maxRate.Count,
// i.e. the whole per-interval budget is available instantly.
func NewTokenBucket(maxRate Rate, maxBurst int) (*TokenBucket, error) {
	if err := maxRate.validate(); err != nil {
		return nil, err
	}
	if maxBurst <= 0 {
		maxBurst = maxRate.Count
	}
	limit := rate.Limit(float64(maxRate.Count) / maxRate.Duration.Seconds())
	return &TokenBucket{limiter: rate.NewLimiter(limit, maxBurst)}, nil
}

// TryAcquire attempts to consume n tokens without blocking.
// An acquisition of more tokens than the bucket capacity always fails.
func (b *TokenBucket) TryAcquire(_ context.Context, n int) bool {
	return b.limiter.AllowN(time.Now(), n)
}
