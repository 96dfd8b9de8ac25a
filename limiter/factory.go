/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import "fmt"

// RateLimiterOpts represents options for the budget-dimension presets.
type RateLimiterOpts struct {
	// Alg selects the rate-limiting algorithm. AlgTokenBucket is the default.
	Alg Alg

	// MaxBurst is passed to the token source, see NewTokenSource.
	MaxBurst int

	// Metrics is a collector of overlimit events.
	// If nil, DisabledMetrics is used.
	Metrics MetricsCollector
}

// NewRequestRateLimiter creates a limiter for a request-count budget
// dimension: every payload-bearing operation costs 1, all others are free.
func NewRequestRateLimiter[O any](name string, maxRate Rate, overlimit OverlimitFunc[O]) (*RequestLimiter[O], error) {
	return NewRequestRateLimiterWithOpts(name, maxRate, overlimit, RateLimiterOpts{})
}

// NewRequestRateLimiterWithOpts is a more configurable version of NewRequestRateLimiter.
func NewRequestRateLimiterWithOpts[O any](
	name string, maxRate Rate, overlimit OverlimitFunc[O], opts RateLimiterOpts,
) (*RequestLimiter[O], error) {
	source, err := NewTokenSource(opts.Alg, maxRate, opts.MaxBurst)
	if err != nil {
		return nil, fmt.Errorf("new token source for %q: %w", name, err)
	}
	return NewWithOpts(name, source, RequestCost[O](), overlimit, Opts{Metrics: opts.Metrics})
}

// MustNewRequestRateLimiter is a version of NewRequestRateLimiter that panics if an error occurs.
func MustNewRequestRateLimiter[O any](name string, maxRate Rate, overlimit OverlimitFunc[O]) *RequestLimiter[O] {
	l, err := NewRequestRateLimiter(name, maxRate, overlimit)
	if err != nil {
		panic(err)
	}
	return l
}

// NewByteRateLimiter creates a limiter for a byte-volume budget dimension:
// every payload-bearing operation costs its payload size in bytes (saturating
// at MaxCost), all others are free.
func NewByteRateLimiter[O any](name string, maxRate Rate, overlimit OverlimitFunc[O]) (*RequestLimiter[O], error) {
	return NewByteRateLimiterWithOpts(name, maxRate, overlimit, RateLimiterOpts{})
}

// NewByteRateLimiterWithOpts is a more configurable version of NewByteRateLimiter.
func NewByteRateLimiterWithOpts[O any](
	name string, maxRate Rate, overlimit OverlimitFunc[O], opts RateLimiterOpts,
) (*RequestLimiter[O], error) {
	source, err := NewTokenSource(opts.Alg, maxRate, opts.MaxBurst)
	if err != nil {
		return nil, fmt.Errorf("new token source for %q: %w", name, err)
	}
	return NewWithOpts(name, source, ByteCost[O](), overlimit, Opts{Metrics: opts.Metrics})
}

// MustNewByteRateLimiter is a version of NewByteRateLimiter that panics if an error occurs.
func MustNewByteRateLimiter[O any](name string, maxRate Rate, overlimit OverlimitFunc[O]) *RequestLimiter[O] {
	l, err := NewByteRateLimiter(name, maxRate, overlimit)
	if err != nil {
		panic(err)
	}
	return l
}
