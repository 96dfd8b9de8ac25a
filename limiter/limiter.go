/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import (
	"context"
	"fmt"
)

// Limiter is the admission check invoked for every operation.
type Limiter[O any] interface {
	// Apply evaluates the operation against the budget.
	// It returns nil if the operation is admitted and an over-capacity
	// error if it is rejected. Apply never blocks waiting for capacity.
	Apply(ctx context.Context, op O) error
}

// CostFunc computes the cost of an operation charged against a budget.
// Implementations must be pure and must never return a negative cost,
// clamping instead of overflowing (see ByteCost).
type CostFunc[O any] func(op O) int

// OverlimitFunc is the reaction invoked when the budget check fails.
// It is called exactly once per rejected evaluation. Returning nil admits
// the operation despite the exhausted budget, returning an error
// (conventionally *OverCapacityError) rejects it.
type OverlimitFunc[O any] func(ctx context.Context, op O) error

// RequestLimiter charges the cost of each operation against a token budget
// and fires the configured overlimit reaction when the budget is exhausted.
// It is immutable after construction and safe for concurrent use.
type RequestLimiter[O any] struct {
	name      string
	source    TokenSource
	cost      CostFunc[O]
	overlimit OverlimitFunc[O]
	metrics   MetricsCollector
}

// Opts represents options for the RequestLimiter.
type Opts struct {
	// Metrics is a collector of overlimit events.
	// If nil, DisabledMetrics is used.
	Metrics MetricsCollector
}

// New creates a new RequestLimiter composing the passed collaborators.
// All of them are required; a missing one is a configuration error reported
// at construction time, never from Apply.
func New[O any](name string, source TokenSource, cost CostFunc[O], overlimit OverlimitFunc[O]) (*RequestLimiter[O], error) {
	return NewWithOpts(name, source, cost, overlimit, Opts{})
}

// NewWithOpts is a more configurable version of New.
func NewWithOpts[O any](
	name string, source TokenSource, cost CostFunc[O], overlimit OverlimitFunc[O], opts Opts,
) (*RequestLimiter[O], error) {
	if name == "" {
		return nil, fmt.Errorf("limiter name is required")
	}
	if source == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if cost == nil {
		return nil, fmt.Errorf("cost function is required")
	}
	if overlimit == nil {
		return nil, fmt.Errorf("overlimit function is required")
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = DisabledMetrics
	}
	return &RequestLimiter[O]{
		name:      name,
		source:    source,
		cost:      cost,
		overlimit: overlimit,
		metrics:   metrics,
	}, nil
}

// MustNew is a version of New that panics if an error occurs.
func MustNew[O any](name string, source TokenSource, cost CostFunc[O], overlimit OverlimitFunc[O]) *RequestLimiter[O] {
	l, err := New(name, source, cost, overlimit)
	if err != nil {
		panic(err)
	}
	return l
}

// Name returns the name the limiter was configured with.
func (l *RequestLimiter[O]) Name() string {
	return l.name
}

// Apply evaluates the operation against the budget.
// Implements Limiter interface.
func (l *RequestLimiter[O]) Apply(ctx context.Context, op O) error {
	cost := l.cost(op)
	if cost <= 0 {
		// A zero-cost operation is free under this budget dimension and must
		// never be blocked. The source is bypassed entirely instead of relying
		// on "acquire 0 always succeeds" semantics of a particular primitive.
		return nil
	}
	if l.source.TryAcquire(ctx, cost) {
		return nil
	}
	// The counter is incremented before the reaction runs and on every
	// budget-exceeded path, so pressure is visible even for advisory budgets.
	l.metrics.IncOverlimit(l.name)
	return l.overlimit(ctx, op)
}

// Nop returns a limiter that admits every operation.
func Nop[O any]() Limiter[O] {
	return nopLimiter[O]{}
}

type nopLimiter[O any] struct{}

func (nopLimiter[O]) Apply(context.Context, O) error {
	return nil
}
