/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import (
	"context"
	"fmt"

	"go.uber.org/atomic"
)

// Swappable is a limiter whose underlying limiter can be replaced atomically
// while concurrent Apply calls are in flight. It is intended for budgets that
// are rebuilt on configuration updates: build a new limiter, Store it, and
// in-flight evaluations keep using the one they loaded.
type Swappable[O any] struct {
	current atomic.Pointer[Limiter[O]]
}

// NewSwappable creates a new Swappable routing to the passed limiter.
func NewSwappable[O any](initial Limiter[O]) (*Swappable[O], error) {
	if initial == nil {
		return nil, fmt.Errorf("initial limiter is required")
	}
	s := &Swappable[O]{}
	s.current.Store(&initial)
	return s, nil
}

// Store atomically replaces the underlying limiter.
// The passed limiter must not be nil.
func (s *Swappable[O]) Store(l Limiter[O]) {
	if l == nil {
		panic("limiter.Swappable: nil limiter")
	}
	s.current.Store(&l)
}

// Load returns the limiter Apply currently routes to.
func (s *Swappable[O]) Load() Limiter[O] {
	return *s.current.Load()
}

// Apply evaluates the operation against the most recently stored limiter.
// Implements Limiter interface.
func (s *Swappable[O]) Apply(ctx context.Context, op O) error {
	return (*s.current.Load()).Apply(ctx, op)
}
