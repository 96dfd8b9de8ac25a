/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import "context"

// Chain evaluates limiters in order with all-must-pass semantics, typically
// one per budget dimension (request count, byte volume, per-tenant).
// Evaluation short-circuits on the first over-capacity error, so the order
// determines which rejection reason is reported; limiters after the failed
// one are not charged.
type Chain[O any] []Limiter[O]

// NewChain creates a new Chain of the passed limiters.
func NewChain[O any](limiters ...Limiter[O]) Chain[O] {
	return limiters
}

// Apply evaluates the operation against every budget in the chain.
// Implements Limiter interface.
func (c Chain[O]) Apply(ctx context.Context, op O) error {
	for _, l := range c {
		if err := l.Apply(ctx, op); err != nil {
			return err
		}
	}
	return nil
}
