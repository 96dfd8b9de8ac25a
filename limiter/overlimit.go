/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import (
	"context"

	"github.com/acronis/go-admission/log"
)

// LimiterLogFieldName is a logged field that contains the name of the limiter
// whose budget was exceeded.
const LimiterLogFieldName = "limiter"

// NopOverlimit returns a reaction that admits the operation despite the
// exhausted budget and performs no side effect. Used when a budget dimension
// is advisory (measurement-only) rather than enforcing.
func NopOverlimit[O any]() OverlimitFunc[O] {
	return func(context.Context, O) error {
		return nil
	}
}

// RejectOverlimit returns a reaction that rejects the operation with an
// OverCapacityError carrying the limiter name.
func RejectOverlimit[O any](limiterName string) OverlimitFunc[O] {
	return func(context.Context, O) error {
		return &OverCapacityError{LimiterName: limiterName}
	}
}

// LogOverlimit returns a reaction that logs a warning and admits the
// operation. Typically combined with RejectOverlimit via ChainOverlimits
// to get log-then-reject behavior.
func LogOverlimit[O any](logger log.FieldLogger, limiterName string) OverlimitFunc[O] {
	return func(context.Context, O) error {
		if logger != nil {
			logger.Warn("operation exceeds rate budget", log.String(LimiterLogFieldName, limiterName))
		}
		return nil
	}
}

// ChainOverlimits combines multiple reactions into one. They are invoked in
// order until the first one that returns an error, and that error becomes the
// result of the combined reaction.
func ChainOverlimits[O any](reactions ...OverlimitFunc[O]) OverlimitFunc[O] {
	return func(ctx context.Context, op O) error {
		for _, reaction := range reactions {
			if err := reaction(ctx, op); err != nil {
				return err
			}
		}
		return nil
	}
}
