/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import (
	"errors"
	"fmt"
)

// OverCapacityError is returned from Apply when an operation is denied
// admission because the budget of the named limiter is exhausted.
// It is distinct from any other failure kind the surrounding pipeline may
// raise, so callers can map it to a client-visible "try again later".
type OverCapacityError struct {
	LimiterName string
}

// Error returns a string representation of the error.
// Implements error interface.
func (e *OverCapacityError) Error() string {
	if e.LimiterName == "" {
		return "over capacity"
	}
	return fmt.Sprintf("over capacity for %q budget", e.LimiterName)
}

// IsOverCapacity reports whether the error chain contains an OverCapacityError.
func IsOverCapacity(err error) bool {
	var ocErr *OverCapacityError
	return errors.As(err, &ocErr)
}
