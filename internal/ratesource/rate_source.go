/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratesource

import (
	"fmt"
	"time"
)

// Rate describes the refill frequency of a token budget.
type Rate struct {
	Count    int
	Duration time.Duration
}

// String returns a string representation of the rate.
// Implements fmt.Stringer interface.
func (r Rate) String() string {
	return fmt.Sprintf("%d/%s", r.Count, r.Duration)
}

func (r Rate) validate() error {
	if r.Count < 1 {
		return fmt.Errorf("rate count should be >= 1, got %d", r.Count)
	}
	if r.Duration <= 0 {
		return fmt.Errorf("rate duration should be positive, got %s", r.Duration)
	}
	return nil
}
