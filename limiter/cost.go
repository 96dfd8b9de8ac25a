/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import "math"

// MaxCost is the saturation bound for cost functions.
// A cost function clamps to it instead of wrapping to a negative value.
const MaxCost = math.MaxInt32

// PayloadBearer is the capability an operation exposes to be measurable by
// the cost function presets. Operations without it are free under both the
// request-count and the byte-volume budget dimensions.
type PayloadBearer interface {
	// PayloadSize returns the payload size in bytes.
	PayloadSize() int64
}

// RequestCost returns a cost function for a request-count budget dimension:
// 1 for payload-bearing operations regardless of payload size,
// 0 for all others (reads and control operations are free).
func RequestCost[O any]() CostFunc[O] {
	return func(op O) int {
		if _, ok := any(op).(PayloadBearer); ok {
			return 1
		}
		return 0
	}
}

// ByteCost returns a cost function for a byte-volume budget dimension:
// the payload size in bytes for payload-bearing operations, saturating at
// MaxCost, and 0 for all others.
func ByteCost[O any]() CostFunc[O] {
	return func(op O) int {
		pb, ok := any(op).(PayloadBearer)
		if !ok {
			return 0
		}
		size := pb.PayloadSize()
		if size < 0 {
			return 0
		}
		if size > MaxCost {
			return MaxCost
		}
		return int(size)
	}
}
