/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestCost(t *testing.T) {
	cost := RequestCost[any]()

	tests := []struct {
		name string
		op   any
		want int
	}{
		{name: "payload-bearing operation", op: writeOp{size: 100}, want: 1},
		{name: "payload-bearing operation with empty payload", op: writeOp{size: 0}, want: 1},
		{name: "payload-bearing operation with huge payload", op: writeOp{size: int64(MaxCost) * 10}, want: 1},
		{name: "control operation", op: controlOp{}, want: 0},
		{name: "nil operation", op: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, cost(tt.op))
		})
	}
}

func TestByteCost(t *testing.T) {
	cost := ByteCost[any]()

	tests := []struct {
		name string
		op   any
		want int
	}{
		{name: "payload size is the cost", op: writeOp{size: 4096}, want: 4096},
		{name: "empty payload is free", op: writeOp{size: 0}, want: 0},
		{name: "saturates at MaxCost", op: writeOp{size: int64(MaxCost) + 1}, want: MaxCost},
		{name: "saturates far above MaxCost", op: writeOp{size: int64(MaxCost) * 1000}, want: MaxCost},
		{name: "negative size clamps to zero", op: writeOp{size: -1}, want: 0},
		{name: "control operation", op: controlOp{}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, cost(tt.op))
		})
	}
}

func TestByteCostMonotonic(t *testing.T) {
	cost := ByteCost[any]()
	sizes := []int64{0, 1, 100, 1 << 20, MaxCost - 1, MaxCost, int64(MaxCost) + 1, int64(MaxCost) * 2}
	prev := -1
	for _, size := range sizes {
		c := cost(writeOp{size: size})
		require.GreaterOrEqual(t, c, 0)
		require.GreaterOrEqual(t, c, prev, "cost should be monotonic in payload size")
		prev = c
	}
}
