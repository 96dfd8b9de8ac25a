/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratesource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSlidingWindowTryAcquire(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid rate", func(t *testing.T) {
		_, err := NewSlidingWindow(Rate{-1, time.Second})
		require.Error(t, err)
	})

	t.Run("consumes up to limit within window", func(t *testing.T) {
		w, err := NewSlidingWindow(Rate{3, time.Second})
		require.NoError(t, err)
		require.True(t, w.TryAcquire(ctx, 2))
		require.True(t, w.TryAcquire(ctx, 1))
		require.False(t, w.TryAcquire(ctx, 1))
	})

	t.Run("window slides", func(t *testing.T) {
		w, err := NewSlidingWindow(Rate{2, 100 * time.Millisecond})
		require.NoError(t, err)
		require.True(t, w.TryAcquire(ctx, 2))
		require.False(t, w.TryAcquire(ctx, 1))
		time.Sleep(210 * time.Millisecond) // Two full windows to be safe.
		require.True(t, w.TryAcquire(ctx, 1))
	})
}
