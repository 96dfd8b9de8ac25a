/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratesource

import (
	"context"
	"time"

	"github.com/RussellLuo/slidingwindow"
)

// SlidingWindow implements sliding window rate limiting algorithm.
type SlidingWindow struct {
	limiter *slidingwindow.Limiter
}

// NewSlidingWindow creates a new sliding window rate source.
func NewSlidingWindow(maxRate Rate) (*SlidingWindow, error) {
	if err := maxRate.validate(); err != nil {
		return nil, err
	}
	lim, _ := slidingwindow.NewLimiter(
		maxRate.Duration, int64(maxRate.Count), func() (slidingwindow.Window, slidingwindow.StopFunc) {
			return slidingwindow.NewLocalWindow()
		})
	return &SlidingWindow{limiter: lim}, nil
}

// TryAcquire attempts to consume n tokens without blocking.
func (w *SlidingWindow) TryAcquire(_ context.Context, n int) bool {
	return w.limiter.AllowN(time.Now(), int64(n))
}
