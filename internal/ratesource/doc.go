/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratesource provides token-bucket-style rate primitives used by the
// composable request limiter.
//
// Every source exposes the same narrow contract: a non-blocking attempt to
// consume n tokens from a continuously refilling budget. The token math is
// delegated to mature rate-limiting libraries, a source only adapts one of
// them to the TryAcquire shape:
//   - TokenBucket is based on golang.org/x/time/rate
//   - LeakyBucket implements GCRA (a leaky bucket variant) via throttled/v2,
//     with an in-memory or Redis-backed store
//   - SlidingWindow is based on RussellLuo/slidingwindow
package ratesource
