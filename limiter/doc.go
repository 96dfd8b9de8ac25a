/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package limiter provides a composable admission-control gate for request
// processing pipelines. Before a unit of work (an "operation") proceeds, it is
// evaluated against one or more rate budgets, each tracking its own notion of
// cost (requests per second, bytes per second, and so on).
//
// A RequestLimiter composes three pluggable collaborators:
//   - a CostFunc that measures the cost of an operation,
//   - a TokenSource that consumes the cost from a refilling token budget,
//   - an OverlimitFunc that reacts when the budget is exhausted.
//
// The overlimit counter of the configured MetricsCollector is incremented on
// every budget-exceeded evaluation, regardless of whether the reaction admits
// or rejects the operation, so operators can observe rate pressure even for
// advisory (non-enforcing) budgets.
//
// Multiple limiters may be combined with Chain (all must pass) and replaced
// atomically at runtime with Swappable.
package limiter
