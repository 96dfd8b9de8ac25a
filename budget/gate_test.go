/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package budget

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-admission/limiter"
	"github.com/acronis/go-admission/log/logtest"
)

type controlOp struct{}

type writeOp struct {
	size int64
}

func (op writeOp) PayloadSize() int64 {
	return op.size
}

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{counts: make(map[string]int)}
}

func (m *countingMetrics) IncOverlimit(limiterName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[limiterName]++
}

func (m *countingMetrics) count(limiterName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[limiterName]
}

func TestGateRuleMatching(t *testing.T) {
	budgets := map[string]BudgetConfig{
		"rps": {Kind: KindRequests, Rate: RateValue{Count: 100, Duration: time.Second}},
	}

	t.Run("streams and exclusions", func(t *testing.T) {
		rule, err := newGateRule(&RuleConfig{
			Streams:         []string{"orders/*", "events/*"},
			ExcludedStreams: []string{"orders/internal/*"},
			Budgets:         []string{"rps"},
		}, budgets, Opts[any]{})
		require.NoError(t, err)

		require.True(t, rule.matches("orders/123"))
		require.True(t, rule.matches("events/login"))
		require.False(t, rule.matches("orders/internal/audit"))
		require.False(t, rule.matches("billing/7"))
	})

	t.Run("empty streams match everything", func(t *testing.T) {
		rule, err := newGateRule(&RuleConfig{
			ExcludedStreams: []string{"health"},
			Budgets:         []string{"rps"},
		}, budgets, Opts[any]{})
		require.NoError(t, err)

		require.True(t, rule.matches("anything"))
		require.False(t, rule.matches("health"))
	})
}

func TestGateEnforcesRequestBudget(t *testing.T) {
	ctx := context.Background()
	metrics := newCountingMetrics()
	gate, err := NewGateWithOpts(&Config{
		Budgets: map[string]BudgetConfig{
			"rps": {Kind: KindRequests, Rate: RateValue{Count: 2, Duration: time.Second}},
		},
		Rules: []RuleConfig{{Budgets: []string{"rps"}}},
	}, Opts[any]{Metrics: metrics})
	require.NoError(t, err)

	require.NoError(t, gate.Apply(ctx, "orders/1", writeOp{size: 10}))
	require.NoError(t, gate.Apply(ctx, "orders/1", writeOp{size: 10}))

	err = gate.Apply(ctx, "orders/1", writeOp{size: 10})
	require.True(t, limiter.IsOverCapacity(err))
	require.Equal(t, 1, metrics.count("*.rps"))

	// Operations without a payload cost nothing and bypass the exhausted budget.
	require.NoError(t, gate.Apply(ctx, "orders/1", controlOp{}))
	require.Equal(t, 1, metrics.count("*.rps"))
}

func TestGateDryRun(t *testing.T) {
	ctx := context.Background()
	metrics := newCountingMetrics()
	logRecorder := logtest.NewRecorder()
	gate, err := NewGateWithOpts(&Config{
		Budgets: map[string]BudgetConfig{
			"rps": {Kind: KindRequests, Rate: RateValue{Count: 1, Duration: time.Second}, DryRun: true},
		},
		Rules: []RuleConfig{{Alias: "writes", Budgets: []string{"rps"}}},
	}, Opts[any]{Metrics: metrics, Logger: logRecorder})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, gate.Apply(ctx, "orders/1", writeOp{size: 10}))
	}
	require.Equal(t, 2, metrics.count("writes.rps"))

	entry, found := logRecorder.FindEntry("operation exceeds rate budget, admitted because of dry run mode")
	require.True(t, found)
	field, found := entry.FindField(limiter.LimiterLogFieldName)
	require.True(t, found)
	require.Equal(t, "writes.rps", string(field.Bytes))
}

func TestGateEnforcesByteBudget(t *testing.T) {
	ctx := context.Background()
	gate, err := NewGate[any](&Config{
		Budgets: map[string]BudgetConfig{
			"bps": {Kind: KindBytes, ByteRate: ByteRateValue{Count: 1000, Duration: time.Second}},
		},
		Rules: []RuleConfig{{Budgets: []string{"bps"}}},
	})
	require.NoError(t, err)

	// An operation bigger than the whole budget is rejected outright.
	err = gate.Apply(ctx, "orders/1", writeOp{size: 10000})
	require.True(t, limiter.IsOverCapacity(err))

	// The failed acquisition consumed nothing.
	require.NoError(t, gate.Apply(ctx, "orders/1", writeOp{size: 800}))
	err = gate.Apply(ctx, "orders/1", writeOp{size: 800})
	require.True(t, limiter.IsOverCapacity(err))
}

func TestGatePerStreamBudget(t *testing.T) {
	ctx := context.Background()
	gate, err := NewGate[any](&Config{
		Budgets: map[string]BudgetConfig{
			"rps": {Kind: KindRequests, Rate: RateValue{Count: 1, Duration: time.Second}, PerStream: true},
		},
		Rules: []RuleConfig{{Budgets: []string{"rps"}}},
	})
	require.NoError(t, err)

	require.NoError(t, gate.Apply(ctx, "orders/a", writeOp{size: 10}))
	require.NoError(t, gate.Apply(ctx, "orders/b", writeOp{size: 10}))
	require.True(t, limiter.IsOverCapacity(gate.Apply(ctx, "orders/a", writeOp{size: 10})))
	require.True(t, limiter.IsOverCapacity(gate.Apply(ctx, "orders/b", writeOp{size: 10})))
}

func TestGateFirstMatchingRuleWins(t *testing.T) {
	ctx := context.Background()
	metrics := newCountingMetrics()
	gate, err := NewGateWithOpts(&Config{
		Budgets: map[string]BudgetConfig{
			"rps": {Kind: KindRequests, Rate: RateValue{Count: 1, Duration: time.Second}},
		},
		Rules: []RuleConfig{
			{Alias: "orders", Streams: []string{"orders/*"}, Budgets: []string{"rps"}},
			{Alias: "default", Budgets: []string{"rps"}},
		},
	}, Opts[any]{Metrics: metrics})
	require.NoError(t, err)

	require.NoError(t, gate.Apply(ctx, "orders/1", writeOp{size: 10}))
	err = gate.Apply(ctx, "orders/1", writeOp{size: 10})
	require.True(t, limiter.IsOverCapacity(err))
	require.Equal(t, 1, metrics.count("orders.rps"))
	require.Equal(t, 0, metrics.count("default.rps"))
}

func TestGateUnmatchedStreamIsNotLimited(t *testing.T) {
	ctx := context.Background()
	gate, err := NewGate[any](&Config{
		Budgets: map[string]BudgetConfig{
			"rps": {Kind: KindRequests, Rate: RateValue{Count: 1, Duration: time.Second}},
		},
		Rules: []RuleConfig{{Streams: []string{"orders/*"}, Budgets: []string{"rps"}}},
	})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, gate.Apply(ctx, "audit/1", writeOp{size: 10}))
	}
}

func TestGateReload(t *testing.T) {
	ctx := context.Background()
	gate, err := NewGate[any](&Config{
		Budgets: map[string]BudgetConfig{
			"rps": {Kind: KindRequests, Rate: RateValue{Count: 1, Duration: time.Second}},
		},
		Rules: []RuleConfig{{Budgets: []string{"rps"}}},
	})
	require.NoError(t, err)

	require.NoError(t, gate.Apply(ctx, "orders/1", writeOp{size: 10}))
	require.True(t, limiter.IsOverCapacity(gate.Apply(ctx, "orders/1", writeOp{size: 10})))

	require.NoError(t, gate.Reload(&Config{
		Budgets: map[string]BudgetConfig{
			"rps": {Kind: KindRequests, Rate: RateValue{Count: 100, Duration: time.Second}},
		},
		Rules: []RuleConfig{{Budgets: []string{"rps"}}},
	}))
	require.NoError(t, gate.Apply(ctx, "orders/1", writeOp{size: 10}))

	t.Run("invalid config keeps the old one", func(t *testing.T) {
		require.Error(t, gate.Reload(&Config{Rules: []RuleConfig{{Budgets: []string{"nosuch"}}}}))
		require.NoError(t, gate.Apply(ctx, "orders/1", writeOp{size: 10}))
	})
}

func TestNewGateErrors(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewGate[any](nil)
		require.ErrorContains(t, err, "config is required")
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := NewGate[any](&Config{Rules: []RuleConfig{{Budgets: []string{"nosuch"}}}})
		require.ErrorContains(t, err, `budget "nosuch" is undefined`)
	})

	t.Run("redis store without client", func(t *testing.T) {
		_, err := NewGate[any](&Config{
			Budgets: map[string]BudgetConfig{
				"rps": {
					Kind:  KindRequests,
					Rate:  RateValue{Count: 1, Duration: time.Second},
					Store: StoreConfig{Type: StoreTypeRedis},
				},
			},
			Rules: []RuleConfig{{Budgets: []string{"rps"}}},
		})
		require.ErrorContains(t, err, "redis client is required")
	})
}
