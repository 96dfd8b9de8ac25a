/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package budget

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vasayxtx/go-glob"
	"go.uber.org/atomic"

	"github.com/acronis/go-admission/limiter"
	"github.com/acronis/go-admission/log"
)

// DefaultMaxStreams is the default bound on the number of per-stream budgets
// kept in memory. The least recently used budgets are evicted beyond it.
const DefaultMaxStreams = 10000

// DefaultRedisKeyPrefix is prepended to the Redis keys of budgets whose store
// configures no key prefix of its own.
const DefaultRedisKeyPrefix = "admission:"

// Opts represents options for NewGateWithOpts.
type Opts[O any] struct {
	// Logger is used for reporting store errors and dry run admissions.
	Logger log.FieldLogger

	// Metrics is a collector of overlimit events of all assembled limiters.
	// If nil, DisabledMetrics is used.
	Metrics limiter.MetricsCollector

	// RedisClient is required by budgets with the "redis" store type.
	RedisClient *redis.Client

	// OnOverlimit overrides the reaction of enforcing (non dry run) budgets.
	// If nil, operations exceeding a budget are rejected with
	// limiter.OverCapacityError.
	OnOverlimit limiter.OverlimitFunc[O]
}

// Gate evaluates operations against the budgets configuration binds to their
// streams. An operation is admitted when every budget of the first rule
// matching its stream admits it; streams matched by no rule are not limited.
//
// Gate is safe for concurrent use, and its configuration can be replaced at
// runtime with Reload.
type Gate[O any] struct {
	opts  Opts[O]
	rules atomic.Pointer[[]*gateRule[O]]
}

// NewGate creates a new Gate for the passed configuration.
func NewGate[O any](cfg *Config) (*Gate[O], error) {
	return NewGateWithOpts(cfg, Opts[O]{})
}

// NewGateWithOpts is a more configurable version of NewGate.
func NewGateWithOpts[O any](cfg *Config, opts Opts[O]) (*Gate[O], error) {
	if opts.Metrics == nil {
		opts.Metrics = limiter.DisabledMetrics
	}
	g := &Gate[O]{opts: opts}
	if err := g.Reload(cfg); err != nil {
		return nil, err
	}
	return g, nil
}

// MustNewGate is a version of NewGate that panics if an error occurs.
func MustNewGate[O any](cfg *Config) *Gate[O] {
	g, err := NewGate[O](cfg)
	if err != nil {
		panic(err)
	}
	return g
}

// Reload atomically replaces the configuration the Gate evaluates against.
// Token state does not survive the replacement: all budgets start full.
// In-flight Apply calls finish against the configuration they started with.
func (g *Gate[O]) Reload(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	rules := make([]*gateRule[O], 0, len(cfg.Rules))
	for i := range cfg.Rules {
		rule, err := newGateRule(&cfg.Rules[i], cfg.Budgets, g.opts)
		if err != nil {
			return fmt.Errorf("build rule %q: %w", cfg.Rules[i].Name(), err)
		}
		rules = append(rules, rule)
	}
	g.rules.Store(&rules)
	return nil
}

// Apply evaluates the operation on the named stream against all budgets of
// the first matching rule. It returns nil if the operation is admitted and
// the reaction's error otherwise.
func (g *Gate[O]) Apply(ctx context.Context, stream string, op O) error {
	rules := *g.rules.Load()
	for _, rule := range rules {
		if !rule.matches(stream) {
			continue
		}
		for _, sl := range rule.limiters {
			if err := sl.apply(ctx, stream, op); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

type gateRule[O any] struct {
	name     string
	includes []func(s string) bool
	excludes []func(s string) bool
	limiters []streamLimiter[O]
}

func newGateRule[O any](cfg *RuleConfig, budgets map[string]BudgetConfig, opts Opts[O]) (*gateRule[O], error) {
	rule := &gateRule[O]{name: cfg.Name()}
	for _, pattern := range cfg.Streams {
		rule.includes = append(rule.includes, glob.Compile(pattern))
	}
	for _, pattern := range cfg.ExcludedStreams {
		rule.excludes = append(rule.excludes, glob.Compile(pattern))
	}
	for _, budgetName := range cfg.Budgets {
		budgetCfg := budgets[budgetName]
		sl, err := newStreamLimiter(rule.name+"."+budgetName, &budgetCfg, opts)
		if err != nil {
			return nil, fmt.Errorf("build budget %q: %w", budgetName, err)
		}
		rule.limiters = append(rule.limiters, sl)
	}
	return rule, nil
}

func (r *gateRule[O]) matches(stream string) bool {
	for _, excluded := range r.excludes {
		if excluded(stream) {
			return false
		}
	}
	if len(r.includes) == 0 {
		return true
	}
	for _, included := range r.includes {
		if included(stream) {
			return true
		}
	}
	return false
}

// streamLimiter is a budget assembled for a rule. Budgets shared by all
// streams of the rule ignore the stream name, per-stream budgets key their
// token state by it.
type streamLimiter[O any] interface {
	apply(ctx context.Context, stream string, op O) error
}

func newStreamLimiter[O any](limiterName string, cfg *BudgetConfig, opts Opts[O]) (streamLimiter[O], error) {
	build := makeLimiterBuilder(limiterName, cfg, opts)
	if !cfg.PerStream {
		l, err := build("")
		if err != nil {
			return nil, err
		}
		return &sharedStreamLimiter[O]{limiter: l}, nil
	}

	maxStreams := cfg.MaxStreams
	if maxStreams == 0 {
		maxStreams = DefaultMaxStreams
	}
	cache, err := lru.New[string, limiter.Limiter[O]](maxStreams)
	if err != nil {
		return nil, fmt.Errorf("new per-stream cache: %w", err)
	}
	return &perStreamLimiter[O]{build: build, cache: cache}, nil
}

type sharedStreamLimiter[O any] struct {
	limiter limiter.Limiter[O]
}

func (l *sharedStreamLimiter[O]) apply(ctx context.Context, _ string, op O) error {
	return l.limiter.Apply(ctx, op)
}

type perStreamLimiter[O any] struct {
	build func(stream string) (limiter.Limiter[O], error)

	mu    sync.Mutex
	cache *lru.Cache[string, limiter.Limiter[O]]
}

func (l *perStreamLimiter[O]) apply(ctx context.Context, stream string, op O) error {
	sl, err := l.limiterForStream(stream)
	if err != nil {
		return err
	}
	return sl.Apply(ctx, op)
}

func (l *perStreamLimiter[O]) limiterForStream(stream string) (limiter.Limiter[O], error) {
	// The mutex also serializes builds, so a stream never gets two budgets.
	l.mu.Lock()
	defer l.mu.Unlock()
	if sl, ok := l.cache.Get(stream); ok {
		return sl, nil
	}
	sl, err := l.build(stream)
	if err != nil {
		return nil, fmt.Errorf("build limiter for stream %q: %w", stream, err)
	}
	l.cache.Add(stream, sl)
	return sl, nil
}

// makeLimiterBuilder returns a function assembling the budget's limiter.
// The stream argument is empty for budgets shared by all streams of the rule
// and distinguishes Redis keys of per-stream budgets.
func makeLimiterBuilder[O any](
	limiterName string, cfg *BudgetConfig, opts Opts[O],
) func(stream string) (limiter.Limiter[O], error) {
	var maxRate limiter.Rate
	var cost limiter.CostFunc[O]
	switch cfg.Kind {
	case KindBytes:
		maxRate = limiter.Rate{Count: cfg.ByteRate.Count, Duration: cfg.ByteRate.Duration}
		cost = limiter.ByteCost[O]()
	default:
		maxRate = limiter.Rate{Count: cfg.Rate.Count, Duration: cfg.Rate.Duration}
		cost = limiter.RequestCost[O]()
	}
	overlimit := makeOverlimitFunc(limiterName, cfg, opts)
	storeCfg := cfg.Store

	return func(stream string) (limiter.Limiter[O], error) {
		var source limiter.TokenSource
		var err error
		if storeCfg.Type == StoreTypeRedis {
			if opts.RedisClient == nil {
				return nil, fmt.Errorf("redis client is required for %q store", StoreTypeRedis)
			}
			source, err = limiter.NewRedisTokenSource(opts.RedisClient, redisKey(limiterName, storeCfg, stream), maxRate,
				limiter.RedisTokenSourceOpts{
					MaxBurst: cfg.BurstLimit,
					FailOpen: storeCfg.FailOpen,
					OnError:  makeStoreErrorLogFunc(limiterName, opts.Logger),
				})
		} else {
			source, err = limiter.NewTokenSource(algFromString(cfg.Alg), maxRate, cfg.BurstLimit)
		}
		if err != nil {
			return nil, fmt.Errorf("new token source: %w", err)
		}
		return limiter.NewWithOpts(limiterName, source, cost, overlimit, limiter.Opts{Metrics: opts.Metrics})
	}
}

func makeOverlimitFunc[O any](limiterName string, cfg *BudgetConfig, opts Opts[O]) limiter.OverlimitFunc[O] {
	if cfg.DryRun {
		logger := opts.Logger
		return func(ctx context.Context, op O) error {
			if logger != nil {
				logger.Warn("operation exceeds rate budget, admitted because of dry run mode",
					log.String(limiter.LimiterLogFieldName, limiterName))
			}
			return nil
		}
	}
	if opts.OnOverlimit != nil {
		return opts.OnOverlimit
	}
	return limiter.RejectOverlimit[O](limiterName)
}

func makeStoreErrorLogFunc(limiterName string, logger log.FieldLogger) func(err error) {
	if logger == nil {
		return nil
	}
	return func(err error) {
		logger.Error("rate limit store error", log.Error(err),
			log.String(limiter.LimiterLogFieldName, limiterName))
	}
}

func redisKey(limiterName string, cfg StoreConfig, stream string) string {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	key := prefix + limiterName
	if stream != "" {
		key += ":" + stream
	}
	return key
}

func algFromString(alg string) limiter.Alg {
	switch alg {
	case AlgLeakyBucket:
		return limiter.AlgLeakyBucket
	case AlgSlidingWindow:
		return limiter.AlgSlidingWindow
	default:
		return limiter.AlgTokenBucket
	}
}
