/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package budget

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Budget kinds, i.e. the cost dimensions charged against a budget.
const (
	KindRequests = "requests"
	KindBytes    = "bytes"
)

// Rate-limiting algorithms.
const (
	AlgTokenBucket   = "token_bucket"
	AlgLeakyBucket   = "leaky_bucket"
	AlgSlidingWindow = "sliding_window"
)

// Token store types.
const (
	StoreTypeMemory = "memory"
	StoreTypeRedis  = "redis"
)

// Config represents a configuration of budgets and the rules that bind them to streams.
type Config struct {
	// Budgets contains budget dimensions.
	// Key is a budget's name, and value is a budget's configuration.
	Budgets map[string]BudgetConfig `mapstructure:"budgets" yaml:"budgets" json:"budgets"`

	// Rules contains the list of admission rules. A rule represents a set of
	// streams (matched by glob patterns) and the budgets all operations on
	// those streams are evaluated against.
	Rules []RuleConfig `mapstructure:"rules" yaml:"rules" json:"rules"`
}

// Validate validates configuration.
func (c *Config) Validate() error {
	for budgetName, b := range c.Budgets {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("validate budget %q: %w", budgetName, err)
		}
	}
	for _, rule := range c.Rules {
		if err := rule.Validate(c.Budgets); err != nil {
			return fmt.Errorf("validate rule %q: %w", rule.Name(), err)
		}
	}
	return nil
}

// BudgetConfig represents a configuration of a single budget dimension.
type BudgetConfig struct {
	// Kind determines the cost dimension: "requests" or "bytes".
	Kind string `mapstructure:"kind" yaml:"kind" json:"kind"`

	// Rate is the refill rate for budgets of the "requests" kind, e.g. "100/s".
	Rate RateValue `mapstructure:"rate" yaml:"rate" json:"rate"`

	// ByteRate is the refill rate for budgets of the "bytes" kind, e.g. "512K/s".
	ByteRate ByteRateValue `mapstructure:"byteRate" yaml:"byteRate" json:"byteRate"`

	// Alg selects the rate-limiting algorithm:
	// "token_bucket" (default), "leaky_bucket" or "sliding_window".
	Alg string `mapstructure:"alg" yaml:"alg" json:"alg"`

	// BurstLimit is passed to the token source as the burst capacity.
	BurstLimit int `mapstructure:"burstLimit" yaml:"burstLimit" json:"burstLimit"`

	// DryRun makes the budget advisory: exhaustion is counted and logged,
	// but operations are admitted.
	DryRun bool `mapstructure:"dryRun" yaml:"dryRun" json:"dryRun"`

	// PerStream gives every stream its own independent token budget instead
	// of one budget shared by all streams the rule matches.
	PerStream bool `mapstructure:"perStream" yaml:"perStream" json:"perStream"`

	// MaxStreams bounds the number of per-stream budgets kept in memory.
	// Matters only when PerStream is true.
	MaxStreams int `mapstructure:"maxStreams" yaml:"maxStreams" json:"maxStreams"`

	// Store configures where the token state lives.
	Store StoreConfig `mapstructure:"store" yaml:"store" json:"store"`
}

// Validate validates budget configuration.
func (c *BudgetConfig) Validate() error {
	switch c.Kind {
	case KindRequests:
		if c.Rate.Count < 1 {
			return fmt.Errorf("rate should be specified and >= 1, got %d", c.Rate.Count)
		}
	case KindBytes:
		if c.ByteRate.Count < 1 {
			return fmt.Errorf("byte rate should be specified and >= 1, got %d", c.ByteRate.Count)
		}
	case "":
		return fmt.Errorf("kind is missing")
	default:
		return fmt.Errorf("unknown kind %q", c.Kind)
	}

	switch c.Alg {
	case "", AlgTokenBucket, AlgLeakyBucket, AlgSlidingWindow:
	default:
		return fmt.Errorf("unknown rate limit alg %q", c.Alg)
	}

	if c.BurstLimit < 0 {
		return fmt.Errorf("burst limit should be >= 0, got %d", c.BurstLimit)
	}
	if c.MaxStreams < 0 {
		return fmt.Errorf("max streams should be >= 0, got %d", c.MaxStreams)
	}

	switch c.Store.Type {
	case "", StoreTypeMemory:
	case StoreTypeRedis:
		if c.Alg != "" && c.Alg != AlgLeakyBucket {
			return fmt.Errorf("%q store supports only %q alg, got %q", StoreTypeRedis, AlgLeakyBucket, c.Alg)
		}
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}

	return nil
}

// StoreConfig represents a configuration of the token state store of a budget.
type StoreConfig struct {
	// Type determines where the token state lives:
	// "memory" (default) or "redis" (budget shared by all processes).
	Type string `mapstructure:"type" yaml:"type" json:"type"`

	// KeyPrefix is prepended to the Redis keys of the budget.
	KeyPrefix string `mapstructure:"keyPrefix" yaml:"keyPrefix" json:"keyPrefix"`

	// FailOpen determines whether operations are admitted when the store is
	// unavailable. By default they are rejected.
	FailOpen bool `mapstructure:"failOpen" yaml:"failOpen" json:"failOpen"`
}

// RuleConfig represents a configuration of a single admission rule.
type RuleConfig struct {
	// Alias is an alternative name for the rule. It is used as a part of
	// limiter names in metrics and logs.
	Alias string `mapstructure:"alias" yaml:"alias" json:"alias"`

	// Streams contains glob patterns of stream names the rule applies to.
	// An empty list matches every stream.
	Streams []string `mapstructure:"streams" yaml:"streams" json:"streams"`

	// ExcludedStreams contains glob patterns of stream names excluded from
	// the rule even when Streams match.
	ExcludedStreams []string `mapstructure:"excludedStreams" yaml:"excludedStreams" json:"excludedStreams"`

	// Budgets contains names of the budgets operations on matched streams
	// are evaluated against, in evaluation order.
	Budgets []string `mapstructure:"budgets" yaml:"budgets" json:"budgets"`
}

// Name returns the rule name.
func (c *RuleConfig) Name() string {
	if c.Alias != "" {
		return c.Alias
	}
	if len(c.Streams) == 0 {
		return "*"
	}
	return strings.Join(c.Streams, "; ")
}

// Validate validates rule configuration.
func (c *RuleConfig) Validate(budgets map[string]BudgetConfig) error {
	if len(c.Budgets) == 0 {
		return fmt.Errorf("budgets is missing")
	}
	for _, budgetName := range c.Budgets {
		if _, ok := budgets[budgetName]; !ok {
			return fmt.Errorf("budget %q is undefined", budgetName)
		}
	}
	return nil
}

// RateValue represents a refill rate of a request-count budget.
type RateValue struct {
	Count    int
	Duration time.Duration
}

// String returns a string representation of the rate value.
// Implements fmt.Stringer interface.
func (rv RateValue) String() string {
	if rv.Duration == 0 && rv.Count == 0 {
		return ""
	}
	return fmt.Sprintf("%d/%s", rv.Count, durationSuffix(rv.Duration))
}

// UnmarshalText implements the encoding.TextUnmarshaler interface
// which is used by mapstructure.TextUnmarshallerHookFunc.
func (rv *RateValue) UnmarshalText(text []byte) error {
	return rv.unmarshal(string(text))
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (rv *RateValue) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	return rv.unmarshal(text)
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (rv *RateValue) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	return rv.unmarshal(text)
}

func (rv *RateValue) unmarshal(rate string) error {
	if rate == "" {
		*rv = RateValue{}
		return nil
	}
	incorrectFormatErr := fmt.Errorf(
		"incorrect format for rate %q, should be N/(s|m|h), for example 10/s, 100/m, 1000/h", rate)
	countStr, dur, err := splitRate(rate)
	if err != nil {
		return incorrectFormatErr
	}
	count, err := strconv.Atoi(countStr)
	if err != nil {
		return incorrectFormatErr
	}
	*rv = RateValue{Count: count, Duration: dur}
	return nil
}

// MarshalText implements the encoding.TextMarshaler interface.
func (rv RateValue) MarshalText() ([]byte, error) {
	return []byte(rv.String()), nil
}

// MarshalJSON implements the json.Marshaler interface.
func (rv RateValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(rv.String())
}

// MarshalYAML implements the yaml.Marshaler interface.
func (rv RateValue) MarshalYAML() (interface{}, error) {
	return rv.String(), nil
}

// ByteRateValue represents a refill rate of a byte-volume budget,
// e.g. "512K/s" or "10M/m". The size part is parsed with bytefmt.
type ByteRateValue struct {
	Count    int
	Duration time.Duration
}

// String returns a string representation of the byte rate value.
// Implements fmt.Stringer interface.
func (rv ByteRateValue) String() string {
	if rv.Duration == 0 && rv.Count == 0 {
		return ""
	}
	return fmt.Sprintf("%s/%s", bytefmt.ByteSize(uint64(rv.Count)), durationSuffix(rv.Duration))
}

// UnmarshalText implements the encoding.TextUnmarshaler interface
// which is used by mapstructure.TextUnmarshallerHookFunc.
func (rv *ByteRateValue) UnmarshalText(text []byte) error {
	return rv.unmarshal(string(text))
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (rv *ByteRateValue) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	return rv.unmarshal(text)
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (rv *ByteRateValue) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	return rv.unmarshal(text)
}

func (rv *ByteRateValue) unmarshal(rate string) error {
	if rate == "" {
		*rv = ByteRateValue{}
		return nil
	}
	incorrectFormatErr := fmt.Errorf(
		"incorrect format for byte rate %q, should be SIZE/(s|m|h), for example 512K/s, 10M/m, 1G/h", rate)
	sizeStr, dur, err := splitRate(rate)
	if err != nil {
		return incorrectFormatErr
	}
	// bytefmt insists on a unit suffix, allow plain byte counts too.
	size, err := strconv.ParseUint(sizeStr, 10, 64)
	if err != nil {
		if size, err = bytefmt.ToBytes(sizeStr); err != nil {
			return incorrectFormatErr
		}
	}
	if size > uint64(maxInt) {
		return fmt.Errorf("byte rate %q is too big", rate)
	}
	*rv = ByteRateValue{Count: int(size), Duration: dur}
	return nil
}

// MarshalText implements the encoding.TextMarshaler interface.
func (rv ByteRateValue) MarshalText() ([]byte, error) {
	return []byte(rv.String()), nil
}

// MarshalJSON implements the json.Marshaler interface.
func (rv ByteRateValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(rv.String())
}

// MarshalYAML implements the yaml.Marshaler interface.
func (rv ByteRateValue) MarshalYAML() (interface{}, error) {
	return rv.String(), nil
}

const maxInt = int(^uint(0) >> 1)

func splitRate(rate string) (value string, dur time.Duration, err error) {
	parts := strings.SplitN(rate, "/", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("missing duration part")
	}
	switch strings.ToLower(parts[1]) {
	case "s":
		dur = time.Second
	case "m":
		dur = time.Minute
	case "h":
		dur = time.Hour
	default:
		return "", 0, fmt.Errorf("unknown duration part %q", parts[1])
	}
	return parts[0], dur, nil
}

func durationSuffix(dur time.Duration) string {
	switch dur {
	case time.Second:
		return "s"
	case time.Minute:
		return "m"
	case time.Hour:
		return "h"
	}
	return dur.String()
}

func mapstructureTrimSpaceStringsHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Kind,
		t reflect.Kind,
		data interface{}) (interface{}, error) {
		if f != reflect.Slice || t != reflect.Slice {
			return data, nil
		}
		switch dt := data.(type) {
		case []string:
			res := make([]string, 0, len(dt))
			for _, s := range dt {
				res = append(res, strings.TrimSpace(s))
			}
			return res, nil
		default:
			return data, nil
		}
	}
}

// MapstructureDecodeHook returns a DecodeHookFunc for mapstructure to handle custom types.
func MapstructureDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructureTrimSpaceStringsHookFunc(),
	)
}
