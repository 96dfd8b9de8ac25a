/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package budget assembles request limiters from configuration.
//
// A configuration declares named budgets (independently tracked rate limits,
// each with its own cost dimension: request count or byte volume) and rules
// that bind budgets to streams matched by glob patterns. The resulting Gate
// evaluates every operation against all budgets of the first matching rule
// with all-must-pass semantics.
//
// Configuration can be loaded in different formats (YAML, JSON) using
// LoadConfigFromReader/LoadConfigFromFile, viper, or with
// json.Unmarshal/yaml.Unmarshal functions directly.
package budget
