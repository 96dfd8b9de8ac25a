/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package budget

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Configuration data formats supported by LoadConfigFromReader.
const (
	DataFormatYAML = "yaml"
	DataFormatJSON = "json"
)

// LoadConfigFromReader reads, unmarshals and validates a configuration in the
// passed format ("yaml" or "json").
func LoadConfigFromReader(r io.Reader, format string) (*Config, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return unmarshalConfig(v)
}

// LoadConfigFromFile reads, unmarshals and validates a configuration file.
// The format is inferred from the file extension.
func LoadConfigFromFile(path string) (*Config, error) {
	v := viper.New()
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		v.SetConfigType(ext)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	return unmarshalConfig(v)
}

func unmarshalConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(MapstructureDecodeHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
