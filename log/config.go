/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"encoding/json"
	"fmt"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"gopkg.in/yaml.v3"
)

// Default and restriction values.
const (
	DefaultFileRotationMaxSizeBytes = 1024 * 1024 * 250
	MinFileRotationMaxSizeBytes     = 1024 * 1024

	DefaultFileRotationMaxBackups = 10
)

// Level defines a verbosity of logging.
type Level string

// Logging levels.
const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// Format defines a format of logging.
type Format string

// Logging formats.
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Output defines a destination of logging.
type Output string

// Logging destinations.
const (
	OutputStdout Output = "stdout"
	OutputStderr Output = "stderr"
	OutputFile   Output = "file"
)

// ByteSize is a size in bytes that can be parsed from a human-readable
// string like "256M" or "1G".
type ByteSize uint64

// String returns a string representation of the size.
// Implements fmt.Stringer interface.
func (bs ByteSize) String() string {
	return bytefmt.ByteSize(uint64(bs))
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (bs *ByteSize) UnmarshalText(text []byte) error {
	return bs.unmarshal(string(text))
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (bs *ByteSize) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	return bs.unmarshal(text)
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (bs *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	return bs.unmarshal(text)
}

func (bs *ByteSize) unmarshal(text string) error {
	s := strings.TrimSpace(text)
	if s == "" {
		*bs = 0
		return nil
	}
	n, err := bytefmt.ToBytes(s)
	if err != nil {
		return fmt.Errorf("parse byte size %q: %w", s, err)
	}
	*bs = ByteSize(n)
	return nil
}

// FileRotationConfig is a configuration of file log rotation.
type FileRotationConfig struct {
	Compress         bool     `mapstructure:"compress" yaml:"compress" json:"compress"`
	MaxSize          ByteSize `mapstructure:"maxSize" yaml:"maxSize" json:"maxSize"`
	MaxBackups       int      `mapstructure:"maxBackups" yaml:"maxBackups" json:"maxBackups"`
	MaxAgeDays       int      `mapstructure:"maxAgeDays" yaml:"maxAgeDays" json:"maxAgeDays"`
	LocalTimeInNames bool     `mapstructure:"localTimeInNames" yaml:"localTimeInNames" json:"localTimeInNames"`
}

// FileOutputConfig is a configuration of logging to a file.
type FileOutputConfig struct {
	Path     string             `mapstructure:"path" yaml:"path" json:"path"`
	Rotation FileRotationConfig `mapstructure:"rotation" yaml:"rotation" json:"rotation"`
}

// Config represents a set of configuration parameters for logging.
type Config struct {
	Level   Level            `mapstructure:"level" yaml:"level" json:"level"`
	Format  Format           `mapstructure:"format" yaml:"format" json:"format"`
	Output  Output           `mapstructure:"output" yaml:"output" json:"output"`
	NoColor bool             `mapstructure:"nocolor" yaml:"nocolor" json:"nocolor"`
	File    FileOutputConfig `mapstructure:"file" yaml:"file" json:"file"`

	// AddCaller determines whether the caller (in package/file:line format)
	// will be added to each logged message.
	AddCaller bool `mapstructure:"addCaller" yaml:"addCaller" json:"addCaller"`
}

// Validate validates configuration and fills in unset fields with defaults.
func (c *Config) Validate() error {
	switch c.Level {
	case "":
		c.Level = LevelInfo
	case LevelError, LevelWarn, LevelInfo, LevelDebug:
	default:
		return fmt.Errorf("unknown log level %q", c.Level)
	}
	switch c.Format {
	case "":
		c.Format = FormatJSON
	case FormatJSON, FormatText:
	default:
		return fmt.Errorf("unknown log format %q", c.Format)
	}
	switch c.Output {
	case "":
		c.Output = OutputStdout
	case OutputStdout, OutputStderr:
	case OutputFile:
		if c.File.Path == "" {
			return fmt.Errorf("file path should be specified for %q output", OutputFile)
		}
	default:
		return fmt.Errorf("unknown log output %q", c.Output)
	}
	if c.File.Rotation.MaxSize == 0 {
		c.File.Rotation.MaxSize = DefaultFileRotationMaxSizeBytes
	}
	if c.File.Rotation.MaxSize < MinFileRotationMaxSizeBytes {
		return fmt.Errorf("file rotation max size should be >= %d bytes", MinFileRotationMaxSizeBytes)
	}
	if c.File.Rotation.MaxBackups == 0 {
		c.File.Rotation.MaxBackups = DefaultFileRotationMaxBackups
	}
	return nil
}
