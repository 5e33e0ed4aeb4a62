// Package config loads proforma's optional YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMaxFileSize is the largest notation file read by default.
const DefaultMaxFileSize = 1_000_000 // 1 MB

var ErrInvalidConfig = errors.New("invalid configuration")

var (
	validLevels  = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "error": {}}
	validFormats = map[string]struct{}{"text": {}, "json": {}}
)

// Config holds settings that may also be given as flags. Flags set on the
// command line take precedence.
type Config struct {
	LegacySyntax bool   `yaml:"legacy_syntax"`
	MaxFileSize  int    `yaml:"max_file_size"`
	MaxEntries   int    `yaml:"max_entries"`
	Strict       bool   `yaml:"strict"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`

	// Extensions maps extra file extensions (".tsv") to a notation format name.
	Extensions map[string]string `yaml:"extensions,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		MaxFileSize: DefaultMaxFileSize,
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Load reads path and overlays it on the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Decode(data)
}

// Decode parses YAML data on top of the defaults and validates the result.
// Unknown keys are rejected.
func Decode(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(nil); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges. formats, when non-nil, lists the notation
// format names extension mappings may refer to.
func (c *Config) Validate(formats []string) error {
	if c.MaxFileSize < 0 {
		return fmt.Errorf("%w: max_file_size must not be negative", ErrInvalidConfig)
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("%w: max_entries must not be negative", ErrInvalidConfig)
	}
	if _, ok := validLevels[strings.ToLower(c.LogLevel)]; !ok {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if _, ok := validFormats[strings.ToLower(c.LogFormat)]; !ok {
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}

	for ext, name := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%w: extension %q must start with a dot", ErrInvalidConfig, ext)
		}
		if formats != nil && !slices.Contains(formats, name) {
			return fmt.Errorf("%w: extension %q maps to unknown format %q", ErrInvalidConfig, ext, name)
		}
	}
	return nil
}
