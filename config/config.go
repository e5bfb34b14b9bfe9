/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"dirpx.dev/dpx/apis"
)

const (
	// DefaultRetention represents the default for Retention.
	DefaultRetention = apis.Unbounded
	// DefaultCacheCapacity represents the default for CacheCapacity.
	DefaultCacheCapacity = 1024
	// DefaultCacheTTL represents the default for CacheTTL.
	DefaultCacheTTL = 10 * time.Minute
	// DefaultMaxEmbedDepth represents the default for MaxEmbedDepth.
	// A value of 8 should be sufficient for all practical purposes.
	DefaultMaxEmbedDepth = 8
)

// NewConfig constructs an apis.Config from the given options.
func NewConfig(opts ...Option) apis.Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return Normalize(cfg)
}

// Normalize resets invalid numeric knobs of cfg to their defaults.
func Normalize(cfg apis.Config) apis.Config {
	if cfg.MaxEmbedDepth <= 0 {
		cfg.MaxEmbedDepth = DefaultMaxEmbedDepth
	}
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = DefaultCacheCapacity
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	return cfg
}

// DefaultConfig is the default configuration used when none is provided.
func DefaultConfig() apis.Config {
	return apis.Config{
		Retention:     DefaultRetention,
		CacheCapacity: DefaultCacheCapacity,
		CacheTTL:      DefaultCacheTTL,
		MaxEmbedDepth: DefaultMaxEmbedDepth,
	}
}

// Option is a functional option that mutates an apis.Config during construction.
type Option func(*apis.Config)

// WithRetention sets the Retention option.
func WithRetention(r apis.Retention) Option {
	return func(c *apis.Config) {
		c.Retention = r
	}
}

// WithCacheCapacity sets the CacheCapacity option.
// A non-positive value resets to the default.
func WithCacheCapacity(n int) Option {
	return func(c *apis.Config) {
		c.CacheCapacity = n
	}
}

// WithCacheTTL sets the CacheTTL option.
// A non-positive value resets to the default.
func WithCacheTTL(d time.Duration) Option {
	return func(c *apis.Config) {
		c.CacheTTL = d
	}
}

// WithMaxEmbedDepth sets the MaxEmbedDepth option.
// A non-positive value resets to the default.
func WithMaxEmbedDepth(n int) Option {
	return func(c *apis.Config) {
		c.MaxEmbedDepth = n
	}
}

// WithAllowTargetReplacement sets the AllowTargetReplacement option.
func WithAllowTargetReplacement(allow bool) Option {
	return func(c *apis.Config) {
		c.AllowTargetReplacement = allow
	}
}

// WithLogger sets the Logger option.
func WithLogger(l *slog.Logger) Option {
	return func(c *apis.Config) {
		c.Logger = l
	}
}

// Document is the YAML form of the configuration. Absent fields keep their
// defaults.
type Document struct {
	Cache                  *CacheSection `yaml:"cache,omitempty"`
	MaxEmbedDepth          *int          `yaml:"maxEmbedDepth,omitempty"`
	AllowTargetReplacement *bool         `yaml:"allowTargetReplacement,omitempty"`
	Log                    *LogSection   `yaml:"log,omitempty"`
}

// CacheSection configures the type cache.
type CacheSection struct {
	Retention string `yaml:"retention,omitempty"`
	Capacity  int    `yaml:"capacity,omitempty"`
	TTL       string `yaml:"ttl,omitempty"`
}

// LogSection configures the engine logger.
type LogSection struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Load reads a YAML configuration file.
func Load(path string) (apis.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return apis.Config{}, fmt.Errorf("dpx(config): %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return apis.Config{}, fmt.Errorf("dpx(config): %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML configuration. A log section installs a logger
// writing to stderr.
func Parse(b []byte) (apis.Config, error) {
	var doc Document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return apis.Config{}, err
	}
	return doc.Apply(DefaultConfig(), os.Stderr)
}

// Apply overlays the fields present in d onto cfg. Loggers write to w.
func (d Document) Apply(cfg apis.Config, w io.Writer) (apis.Config, error) {
	var opts []Option
	if c := d.Cache; c != nil {
		if c.Retention != "" {
			r, err := apis.ParseRetention(c.Retention)
			if err != nil {
				return apis.Config{}, err
			}
			opts = append(opts, WithRetention(r))
		}
		if c.Capacity != 0 {
			if c.Capacity < 0 {
				return apis.Config{}, fmt.Errorf("dpx(config): negative cache capacity %d", c.Capacity)
			}
			opts = append(opts, WithCacheCapacity(c.Capacity))
		}
		if c.TTL != "" {
			ttl, err := time.ParseDuration(c.TTL)
			if err != nil {
				return apis.Config{}, fmt.Errorf("dpx(config): cache ttl: %w", err)
			}
			opts = append(opts, WithCacheTTL(ttl))
		}
	}
	if d.MaxEmbedDepth != nil {
		opts = append(opts, WithMaxEmbedDepth(*d.MaxEmbedDepth))
	}
	if d.AllowTargetReplacement != nil {
		opts = append(opts, WithAllowTargetReplacement(*d.AllowTargetReplacement))
	}
	if l := d.Log; l != nil {
		logger, err := NewLogger(w, l.Level, l.Format)
		if err != nil {
			return apis.Config{}, err
		}
		opts = append(opts, WithLogger(logger))
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	return Normalize(cfg), nil
}

// Encode renders cfg as YAML. The logger is not part of the output.
func Encode(cfg apis.Config) ([]byte, error) {
	depth := cfg.MaxEmbedDepth
	replace := cfg.AllowTargetReplacement
	doc := Document{
		Cache: &CacheSection{
			Retention: cfg.Retention.String(),
			Capacity:  cfg.CacheCapacity,
			TTL:       cfg.CacheTTL.String(),
		},
		MaxEmbedDepth:          &depth,
		AllowTargetReplacement: &replace,
	}
	return yaml.Marshal(doc)
}

// NewLogger builds a slog logger for a level (debug, info, warn, error)
// and a format (text or json).
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("dpx(config): log level: %w", err)
		}
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("dpx(config): unknown log format %q", format)
	}
}
