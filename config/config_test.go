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

package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/config"
)

func TestDefaultConfigValues(t *testing.T) {
	got := config.DefaultConfig()

	if got.Retention != config.DefaultRetention {
		t.Fatalf("Retention = %v, want %v", got.Retention, config.DefaultRetention)
	}
	if got.CacheCapacity != config.DefaultCacheCapacity {
		t.Fatalf("CacheCapacity = %d, want %d", got.CacheCapacity, config.DefaultCacheCapacity)
	}
	if got.CacheTTL != config.DefaultCacheTTL {
		t.Fatalf("CacheTTL = %v, want %v", got.CacheTTL, config.DefaultCacheTTL)
	}
	if got.MaxEmbedDepth != config.DefaultMaxEmbedDepth {
		t.Fatalf("MaxEmbedDepth = %d, want %d", got.MaxEmbedDepth, config.DefaultMaxEmbedDepth)
	}
	if got.AllowTargetReplacement {
		t.Fatal("AllowTargetReplacement defaults to false")
	}
}

func TestNewConfig_NoOptions_EqualsDefault(t *testing.T) {
	def := config.DefaultConfig()
	got := config.NewConfig()
	if got != def {
		t.Fatalf("NewConfig() = %+v, want default %+v", got, def)
	}
}

func TestOptions(t *testing.T) {
	c := config.NewConfig(
		config.WithRetention(apis.LRU),
		config.WithCacheCapacity(16),
		config.WithCacheTTL(time.Second),
		config.WithMaxEmbedDepth(3),
		config.WithAllowTargetReplacement(true),
	)
	if c.Retention != apis.LRU || c.CacheCapacity != 16 || c.CacheTTL != time.Second || c.MaxEmbedDepth != 3 || !c.AllowTargetReplacement {
		t.Fatalf("options not applied: %+v", c)
	}
}

func TestNonPositiveKnobsResetToDefault(t *testing.T) {
	c := config.NewConfig(
		config.WithCacheCapacity(-1),
		config.WithCacheTTL(0),
		config.WithMaxEmbedDepth(-5),
	)
	if c.CacheCapacity != config.DefaultCacheCapacity {
		t.Fatalf("CacheCapacity = %d, want default", c.CacheCapacity)
	}
	if c.CacheTTL != config.DefaultCacheTTL {
		t.Fatalf("CacheTTL = %v, want default", c.CacheTTL)
	}
	if c.MaxEmbedDepth != config.DefaultMaxEmbedDepth {
		t.Fatalf("MaxEmbedDepth = %d, want default", c.MaxEmbedDepth)
	}
}

func TestParse(t *testing.T) {
	src := `
cache:
  retention: lru
  capacity: 64
  ttl: 90s
maxEmbedDepth: 4
allowTargetReplacement: true
`
	c, err := config.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Retention != apis.LRU {
		t.Fatalf("Retention = %v, want LRU", c.Retention)
	}
	if c.CacheCapacity != 64 {
		t.Fatalf("CacheCapacity = %d, want 64", c.CacheCapacity)
	}
	if c.CacheTTL != 90*time.Second {
		t.Fatalf("CacheTTL = %v, want 90s", c.CacheTTL)
	}
	if c.MaxEmbedDepth != 4 || !c.AllowTargetReplacement {
		t.Fatalf("unexpected config %+v", c)
	}
	if c.Logger != nil {
		t.Fatal("no log section, no logger")
	}
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	c, err := config.Parse([]byte("cache:\n  retention: ttl\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := config.NewConfig(config.WithRetention(apis.TTL))
	if c != want {
		t.Fatalf("Parse = %+v, want %+v", c, want)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"bad retention": "cache:\n  retention: lfu\n",
		"bad ttl":       "cache:\n  ttl: soon\n",
		"negative cap":  "cache:\n  capacity: -3\n",
		"bad level":     "log:\n  level: loud\n",
		"bad format":    "log:\n  format: xml\n",
		"bad yaml":      "cache: [",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := config.Parse([]byte(src)); err == nil {
				t.Fatalf("Parse(%q): expected error", src)
			}
		})
	}
}

func TestLoadAndEncodeRoundTrip(t *testing.T) {
	want := config.NewConfig(
		config.WithRetention(apis.TTL),
		config.WithCacheTTL(time.Minute),
		config.WithMaxEmbedDepth(5),
	)
	b, err := config.Encode(want)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(b), "retention: TTL") {
		t.Fatalf("Encode output missing retention:\n%s", b)
	}

	path := filepath.Join(t.TempDir(), "dpx.yaml")
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load(missing): expected error")
	}
}

func TestApplyInstallsLogger(t *testing.T) {
	var buf bytes.Buffer
	level := config.LogSection{Level: "debug", Format: "json"}
	c, err := config.Document{Log: &level}.Apply(config.DefaultConfig(), &buf)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if c.Logger == nil {
		t.Fatal("logger not installed")
	}
	c.Log().Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Fatalf("json debug line missing: %q", buf.String())
	}
}
