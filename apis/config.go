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

package apis

import (
	"log/slog"
	"time"
)

// Config carries engine knobs. It is passed by value and should be treated
// as immutable by implementations.
type Config struct {
	// Retention selects how the type cache keeps generated types.
	Retention Retention

	// CacheCapacity bounds the number of cached types under LRU retention.
	CacheCapacity int

	// CacheTTL is the idle lifetime of a cached type under TTL retention.
	CacheTTL time.Duration

	// MaxEmbedDepth limits how deep collectors look through embedded struct
	// fields when locating the original slot of a promoted method.
	MaxEmbedDepth int

	// AllowTargetReplacement is the default for requests that do not set
	// it explicitly.
	AllowTargetReplacement bool

	// Logger receives debug/warn output from generation. nil means
	// slog.Default().
	Logger *slog.Logger
}

// Log returns the configured logger or slog.Default().
func (c Config) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
