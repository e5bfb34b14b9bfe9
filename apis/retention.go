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
	"fmt"
	"strings"
)

// Retention controls how the type cache keeps generated types over time.
//
// Generated types are identity-bearing: two proxies built from one request
// signature share one type for as long as that type stays cached. Evicting
// a type only means a later request synthesizes a fresh one; proxies that
// already reference the old type keep working.
type Retention int

const (
	// Unbounded keeps every generated type for the life of the cache.
	Unbounded Retention = iota

	// LRU keeps at most Config.CacheCapacity types and evicts the least
	// recently requested one when full.
	LRU

	// TTL evicts types that were not requested for Config.CacheTTL.
	TTL
)

// String returns a stable, human-readable token for r.
func (r Retention) String() string {
	switch r {
	case Unbounded:
		return "Unbounded"
	case LRU:
		return "LRU"
	case TTL:
		return "TTL"
	default:
		return fmt.Sprintf("Unknown(%d)", r)
	}
}

// ParseRetention parses a retention token case-insensitively, ignoring
// surrounding whitespace.
func ParseRetention(s string) (Retention, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Unbounded, fmt.Errorf("dpx(cache): empty retention")
	}

	switch strings.ToUpper(trimmed) {
	case "UNBOUNDED", "NONE":
		return Unbounded, nil
	case "LRU":
		return LRU, nil
	case "TTL":
		return TTL, nil
	default:
		return Unbounded, fmt.Errorf("dpx(cache): unknown retention %q", s)
	}
}

// MustParseRetention is like ParseRetention but panics on error.
func MustParseRetention(s string) Retention {
	r, err := ParseRetention(s)
	if err != nil {
		panic(err)
	}
	return r
}

// MarshalText implements encoding.TextMarshaler.
func (r Retention) MarshalText() ([]byte, error) {
	switch r {
	case Unbounded, LRU, TTL:
		return []byte(r.String()), nil
	default:
		return nil, fmt.Errorf("dpx(cache): cannot marshal unknown retention %d", r)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Retention) UnmarshalText(text []byte) error {
	v, err := ParseRetention(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
