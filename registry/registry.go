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

package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"dirpx.dev/dpx/apis"
)

var (
	// ErrNilFactory is returned when a nil factory is provided.
	ErrNilFactory = errors.New("dpx(registry): nil interceptor factory provided")
	// ErrEmptyName is returned when an empty name is provided.
	ErrEmptyName = errors.New("dpx(registry): empty name provided")
	// ErrConflictingRegistration indicates an attempt to register a name
	// twice.
	ErrConflictingRegistration = errors.New("dpx(registry): conflicting interceptor registration")
)

// New constructs an empty interceptor Registry.
func New(_ apis.Config) apis.Registry {
	return &registry{}
}

// registry is a Registry backed by sync.Map.
type registry struct {
	// mu guards write-side consistency and counter
	mu sync.Mutex
	// m maps interceptor names to factories.
	m sync.Map // map[string]apis.Factory
	// count tracks the number of registered entries.
	count int
}

// Register associates name with f. Names are trimmed of surrounding space.
func (r *registry) Register(name string, f apis.Factory) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if f == nil {
		return ErrNilFactory
	}

	// Fast read path.
	if _, ok := r.m.Load(name); ok {
		return fmt.Errorf("%w: %q", ErrConflictingRegistration, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under lock in case another goroutine stored meanwhile.
	if _, ok := r.m.Load(name); ok {
		return fmt.Errorf("%w: %q", ErrConflictingRegistration, name)
	}
	r.m.Store(name, f)
	r.count++
	return nil
}

// Lookup returns the factory registered under name.
func (r *registry) Lookup(name string) (apis.Factory, bool) {
	if v, ok := r.m.Load(strings.TrimSpace(name)); ok {
		return v.(apis.Factory), true
	}
	return nil, false
}

// Entries returns a snapshot sorted by name.
func (r *registry) Entries() []apis.Entry {
	entries := make([]apis.Entry, 0, r.Count())
	r.m.Range(func(key, value any) bool {
		entries = append(entries, apis.Entry{
			Name:    key.(string),
			Factory: value.(apis.Factory),
		})
		return true
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Count returns the number of registered entries.
func (r *registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Reset clears all registered entries.
func (r *registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.Clear()
	r.count = 0
}
