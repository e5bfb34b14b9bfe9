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

// Package metadata keeps annotations attached to types and their members.
//
// Go has no attribute syntax, so tooling that wants proxies to carry member
// metadata registers it here, keyed by (type, member). Type-level tags use
// the empty member name. Annotations are non-inheritable by default: they
// describe the member as declared on that type only. Inherited annotations
// also apply to types that promote the member through embedding.
//
// A member can additionally be sealed, which excludes it from interception.
package metadata

import (
	"errors"
	"maps"
	"reflect"
	"sort"
	"sync"

	uref "dirpx.dev/dpx/utils/reflect"
)

var (
	// ErrNilType is returned when a nil reflect.Type is provided.
	ErrNilType = errors.New("dpx(metadata): nil reflect.Type provided")
	// ErrEmptyKey is returned when an annotation has no key.
	ErrEmptyKey = errors.New("dpx(metadata): empty annotation key")
	// ErrConflictingAnnotation indicates an attempt to re-annotate a member
	// with a different value under the same key.
	ErrConflictingAnnotation = errors.New("dpx(metadata): conflicting annotation")
)

// Annotation is one key/value pair attached to a member.
type Annotation struct {
	Key       string
	Value     string
	Inherited bool
}

// Entry is a snapshot of one annotated member.
type Entry struct {
	Type        reflect.Type
	Member      string
	Sealed      bool
	Annotations []Annotation
}

type key struct {
	t      reflect.Type
	member string
}

// record is immutable once stored; writers replace it.
type record struct {
	sealed      bool
	annotations map[string]Annotation
}

// Registry is safe for concurrent use. Reads are lock-free.
type Registry struct {
	mu    sync.Mutex
	m     sync.Map // map[key]*record
	count int
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

var std = New()

// Default returns the process-wide registry.
func Default() *Registry {
	return std
}

// Annotate attaches annotations to member of t. Re-annotating with the same
// value is a no-op.
func (r *Registry) Annotate(t reflect.Type, member string, as ...Annotation) error {
	for _, a := range as {
		if a.Key == "" {
			return ErrEmptyKey
		}
	}
	return r.update(t, member, func(rec *record) error {
		for _, a := range as {
			if old, ok := rec.annotations[a.Key]; ok {
				if old == a {
					continue
				}
				return ErrConflictingAnnotation
			}
			rec.annotations[a.Key] = a
		}
		return nil
	})
}

// Seal excludes member of t from interception.
func (r *Registry) Seal(t reflect.Type, member string) error {
	return r.update(t, member, func(rec *record) error {
		rec.sealed = true
		return nil
	})
}

func (r *Registry) update(t reflect.Type, member string, fn func(*record) error) error {
	k, err := keyOf(t, member)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := &record{annotations: map[string]Annotation{}}
	old, existed := r.m.Load(k)
	if existed {
		prev := old.(*record)
		next.sealed = prev.sealed
		next.annotations = maps.Clone(prev.annotations)
	}
	if err := fn(next); err != nil {
		return err
	}
	r.m.Store(k, next)
	if !existed {
		r.count++
	}
	return nil
}

// Sealed reports whether member of t was sealed.
func (r *Registry) Sealed(t reflect.Type, member string) bool {
	rec, ok := r.load(t, member)
	return ok && rec.sealed
}

// Lookup returns the annotations of member on t, sorted by key.
func (r *Registry) Lookup(t reflect.Type, member string) []Annotation {
	rec, ok := r.load(t, member)
	if !ok {
		return nil
	}
	return sorted(rec.annotations)
}

// Collect returns the effective annotations of member as seen on t: those
// declared on t itself plus the inherited ones of from, the embedded type
// the member is promoted from (nil when declared on t). Declarations on t
// win.
func (r *Registry) Collect(t reflect.Type, member string, from reflect.Type) map[string]string {
	out := map[string]string{}
	if from != nil {
		if rec, ok := r.load(from, member); ok {
			for k, a := range rec.annotations {
				if a.Inherited {
					out[k] = a.Value
				}
			}
		}
	}
	if rec, ok := r.load(t, member); ok {
		for k, a := range rec.annotations {
			out[k] = a.Value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// TypeTags returns the type-level annotations of t.
func (r *Registry) TypeTags(t reflect.Type) map[string]string {
	return r.Collect(t, "", nil)
}

// Entries returns a snapshot for diagnostics/docs (order is unspecified).
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, 0, r.Count())
	r.m.Range(func(k, v any) bool {
		mk, rec := k.(key), v.(*record)
		entries = append(entries, Entry{
			Type:        mk.t,
			Member:      mk.member,
			Sealed:      rec.sealed,
			Annotations: sorted(rec.annotations),
		})
		return true
	})
	return entries
}

// Count returns the number of annotated members.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Reset clears all entries.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.Clear()
	r.count = 0
}

func (r *Registry) load(t reflect.Type, member string) (*record, bool) {
	if r == nil {
		return nil, false
	}
	k, err := keyOf(t, member)
	if err != nil {
		return nil, false
	}
	v, ok := r.m.Load(k)
	if !ok {
		return nil, false
	}
	return v.(*record), true
}

func keyOf(t reflect.Type, member string) (key, error) {
	if t == nil {
		return key{}, ErrNilType
	}
	nt, err := uref.Normalize(t, 0)
	if err != nil {
		return key{}, err
	}
	return key{t: nt, member: member}, nil
}

func sorted(m map[string]Annotation) []Annotation {
	out := make([]Annotation, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
