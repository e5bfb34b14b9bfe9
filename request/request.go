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

// Package request describes what to generate: the proxy kind, the target
// type, additional interfaces, mixins and the options that shape the
// generated type. A Request is immutable once built and its canonical Key
// is what the type cache is keyed by.
package request

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"dirpx.dev/dpx/apis"
	uref "dirpx.dev/dpx/utils/reflect"
)

var (
	// ErrNilTarget is returned when no target type is given.
	ErrNilTarget = errors.New("dpx(request): nil target type")
	// ErrTargetKind is returned when the target does not fit the kind.
	ErrTargetKind = errors.New("dpx(request): target type does not fit the proxy kind")
	// ErrNotInterface is returned for additional interfaces or mixins that
	// are not interface types.
	ErrNotInterface = errors.New("dpx(request): not an interface type")
	// ErrDuplicateMixin is returned when a mixin interface is given twice.
	ErrDuplicateMixin = errors.New("dpx(request): duplicate mixin")
	// ErrBaseType is returned for an unusable base type.
	ErrBaseType = errors.New("dpx(request): invalid base type")
)

// Request is an immutable proxy generation request.
type Request struct {
	kind       apis.Kind
	target     reflect.Type
	interfaces []reflect.Type
	mixins     []reflect.Type
	base       reflect.Type
	hook       apis.Hook
	selector   apis.Selector
	replace    bool
	serialize  bool
	tags       map[string]string
	key        string
}

type options struct {
	interfaces []reflect.Type
	mixins     []reflect.Type
	base       reflect.Type
	hook       apis.Hook
	selector   apis.Selector
	replace    bool
	serialize  bool
	tags       map[string]string
}

// Option configures a Request.
type Option func(*options)

// WithInterfaces adds additional interfaces. Duplicates are ignored.
func WithInterfaces(ts ...reflect.Type) Option {
	return func(o *options) { o.interfaces = append(o.interfaces, ts...) }
}

// WithMixins adds mixin interfaces.
func WithMixins(ts ...reflect.Type) Option {
	return func(o *options) { o.mixins = append(o.mixins, ts...) }
}

// WithBaseType sets the base type of an interface proxy.
func WithBaseType(t reflect.Type) Option {
	return func(o *options) { o.base = t }
}

// WithHook sets the inclusion hook. nil intercepts every member.
func WithHook(h apis.Hook) Option {
	return func(o *options) { o.hook = h }
}

// WithSelector sets the interceptor selector handed to proxy instances.
// It does not affect the generated type.
func WithSelector(s apis.Selector) Option {
	return func(o *options) { o.selector = s }
}

// WithTargetReplacement allows invocations to replace their target.
func WithTargetReplacement(allow bool) Option {
	return func(o *options) { o.replace = allow }
}

// WithSerializable adds serialization support to the generated type.
func WithSerializable(on bool) Option {
	return func(o *options) { o.serialize = on }
}

// WithTag adds a type-level tag to the generated type. Tags registered on
// the target type in the metadata registry are added by the composer.
func WithTag(key, value string) Option {
	return func(o *options) {
		if o.tags == nil {
			o.tags = map[string]string{}
		}
		o.tags[key] = value
	}
}

// New validates and builds a Request. Failures are *apis.GenerationError
// wrapping apis.ErrInvalidRequest.
func New(kind apis.Kind, target reflect.Type, opts ...Option) (*Request, error) {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	r := &Request{
		kind:       kind,
		target:     target,
		interfaces: uref.SortTypes(o.interfaces),
		base:       o.base,
		hook:       o.hook,
		selector:   o.selector,
		replace:    o.replace,
		serialize:  o.serialize,
		tags:       maps.Clone(o.tags),
	}
	if err := r.validate(o.mixins); err != nil {
		return nil, &apis.GenerationError{Type: target, Err: fmt.Errorf("%w: %w", apis.ErrInvalidRequest, err)}
	}
	r.mixins = uref.SortTypes(o.mixins)
	r.key = r.canonical()
	return r, nil
}

// MustNew is like New but panics on error.
func MustNew(kind apis.Kind, target reflect.Type, opts ...Option) *Request {
	r, err := New(kind, target, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Request) validate(mixins []reflect.Type) error {
	if r.target == nil {
		return ErrNilTarget
	}
	switch r.kind {
	case apis.ClassProxy:
		if r.target.Kind() == reflect.Interface {
			return fmt.Errorf("%w: class proxy of interface %v", ErrTargetKind, r.target)
		}
		if _, err := uref.Normalize(r.target, 0); err != nil {
			return fmt.Errorf("%w: %v: %w", ErrTargetKind, r.target, err)
		}
		if r.base != nil {
			return fmt.Errorf("%w: class proxies have no base type", ErrBaseType)
		}
	case apis.InterfaceWithTarget, apis.InterfaceWithoutTarget:
		if r.target.Kind() != reflect.Interface {
			return fmt.Errorf("%w: interface proxy of %v", ErrTargetKind, r.target)
		}
		if r.base != nil && !allocatable(r.base) {
			return fmt.Errorf("%w: %v", ErrBaseType, r.base)
		}
	default:
		return fmt.Errorf("%w: unknown kind %s", ErrTargetKind, r.kind)
	}
	for _, t := range r.interfaces {
		if t.Kind() != reflect.Interface {
			return fmt.Errorf("%w: additional interface %v", ErrNotInterface, t)
		}
	}
	seen := make(map[reflect.Type]struct{}, len(mixins))
	for _, t := range mixins {
		if t == nil || t.Kind() != reflect.Interface {
			return fmt.Errorf("%w: mixin %v", ErrNotInterface, t)
		}
		if _, dup := seen[t]; dup {
			return fmt.Errorf("%w: %v", ErrDuplicateMixin, t)
		}
		seen[t] = struct{}{}
	}
	return nil
}

// allocatable reports whether the proxy can allocate a t: a named struct
// or a pointer to one.
func allocatable(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && t.Name() != ""
}

// Kind returns the proxy kind.
func (r *Request) Kind() apis.Kind { return r.kind }

// Target returns the target type.
func (r *Request) Target() reflect.Type { return r.target }

// Interfaces returns the additional interfaces, sorted and deduplicated.
func (r *Request) Interfaces() []reflect.Type { return slices.Clone(r.interfaces) }

// Mixins returns the mixin interfaces, sorted.
func (r *Request) Mixins() []reflect.Type { return slices.Clone(r.mixins) }

// BaseType returns the base type of an interface proxy, or nil.
func (r *Request) BaseType() reflect.Type { return r.base }

// Hook returns the inclusion hook, or nil.
func (r *Request) Hook() apis.Hook { return r.hook }

// Selector returns the interceptor selector, or nil.
func (r *Request) Selector() apis.Selector { return r.selector }

// AllowTargetReplacement reports whether targets may be replaced.
func (r *Request) AllowTargetReplacement() bool { return r.replace }

// Serializable reports whether serialization support was requested.
func (r *Request) Serializable() bool { return r.serialize }

// Tags returns the request's type-level tags.
func (r *Request) Tags() map[string]string { return maps.Clone(r.tags) }

// Key returns the canonical cache key. Requests with equal keys produce the
// same generated type.
func (r *Request) Key() string { return r.key }

// Fingerprint returns the xxh3 hash of Key.
func (r *Request) Fingerprint() uint64 { return xxh3.HashString(r.key) }

// String returns the canonical key.
func (r *Request) String() string { return r.key }

// canonical renders every shape-affecting element of the request. The
// selector is left out: it is applied per instance.
func (r *Request) canonical() string {
	var b strings.Builder
	b.WriteString(r.kind.String())
	b.WriteString("|target=")
	b.WriteString(uref.Name(r.target))
	writeTypes(&b, "|interfaces=", r.interfaces)
	writeTypes(&b, "|mixins=", r.mixins)
	b.WriteString("|base=")
	b.WriteString(uref.Name(r.base))
	b.WriteString("|replace=")
	b.WriteString(strconv.FormatBool(r.replace))
	b.WriteString("|serializable=")
	b.WriteString(strconv.FormatBool(r.serialize))
	b.WriteString("|hook=")
	b.WriteString(HookKey(r.hook))
	if len(r.tags) > 0 {
		keys := slices.Sorted(maps.Keys(r.tags))
		b.WriteString("|tags=")
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(r.tags[k])
		}
	}
	return b.String()
}

func writeTypes(b *strings.Builder, label string, ts []reflect.Type) {
	b.WriteString(label)
	for i, t := range ts {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(uref.Name(t))
	}
}
