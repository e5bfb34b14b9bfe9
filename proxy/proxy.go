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

// Package proxy builds proxy instances from generated types and dispatches
// calls on them.
//
// A *Proxy is bound to one generated type, an interceptor list, its mixin
// values and (for target-backed kinds) a target. Calls are made by member
// name through Invoke or Call, or through typed facades filled by Bind.
// Intercepted members run an invocation.Invocation per call; forwarding
// and skipped members call the backing value directly.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/synth"
)

var (
	// ErrNilType is returned by New for a nil generated type.
	ErrNilType = errors.New("dpx(proxy): nil generated type")
	// ErrTargetRequired is returned when a target-backed interface proxy
	// gets no target.
	ErrTargetRequired = errors.New("dpx(proxy): target required")
	// ErrUnexpectedTarget is returned when a target-omitted proxy gets one.
	ErrUnexpectedTarget = errors.New("dpx(proxy): target-omitted proxies take no target")
	// ErrTargetType is returned for targets of the wrong type.
	ErrTargetType = errors.New("dpx(proxy): target has the wrong type")
	// ErrMissingMixin is returned when a mixin value is missing.
	ErrMissingMixin = errors.New("dpx(proxy): missing mixin value")
	// ErrMixinType is returned for mixin values that do not implement their
	// interface.
	ErrMixinType = errors.New("dpx(proxy): mixin value does not implement its interface")
	// ErrNilInterceptor is returned for nil entries in the interceptor list.
	ErrNilInterceptor = errors.New("dpx(proxy): nil interceptor")
	// ErrNoSuchMember is returned for calls to unknown members.
	ErrNoSuchMember = errors.New("dpx(proxy): no such member")
	// ErrArgumentCount is returned for calls with the wrong arity.
	ErrArgumentCount = errors.New("dpx(proxy): wrong number of arguments")
	// ErrArgumentType is returned for arguments of the wrong type.
	ErrArgumentType = errors.New("dpx(proxy): argument has the wrong type")
	// ErrNotReplaceable is returned by SetTarget on proxies without target
	// replacement.
	ErrNotReplaceable = errors.New("dpx(proxy): target is not replaceable")
)

// Observer is notified after every call. Implementations must be safe for
// concurrent use.
type Observer interface {
	Invoked(ctx context.Context, t *synth.Type, member string, policy apis.Policy, took time.Duration, err error)
}

// Options configure a proxy instance.
type Options struct {
	// Target is the backing target. Class proxies allocate a fresh one when
	// it is nil; target-omitted proxies must not get one.
	Target any
	// Interceptors run in order for every intercepted member.
	Interceptors []apis.Interceptor
	// Mixins maps every mixin interface of the type to its value.
	Mixins map[reflect.Type]any
	// Selector picks interceptors per member. It runs once per member at
	// construction.
	Selector apis.Selector
	// Observer is notified after every call.
	Observer Observer
	// Logger receives debug output. nil means slog.Default().
	Logger *slog.Logger
}

type targetRef struct {
	v reflect.Value
}

// Proxy is a proxy instance. It is safe for concurrent use; the target is
// its only mutable state.
type Proxy struct {
	id           uuid.UUID
	typ          *synth.Type
	interceptors []apis.Interceptor
	chains       map[string][]apis.Interceptor
	fields       map[string]reflect.Value
	mixins       map[reflect.Type]any
	target       atomic.Pointer[targetRef]
	observer     Observer
	log          *slog.Logger
}

var _ apis.Diagnostics = (*Proxy)(nil)

// New builds a proxy instance of t.
func New(t *synth.Type, opts Options) (*Proxy, error) {
	if t == nil {
		return nil, ErrNilType
	}
	p := &Proxy{
		id:           uuid.New(),
		typ:          t,
		interceptors: slices.Clone(opts.Interceptors),
		chains:       map[string][]apis.Interceptor{},
		fields:       map[string]reflect.Value{},
		mixins:       map[reflect.Type]any{},
		observer:     opts.Observer,
		log:          opts.Logger,
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	for i, ic := range p.interceptors {
		if ic == nil {
			return nil, fmt.Errorf("%w at %d", ErrNilInterceptor, i)
		}
	}

	target, err := initialTarget(t, opts.Target)
	if err != nil {
		return nil, err
	}
	p.target.Store(&targetRef{v: target})

	for _, f := range t.Fields() {
		switch f.Kind {
		case synth.FieldBase:
			p.fields[f.Name] = allocate(f.Type)
		case synth.FieldSelf:
			p.fields[f.Name] = reflect.ValueOf(p)
		case synth.FieldMixin:
			mt := f.Type
			v, ok := opts.Mixins[mt]
			if !ok {
				return nil, fmt.Errorf("%w: %v", ErrMissingMixin, mt)
			}
			rv := reflect.ValueOf(v)
			if v != nil && !rv.Type().Implements(mt) {
				return nil, fmt.Errorf("%w: %T does not implement %v", ErrMixinType, v, mt)
			}
			if v == nil && mt.NumMethod() > 0 {
				return nil, fmt.Errorf("%w: nil value for %v", ErrMissingMixin, mt)
			}
			p.fields[f.Name] = rv
			p.mixins[mt] = v
		}
	}

	for _, m := range t.Members() {
		if !m.Intercepted() {
			continue
		}
		chain := p.interceptors
		if opts.Selector != nil {
			chain = slices.Clone(opts.Selector.SelectInterceptors(m.Descriptor.Source(), m.Descriptor.Method(), slices.Clone(p.interceptors)))
		}
		p.chains[m.Name()] = chain
	}
	return p, nil
}

func initialTarget(t *synth.Type, target any) (reflect.Value, error) {
	switch t.Kind() {
	case apis.ClassProxy:
		if target == nil {
			return allocate(t.Target()), nil
		}
		rv := reflect.ValueOf(target)
		if !rv.Type().AssignableTo(t.Target()) {
			return reflect.Value{}, fmt.Errorf("%w: %T is not %v", ErrTargetType, target, t.Target())
		}
		return rv, nil
	case apis.InterfaceWithTarget:
		if target == nil {
			return reflect.Value{}, ErrTargetRequired
		}
		rv := reflect.ValueOf(target)
		if !rv.Type().Implements(t.Target()) {
			return reflect.Value{}, fmt.Errorf("%w: %T does not implement %v", ErrTargetType, target, t.Target())
		}
		return rv, nil
	default:
		if target != nil {
			return reflect.Value{}, ErrUnexpectedTarget
		}
		return reflect.Value{}, nil
	}
}

// allocate returns a new zero instance of t: a fresh *T for pointer types,
// a zero T otherwise.
func allocate(t reflect.Type) reflect.Value {
	if t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem())
	}
	return reflect.New(t).Elem()
}

// ID returns the instance ID.
func (p *Proxy) ID() uuid.UUID { return p.id }

// Type returns the generated type of p.
func (p *Proxy) Type() *synth.Type { return p.typ }

// ProxyTarget implements apis.Diagnostics.
func (p *Proxy) ProxyTarget() any {
	v := p.target.Load().v
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

// ProxyInterceptors implements apis.Diagnostics.
func (p *Proxy) ProxyInterceptors() []apis.Interceptor {
	return slices.Clone(p.interceptors)
}

// Interceptors returns the interceptors selected for member name.
func (p *Proxy) Interceptors(name string) []apis.Interceptor {
	return slices.Clone(p.chains[name])
}

// Mixin returns the value backing mixin interface t.
func (p *Proxy) Mixin(t reflect.Type) (any, bool) {
	v, ok := p.mixins[t]
	return v, ok
}

// Base returns the base instance of an interface proxy, or nil.
func (p *Proxy) Base() any {
	v, ok := p.fields[synth.BaseField]
	if !ok {
		return nil
	}
	return v.Interface()
}

// SetTarget permanently replaces the target of a proxy built with target
// replacement.
func (p *Proxy) SetTarget(target any) error {
	if !p.typ.AllowsTargetReplacement() || !p.typ.Kind().HasTarget() {
		return ErrNotReplaceable
	}
	if target == nil {
		return fmt.Errorf("%w: nil", ErrTargetType)
	}
	rv := reflect.ValueOf(target)
	if !rv.Type().AssignableTo(p.targetType()) {
		return fmt.Errorf("%w: %T is not %v", ErrTargetType, target, p.typ.Target())
	}
	p.target.Store(&targetRef{v: rv})
	return nil
}

func (p *Proxy) targetType() reflect.Type {
	if f, ok := p.typ.Field(synth.TargetField); ok {
		return f.Type
	}
	return p.typ.Target()
}

// receiver returns the current value of field name.
func (p *Proxy) receiver(name string) reflect.Value {
	switch name {
	case "":
		return reflect.Value{}
	case synth.TargetField:
		return p.target.Load().v
	default:
		return p.fields[name]
	}
}

// String implements fmt.Stringer.
func (p *Proxy) String() string {
	return fmt.Sprintf("%s(%s)", p.typ.Name(), p.id)
}
