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

// Package serialize exports proxy instances as plain data and rebuilds
// equivalent instances from it.
//
// A State records what is needed to regenerate the proxy's type (kind,
// target, interfaces, mixins, base type, options), the names of its
// interceptors and the JSON form of its target and mixin values.
// Extensions registered with Register add their own entries.
package serialize

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/proxy"
	"dirpx.dev/dpx/request"
	"dirpx.dev/dpx/synth"
	uref "dirpx.dev/dpx/utils/reflect"
)

// Version is the current State format version.
const Version = 1

var (
	// ErrNotProxy is returned by Export for values that are not proxies.
	ErrNotProxy = errors.New("dpx(serialize): value is not a proxy")
	// ErrUnnamedInterceptor is returned when an interceptor does not
	// implement apis.Named.
	ErrUnnamedInterceptor = errors.New("dpx(serialize): interceptor has no name")
	// ErrUnknownType is returned when a type name cannot be resolved.
	ErrUnknownType = errors.New("dpx(serialize): unknown type")
	// ErrUnknownExtension is returned for extension entries nobody
	// registered.
	ErrUnknownExtension = errors.New("dpx(serialize): unknown extension")
	// ErrVersion is returned for states of another format version.
	ErrVersion = errors.New("dpx(serialize): unsupported state version")
	// ErrNotSerializable is returned by Capture for proxies whose type was
	// generated without serialization support.
	ErrNotSerializable = errors.New("dpx(serialize): proxy type is not serializable")
	// ErrDuplicateExtension is returned when an extension name is taken.
	ErrDuplicateExtension = errors.New("dpx(serialize): extension already registered")
)

// Value is a serialized target or mixin value.
type Value struct {
	// Interface is the mixin interface the value backs.
	Interface string `json:"interface,omitempty"`
	// Type is the dynamic type of the value; empty for nil.
	Type string `json:"type,omitempty"`
	// Data is the JSON form of the value.
	Data jsontext.Value `json:"data,omitzero"`
}

// State is the reconstruction state of one proxy instance.
type State struct {
	Version                int                       `json:"version"`
	ID                     string                    `json:"id"`
	Kind                   apis.Kind                 `json:"kind"`
	Target                 string                    `json:"target"`
	Interfaces             []string                  `json:"interfaces,omitempty"`
	Base                   string                    `json:"base,omitempty"`
	AllowTargetReplacement bool                      `json:"allowTargetReplacement,omitempty"`
	Interceptors           []string                  `json:"interceptors,omitempty"`
	TargetValue            *Value                    `json:"targetValue,omitempty"`
	Mixins                 []Value                   `json:"mixins,omitempty"`
	Extra                  map[string]jsontext.Value `json:"extra,omitempty"`
}

// Extension adds its own entry to captured states and applies it on
// restore.
type Extension struct {
	Name    string
	Capture func(px *proxy.Proxy) (any, error)
	Restore func(px *proxy.Proxy, data jsontext.Value) error
}

var extensions sync.Map // map[string]Extension

// Register adds a process-wide extension.
func Register(ext Extension) error {
	if ext.Name == "" || ext.Capture == nil || ext.Restore == nil {
		return fmt.Errorf("dpx(serialize): incomplete extension %q", ext.Name)
	}
	if _, loaded := extensions.LoadOrStore(ext.Name, ext); loaded {
		return fmt.Errorf("%w: %s", ErrDuplicateExtension, ext.Name)
	}
	return nil
}

// Unregister removes an extension. It is meant for tests.
func Unregister(name string) {
	extensions.Delete(name)
}

// Capture records the state of px. Its type must have been generated with
// serialization support, which Restore requests again.
func Capture(px *proxy.Proxy) (State, error) {
	t := px.Type()
	if !t.Serializable() {
		return State{}, fmt.Errorf("%w: %s", ErrNotSerializable, t)
	}
	st := State{
		Version:                Version,
		ID:                     px.ID().String(),
		Kind:                   t.Kind(),
		Target:                 uref.Name(t.Target()),
		Base:                   uref.Name(t.Base()),
		AllowTargetReplacement: t.AllowsTargetReplacement(),
	}
	for _, it := range t.Interfaces() {
		st.Interfaces = append(st.Interfaces, uref.Name(it))
	}
	for _, ic := range px.ProxyInterceptors() {
		n, ok := ic.(apis.Named)
		if !ok {
			return State{}, fmt.Errorf("%w: %T", ErrUnnamedInterceptor, ic)
		}
		st.Interceptors = append(st.Interceptors, n.InterceptorName())
	}
	if t.Kind().HasTarget() {
		v, err := encode(px.ProxyTarget())
		if err != nil {
			return State{}, fmt.Errorf("dpx(serialize): target: %w", err)
		}
		st.TargetValue = &v
	}
	for _, mt := range t.Mixins() {
		mv, _ := px.Mixin(mt)
		v, err := encode(mv)
		if err != nil {
			return State{}, fmt.Errorf("dpx(serialize): mixin %v: %w", mt, err)
		}
		v.Interface = uref.Name(mt)
		st.Mixins = append(st.Mixins, v)
	}

	var exts []Extension
	extensions.Range(func(_, v any) bool {
		exts = append(exts, v.(Extension))
		return true
	})
	sort.Slice(exts, func(i, j int) bool { return exts[i].Name < exts[j].Name })
	for _, ext := range exts {
		v, err := ext.Capture(px)
		if err != nil {
			return State{}, fmt.Errorf("dpx(serialize): extension %s: %w", ext.Name, err)
		}
		if v == nil {
			continue
		}
		b, err := json.Marshal(v, json.Deterministic(true))
		if err != nil {
			return State{}, fmt.Errorf("dpx(serialize): extension %s: %w", ext.Name, err)
		}
		if st.Extra == nil {
			st.Extra = map[string]jsontext.Value{}
		}
		st.Extra[ext.Name] = b
	}
	return st, nil
}

// Export captures and marshals self, which must be a *proxy.Proxy.
func Export(self any) ([]byte, error) {
	px, ok := self.(*proxy.Proxy)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotProxy, self)
	}
	st, err := Capture(px)
	if err != nil {
		return nil, err
	}
	return Marshal(st)
}

// Marshal renders st as deterministic JSON.
func Marshal(st State) ([]byte, error) {
	return json.Marshal(st, json.Deterministic(true))
}

// MarshalIndent renders st as indented, deterministic JSON.
func MarshalIndent(st State) ([]byte, error) {
	return json.Marshal(st, json.Deterministic(true), jsontext.WithIndent("  "))
}

// Unmarshal parses a State.
func Unmarshal(b []byte) (State, error) {
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return State{}, err
	}
	if st.Version != Version {
		return State{}, fmt.Errorf("%w: %d", ErrVersion, st.Version)
	}
	return st, nil
}

// Env provides what Restore needs from its caller.
type Env struct {
	// Types resolves type names as produced by Capture.
	Types map[string]reflect.Type
	// Resolver turns interceptor names into interceptors.
	Resolver apis.Resolver
	// Build returns the generated type for a request, normally through
	// the type cache.
	Build func(ctx context.Context, req *request.Request) (*synth.Type, error)
	// Hook and Selector are applied to the rebuilt proxy.
	Hook     apis.Hook
	Selector apis.Selector
	// Observer is attached to the rebuilt proxy.
	Observer proxy.Observer
}

// Types indexes ts by the names Capture records.
func Types(ts ...reflect.Type) map[string]reflect.Type {
	out := make(map[string]reflect.Type, len(ts))
	for _, t := range ts {
		if t != nil {
			out[uref.Name(t)] = t
		}
	}
	return out
}

// Restore rebuilds a proxy equivalent to the one st was captured from.
func Restore(ctx context.Context, st State, env Env) (*proxy.Proxy, error) {
	if st.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, st.Version)
	}
	if env.Build == nil {
		return nil, errors.New("dpx(serialize): Env.Build is required")
	}
	target, err := env.lookup(st.Target)
	if err != nil {
		return nil, err
	}
	opts := []request.Option{
		request.WithTargetReplacement(st.AllowTargetReplacement),
		request.WithSerializable(true),
		request.WithHook(env.Hook),
	}
	for _, n := range st.Interfaces {
		it, err := env.lookup(n)
		if err != nil {
			return nil, err
		}
		opts = append(opts, request.WithInterfaces(it))
	}
	if st.Base != "" {
		bt, err := env.lookup(st.Base)
		if err != nil {
			return nil, err
		}
		opts = append(opts, request.WithBaseType(bt))
	}
	mixins := make(map[reflect.Type]any, len(st.Mixins))
	for _, mv := range st.Mixins {
		mt, err := env.lookup(mv.Interface)
		if err != nil {
			return nil, err
		}
		v, err := env.decode(mv)
		if err != nil {
			return nil, fmt.Errorf("dpx(serialize): mixin %s: %w", mv.Interface, err)
		}
		mixins[mt] = v
		opts = append(opts, request.WithMixins(mt))
	}
	req, err := request.New(st.Kind, target, opts...)
	if err != nil {
		return nil, err
	}
	typ, err := env.Build(ctx, req)
	if err != nil {
		return nil, err
	}

	var ics []apis.Interceptor
	if len(st.Interceptors) > 0 {
		if env.Resolver == nil {
			return nil, &apis.ResolutionError{Ref: st.Interceptors[0], Err: apis.ErrUnresolved}
		}
		refs := make([]any, len(st.Interceptors))
		for i, n := range st.Interceptors {
			refs[i] = n
		}
		if ics, err = env.Resolver.ResolveAll(refs...); err != nil {
			return nil, err
		}
	}
	var tv any
	if st.TargetValue != nil {
		if tv, err = env.decode(*st.TargetValue); err != nil {
			return nil, fmt.Errorf("dpx(serialize): target: %w", err)
		}
	}
	px, err := proxy.New(typ, proxy.Options{
		Target:       tv,
		Interceptors: ics,
		Mixins:       mixins,
		Selector:     env.Selector,
		Observer:     env.Observer,
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(st.Extra))
	for n := range st.Extra {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		v, ok := extensions.Load(n)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownExtension, n)
		}
		if err := v.(Extension).Restore(px, st.Extra[n]); err != nil {
			return nil, fmt.Errorf("dpx(serialize): extension %s: %w", n, err)
		}
	}
	return px, nil
}

func (env Env) lookup(name string) (reflect.Type, error) {
	t, ok := env.Types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return t, nil
}

func encode(v any) (Value, error) {
	if v == nil {
		return Value{}, nil
	}
	b, err := json.Marshal(v, json.Deterministic(true))
	if err != nil {
		return Value{}, err
	}
	return Value{Type: uref.Name(reflect.TypeOf(v)), Data: b}, nil
}

func (env Env) decode(v Value) (any, error) {
	if v.Type == "" {
		return nil, nil
	}
	t, err := env.lookup(v.Type)
	if err != nil {
		return nil, err
	}
	if t.Kind() == reflect.Pointer {
		p := reflect.New(t.Elem())
		if len(v.Data) > 0 {
			if err := json.Unmarshal(v.Data, p.Interface()); err != nil {
				return nil, err
			}
		}
		return p.Interface(), nil
	}
	p := reflect.New(t)
	if len(v.Data) > 0 {
		if err := json.Unmarshal(v.Data, p.Interface()); err != nil {
			return nil, err
		}
	}
	return p.Elem().Interface(), nil
}
