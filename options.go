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

package dpx

import (
	"reflect"

	"dirpx.dev/dpx/apis"
)

type mixin struct {
	iface reflect.Type
	impl  any
}

type options struct {
	interfaces   []reflect.Type
	mixins       []mixin
	interceptors []any
	hook         apis.Hook
	selector     apis.Selector
	base         reflect.Type
	replace      *bool
	serializable bool
	tags         [][2]string
}

// Option configures a single proxy request.
type Option func(*options)

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithInterfaces adds interfaces the proxy implements besides its target.
func WithInterfaces(ts ...reflect.Type) Option {
	return func(o *options) { o.interfaces = append(o.interfaces, ts...) }
}

// WithMixin adds a mixin: the members of iface are implemented by impl.
// A nil impl is allowed for interfaces without methods.
func WithMixin(iface reflect.Type, impl any) Option {
	return func(o *options) { o.mixins = append(o.mixins, mixin{iface: iface, impl: impl}) }
}

// Mixin is WithMixin for a statically known interface I.
func Mixin[I any](impl I) Option {
	return WithMixin(reflect.TypeFor[I](), impl)
}

// WithInterceptors appends interceptor references: instances, functions,
// registered names or types.
func WithInterceptors(refs ...any) Option {
	return func(o *options) { o.interceptors = append(o.interceptors, refs...) }
}

// WithHook sets the inclusion hook.
func WithHook(h apis.Hook) Option {
	return func(o *options) { o.hook = h }
}

// WithSelector sets the interceptor selector.
func WithSelector(s apis.Selector) Option {
	return func(o *options) { o.selector = s }
}

// WithBaseType sets the base type of an interface proxy.
func WithBaseType(t reflect.Type) Option {
	return func(o *options) { o.base = t }
}

// WithTargetReplacement overrides the configured target replacement default.
func WithTargetReplacement(allow bool) Option {
	return func(o *options) { o.replace = &allow }
}

// WithSerializable adds state export to the proxy.
func WithSerializable(on bool) Option {
	return func(o *options) { o.serializable = on }
}

// WithTag attaches a type-level tag.
func WithTag(key, value string) Option {
	return func(o *options) { o.tags = append(o.tags, [2]string{key, value}) }
}
