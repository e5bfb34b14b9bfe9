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

package builder

import (
	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/registry"
	"dirpx.dev/dpx/resolver"
	"dirpx.dev/dpx/strategy"
)

// Option configures the builder.
type Option func(*builder)

// WithCallback appends a callback strategy after the built-in ones.
func WithCallback(fn strategy.Callback) Option {
	return func(b *builder) { b.callback = fn }
}

// New creates and returns a new instance of an apis.Builder.
func New(opts ...Option) apis.Builder {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// builder carries the optional callback used as the last resolution step.
type builder struct {
	callback strategy.Callback
}

// BuildRegistry builds and returns a new apis.Registry based on the provided configuration
// and pre-existing registry. If a pre-existing registry is provided, its entries are copied
// into the new registry.
func (b *builder) BuildRegistry(cfg apis.Config, preg apis.Registry) apis.Registry {
	nreg := registry.New(cfg)
	if preg != nil {
		for _, e := range preg.Entries() {
			_ = nreg.Register(e.Name, e.Factory)
		}
	}
	return nreg
}

// BuildResolver builds the resolution chain over reg:
// instance, function, registry name, type instantiation, then the callback.
func (b *builder) BuildResolver(_ apis.Config, reg apis.Registry, _ apis.Resolver) apis.Resolver {
	strats := []apis.Strategy{
		strategy.NewInstanceStrategy(),
		strategy.NewFuncStrategy(),
		strategy.NewRegistryStrategy(reg),
		strategy.NewTypeStrategy(),
	}
	if b.callback != nil {
		strats = append(strats, strategy.NewCallbackStrategy(b.callback))
	}
	return resolver.New(strats...)
}
