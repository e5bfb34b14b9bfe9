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
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/builder"
	"dirpx.dev/dpx/cache"
	"dirpx.dev/dpx/config"
	"dirpx.dev/dpx/proxy"
	"dirpx.dev/dpx/request"
	"dirpx.dev/dpx/synth"
	"dirpx.dev/dpx/telemetry"
)

// init publishes the default generator.
func init() {
	cfg := config.DefaultConfig()
	bld := builder.New()
	reg := bld.BuildRegistry(cfg, nil)
	s, err := assemble(nil, cfg, bld, reg, bld.BuildResolver(cfg, reg, nil), false, false, nil)
	if err != nil {
		panic(err)
	}
	st.Store(s)
}

// WithTelemetry attaches a telemetry.Recorder to the type cache and to
// every proxy.
func WithTelemetry() GeneratorOption {
	return func(o *generatorOptions) {
		o.cacheObserver = telemetry.Recorder{}
		o.observer = telemetry.Recorder{}
	}
}

// Default returns the process-wide generator.
func Default() *Generator {
	return st.Load().gen
}

// TypeFor returns the generated type for req from the default generator.
func TypeFor(ctx context.Context, req *request.Request) (*synth.Type, error) {
	return Default().TypeFor(ctx, req)
}

// ClassProxy builds a class proxy with the default generator.
func ClassProxy(ctx context.Context, target any, opts ...Option) (*proxy.Proxy, error) {
	return Default().ClassProxy(ctx, target, opts...)
}

// InterfaceProxyWithTarget builds an interface proxy with a target using the
// default generator.
func InterfaceProxyWithTarget(ctx context.Context, iface reflect.Type, target any, opts ...Option) (*proxy.Proxy, error) {
	return Default().InterfaceProxyWithTarget(ctx, iface, target, opts...)
}

// InterfaceProxyWithTargetInterface builds an interface proxy with a
// replaceable target using the default generator.
func InterfaceProxyWithTargetInterface(ctx context.Context, iface reflect.Type, target any, opts ...Option) (*proxy.Proxy, error) {
	return Default().InterfaceProxyWithTargetInterface(ctx, iface, target, opts...)
}

// InterfaceProxyWithoutTarget builds a target-less interface proxy using the
// default generator.
func InterfaceProxyWithoutTarget(ctx context.Context, iface reflect.Type, opts ...Option) (*proxy.Proxy, error) {
	return Default().InterfaceProxyWithoutTarget(ctx, iface, opts...)
}

// RegisterInterceptor adds a named interceptor factory to the global registry.
func RegisterInterceptor(name string, f apis.Factory) error {
	return st.Load().reg.Register(name, f)
}

// Cache returns the type cache of the default generator.
func Cache() *cache.Cache {
	return Default().Cache()
}

// Reset drops every type cached by the default generator. Registry entries
// and configuration are kept.
func Reset() {
	Default().Reset()
}

// SetAll explicitly sets all global state components.
//
// Nil arguments leave the corresponding component unchanged; a registry or
// resolver passed here is pinned. The default generator is rebuilt over the
// same type cache unless cache or composition settings change.
func SetAll(cfg *apis.Config, reg apis.Registry, res apis.Resolver, bld apis.Builder) error {
	buildMu.Lock()
	defer buildMu.Unlock()

	old := st.Load()
	ncfg := old.cfg
	if cfg != nil {
		ncfg = config.Normalize(*cfg)
	}
	nbld := old.bld
	if bld != nil {
		nbld = bld
	}

	nreg, preg := reg, reg != nil
	if nreg == nil {
		nreg = nbld.BuildRegistry(ncfg, old.reg)
	}
	nres, pres := res, res != nil
	if nres == nil {
		nres = nbld.BuildResolver(ncfg, nreg, old.res)
	}
	return swap(old.gen, ncfg, nbld, nreg, nres, preg, pres, old.gopts)
}

// Config returns the global configuration.
func Config() apis.Config {
	return st.Load().cfg
}

// SetConfig sets the global configuration and rebuilds the non-pinned
// layers. Registry entries are carried over.
func SetConfig(cfg apis.Config) error {
	buildMu.Lock()
	defer buildMu.Unlock()

	old := st.Load()
	cfg = config.Normalize(cfg)
	nreg := old.reg
	if !old.preg {
		nreg = old.bld.BuildRegistry(cfg, old.reg)
	}
	nres := old.res
	if !old.pres {
		nres = old.bld.BuildResolver(cfg, nreg, old.res)
	}
	return swap(old.gen, cfg, old.bld, nreg, nres, old.preg, old.pres, old.gopts)
}

// SetOptions replaces the options the default generator is built with. The
// new generator starts with an empty type cache.
func SetOptions(opts ...GeneratorOption) error {
	buildMu.Lock()
	defer buildMu.Unlock()

	old := st.Load()
	return swap(nil, old.cfg, old.bld, old.reg, old.res, old.preg, old.pres, opts)
}

// Registry returns the global interceptor registry.
func Registry() apis.Registry {
	return st.Load().reg
}

// SetRegistry sets and pins the global registry. The resolver is rebuilt
// over it unless pinned.
func SetRegistry(reg apis.Registry) error {
	if reg == nil {
		return nil
	}
	buildMu.Lock()
	defer buildMu.Unlock()

	old := st.Load()
	nres := old.res
	if !old.pres {
		nres = old.bld.BuildResolver(old.cfg, reg, old.res)
	}
	return swap(old.gen, old.cfg, old.bld, reg, nres, true, old.pres, old.gopts)
}

// Resolver returns the global interceptor resolver.
func Resolver() apis.Resolver {
	return st.Load().res
}

// SetResolver sets and pins the global resolver.
func SetResolver(res apis.Resolver) error {
	if res == nil {
		return nil
	}
	buildMu.Lock()
	defer buildMu.Unlock()

	old := st.Load()
	return swap(old.gen, old.cfg, old.bld, old.reg, res, old.preg, true, old.gopts)
}

// Builder returns the global builder.
func Builder() apis.Builder {
	return st.Load().bld
}

// SetBuilder sets the global builder and rebuilds the non-pinned layers.
func SetBuilder(b apis.Builder) error {
	if b == nil {
		return nil
	}
	buildMu.Lock()
	defer buildMu.Unlock()

	old := st.Load()
	nreg := old.reg
	if !old.preg {
		nreg = b.BuildRegistry(old.cfg, old.reg)
	}
	nres := old.res
	if !old.pres {
		nres = b.BuildResolver(old.cfg, nreg, old.res)
	}
	return swap(old.gen, old.cfg, b, nreg, nres, old.preg, old.pres, old.gopts)
}

// IsRegistryPinned reports whether the global registry is pinned.
func IsRegistryPinned() bool {
	return st.Load().preg
}

// UnpinRegistry lets later reconfigurations rebuild the registry again.
func UnpinRegistry() {
	buildMu.Lock()
	defer buildMu.Unlock()

	next := *st.Load()
	next.preg = false
	st.Store(&next)
}

// IsResolverPinned reports whether the global resolver is pinned.
func IsResolverPinned() bool {
	return st.Load().pres
}

// UnpinResolver lets later reconfigurations rebuild the resolver again.
func UnpinResolver() {
	buildMu.Lock()
	defer buildMu.Unlock()

	next := *st.Load()
	next.pres = false
	st.Store(&next)
}

// swap assembles and publishes a new state. buildMu must be held.
func swap(prev *Generator, cfg apis.Config, bld apis.Builder, reg apis.Registry, res apis.Resolver, preg, pres bool, gopts []GeneratorOption) error {
	s, err := assemble(prev, cfg, bld, reg, res, preg, pres, gopts)
	if err != nil {
		return err
	}
	st.Store(s)
	return nil
}

// assemble builds a state over the given layers. The type cache of prev is
// carried over when the settings it was built with are unchanged.
func assemble(prev *Generator, cfg apis.Config, bld apis.Builder, reg apis.Registry, res apis.Resolver, preg, pres bool, gopts []GeneratorOption) (*state, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}
	if res == nil {
		return nil, ErrNilResolver
	}
	opts := append([]GeneratorOption{WithBuilder(bld), WithRegistry(reg), WithResolver(res)}, gopts...)
	if prev != nil && sameTypeSettings(prev.cfg, config.Normalize(cfg)) {
		opts = append(opts, withTypesOf(prev))
	}
	gen, err := NewGenerator(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &state{
		cfg:   cfg,
		reg:   reg,
		res:   res,
		bld:   bld,
		gen:   gen,
		gopts: gopts,
		preg:  preg,
		pres:  pres,
	}, nil
}

// sameTypeSettings reports whether a and b build and retain types alike.
func sameTypeSettings(a, b apis.Config) bool {
	return a.Retention == b.Retention &&
		a.CacheCapacity == b.CacheCapacity &&
		a.CacheTTL == b.CacheTTL &&
		a.MaxEmbedDepth == b.MaxEmbedDepth &&
		a.Logger == b.Logger
}

// buildMu serializes writers (reconfigurations/swaps) so we never publish
// partially-built snapshots.
var buildMu sync.Mutex

// st is the global state.
var st atomic.Pointer[state]

// state is the global snapshot.
// Immutable snapshot published atomically via st.Store; never mutate fields
// of a published state. Writers create a new state and swap it atomically.
type state struct {
	// cfg is the global configuration.
	cfg apis.Config
	// reg is the global interceptor registry.
	reg apis.Registry
	// res is the global interceptor resolver.
	res apis.Resolver
	// bld is the global builder.
	bld apis.Builder
	// gen is the default generator, built over reg and res.
	gen *Generator
	// gopts are the options gen was built with.
	gopts []GeneratorOption
	// preg indicates whether the reg is pinned.
	preg bool
	// pres indicates whether the res is pinned.
	pres bool
}
