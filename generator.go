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
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"

	"go.opentelemetry.io/otel/trace"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/builder"
	"dirpx.dev/dpx/cache"
	"dirpx.dev/dpx/composer"
	"dirpx.dev/dpx/config"
	"dirpx.dev/dpx/metadata"
	"dirpx.dev/dpx/proxy"
	"dirpx.dev/dpx/request"
	"dirpx.dev/dpx/serialize"
	"dirpx.dev/dpx/synth"
	uref "dirpx.dev/dpx/utils/reflect"
)

var (
	// ErrNilTarget is returned when a proxy is requested for a nil target.
	ErrNilTarget = errors.New("dpx: nil target")
	// ErrNilMixin is returned for mixins without an interface type.
	ErrNilMixin = errors.New("dpx: mixin interface is nil")
	// ErrNilRegistry is returned when a builder returns a nil registry.
	ErrNilRegistry = errors.New("dpx: builder returned nil registry")
	// ErrNilResolver is returned when a builder returns a nil resolver.
	ErrNilResolver = errors.New("dpx: builder returned nil resolver")
)

// Generator creates proxy types and instances. It owns a type cache, an
// interceptor registry and the resolver over it. A Generator is safe for
// concurrent use.
type Generator struct {
	cfg      apis.Config
	comp     *composer.Composer
	cache    *cache.Cache
	reg      apis.Registry
	res      apis.Resolver
	observer proxy.Observer
	log      *slog.Logger
}

type generatorOptions struct {
	builder       apis.Builder
	registry      apis.Registry
	resolver      apis.Resolver
	metadata      *metadata.Registry
	backend       synth.Backend
	tracer        trace.TracerProvider
	cacheObserver cache.Observer
	observer      proxy.Observer
	prev          *Generator
}

// GeneratorOption configures NewGenerator.
type GeneratorOption func(*generatorOptions)

// WithBuilder sets the builder used for the registry and resolver.
func WithBuilder(b apis.Builder) GeneratorOption {
	return func(o *generatorOptions) { o.builder = b }
}

// WithRegistry uses reg instead of a freshly built registry.
func WithRegistry(reg apis.Registry) GeneratorOption {
	return func(o *generatorOptions) { o.registry = reg }
}

// WithResolver uses res instead of a freshly built resolver.
func WithResolver(res apis.Resolver) GeneratorOption {
	return func(o *generatorOptions) { o.resolver = res }
}

// WithMetadata sets the annotation registry consulted by collectors.
func WithMetadata(r *metadata.Registry) GeneratorOption {
	return func(o *generatorOptions) { o.metadata = r }
}

// WithBackend replaces the synthesis backend.
func WithBackend(b synth.Backend) GeneratorOption {
	return func(o *generatorOptions) { o.backend = b }
}

// WithTracerProvider sets the tracer provider for synthesis spans.
func WithTracerProvider(tp trace.TracerProvider) GeneratorOption {
	return func(o *generatorOptions) { o.tracer = tp }
}

// WithCacheObserver attaches an observer to the type cache.
func WithCacheObserver(obs cache.Observer) GeneratorOption {
	return func(o *generatorOptions) { o.cacheObserver = obs }
}

// WithObserver attaches an observer to every proxy built by the generator.
func WithObserver(obs proxy.Observer) GeneratorOption {
	return func(o *generatorOptions) { o.observer = obs }
}

// withTypesOf makes the generator share the composer and type cache of
// prev, so types published by prev stay published.
func withTypesOf(prev *Generator) GeneratorOption {
	return func(o *generatorOptions) { o.prev = prev }
}

// NewGenerator builds a generator for cfg.
func NewGenerator(cfg apis.Config, opts ...GeneratorOption) (*Generator, error) {
	var o generatorOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.builder == nil {
		o.builder = builder.New()
	}
	cfg = config.Normalize(cfg)

	reg := o.registry
	if reg == nil {
		reg = o.builder.BuildRegistry(cfg, nil)
	}
	if reg == nil {
		return nil, ErrNilRegistry
	}
	res := o.resolver
	if res == nil {
		res = o.builder.BuildResolver(cfg, reg, nil)
	}
	if res == nil {
		return nil, ErrNilResolver
	}

	if o.prev != nil {
		return &Generator{
			cfg:      cfg,
			comp:     o.prev.comp,
			cache:    o.prev.cache,
			reg:      reg,
			res:      res,
			observer: o.observer,
			log:      cfg.Log(),
		}, nil
	}

	copts := []composer.Option{
		composer.WithMaxEmbedDepth(cfg.MaxEmbedDepth),
		composer.WithLogger(cfg.Log()),
		composer.WithMetadata(o.metadata),
		composer.WithBackend(o.backend),
	}
	if o.tracer != nil {
		copts = append(copts, composer.WithTracerProvider(o.tracer))
	}
	comp := composer.New(copts...)

	c, err := cache.New(comp.Compose, append(cache.FromConfig(cfg), cache.WithObserver(o.cacheObserver))...)
	if err != nil {
		return nil, err
	}
	return &Generator{
		cfg:      cfg,
		comp:     comp,
		cache:    c,
		reg:      reg,
		res:      res,
		observer: o.observer,
		log:      cfg.Log(),
	}, nil
}

// Config returns the generator configuration.
func (g *Generator) Config() apis.Config { return g.cfg }

// Cache returns the type cache.
func (g *Generator) Cache() *cache.Cache { return g.cache }

// Registry returns the interceptor registry.
func (g *Generator) Registry() apis.Registry { return g.reg }

// Resolver returns the interceptor resolver.
func (g *Generator) Resolver() apis.Resolver { return g.res }

// RegisterInterceptor adds a named interceptor factory to the registry.
func (g *Generator) RegisterInterceptor(name string, f apis.Factory) error {
	return g.reg.Register(name, f)
}

// Reset drops every cached type. Existing proxies keep working.
func (g *Generator) Reset() { g.cache.Reset() }

// TypeFor returns the generated type for req, synthesizing and publishing
// it on first use.
func (g *Generator) TypeFor(ctx context.Context, req *request.Request) (*synth.Type, error) {
	return g.cache.GetOrCreate(ctx, req)
}

// ClassProxy builds a proxy of a concrete type. target is either an
// instance (usually a pointer) or a reflect.Type, in which case a zero
// instance is allocated.
func (g *Generator) ClassProxy(ctx context.Context, target any, opts ...Option) (*proxy.Proxy, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if t, ok := target.(reflect.Type); ok {
		return g.build(ctx, apis.ClassProxy, t, nil, opts)
	}
	return g.build(ctx, apis.ClassProxy, reflect.TypeOf(target), target, opts)
}

// InterfaceProxyWithTarget builds a proxy implementing iface that forwards
// to target.
func (g *Generator) InterfaceProxyWithTarget(ctx context.Context, iface reflect.Type, target any, opts ...Option) (*proxy.Proxy, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	return g.build(ctx, apis.InterfaceWithTarget, iface, target, opts)
}

// InterfaceProxyWithTargetInterface is InterfaceProxyWithTarget with target
// replacement enabled: interceptors may swap the target per invocation or
// permanently.
func (g *Generator) InterfaceProxyWithTargetInterface(ctx context.Context, iface reflect.Type, target any, opts ...Option) (*proxy.Proxy, error) {
	return g.InterfaceProxyWithTarget(ctx, iface, target, append(slices.Clone(opts), WithTargetReplacement(true))...)
}

// InterfaceProxyWithoutTarget builds a proxy implementing iface with no
// target behind it. Interceptors must supply results for every call.
func (g *Generator) InterfaceProxyWithoutTarget(ctx context.Context, iface reflect.Type, opts ...Option) (*proxy.Proxy, error) {
	return g.build(ctx, apis.InterfaceWithoutTarget, iface, nil, opts)
}

// Restore rebuilds a proxy from serialized state through this generator's
// cache and resolver.
func (g *Generator) Restore(ctx context.Context, st serialize.State, types map[string]reflect.Type, opts ...Option) (*proxy.Proxy, error) {
	o := collect(opts)
	return serialize.Restore(ctx, st, serialize.Env{
		Types:    types,
		Resolver: g.res,
		Build:    g.TypeFor,
		Hook:     o.hook,
		Selector: o.selector,
		Observer: g.observer,
	})
}

func (g *Generator) build(ctx context.Context, kind apis.Kind, t reflect.Type, target any, opts []Option) (*proxy.Proxy, error) {
	o := collect(opts)
	replace := g.cfg.AllowTargetReplacement
	if o.replace != nil {
		replace = *o.replace
	}

	mixins := make(map[reflect.Type]any, len(o.mixins))
	mixinTypes := make([]reflect.Type, 0, len(o.mixins))
	for _, m := range o.mixins {
		if m.iface == nil {
			return nil, ErrNilMixin
		}
		mixins[m.iface] = m.impl
		mixinTypes = append(mixinTypes, m.iface)
	}

	reqOpts := []request.Option{
		request.WithInterfaces(o.interfaces...),
		request.WithMixins(mixinTypes...),
		request.WithHook(o.hook),
		request.WithSelector(o.selector),
		request.WithTargetReplacement(replace),
		request.WithSerializable(o.serializable),
	}
	if o.base != nil {
		reqOpts = append(reqOpts, request.WithBaseType(o.base))
	}
	for _, kv := range o.tags {
		reqOpts = append(reqOpts, request.WithTag(kv[0], kv[1]))
	}
	req, err := request.New(kind, t, reqOpts...)
	if err != nil {
		return nil, err
	}
	typ, err := g.TypeFor(ctx, req)
	if err != nil {
		return nil, err
	}
	ics, err := g.res.ResolveAll(o.interceptors...)
	if err != nil {
		return nil, err
	}
	px, err := proxy.New(typ, proxy.Options{
		Target:       target,
		Interceptors: ics,
		Mixins:       mixins,
		Selector:     o.selector,
		Observer:     g.observer,
		Logger:       g.log,
	})
	if err != nil {
		return nil, fmt.Errorf("dpx: %s proxy of %s: %w", kind, uref.Name(t), err)
	}
	g.log.Debug("dpx: proxy created", "type", typ.Name(), "id", px.ID(), "interceptors", len(ics))
	return px, nil
}
