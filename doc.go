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

// Package dpx generates proxies for Go types at run time and routes their
// calls through chains of interceptors.
//
// A proxy stands in for a value: a concrete type (class proxy) or an
// interface, with or without a real target behind it. Every member call on
// the proxy becomes an invocation that walks the interceptor chain; each
// interceptor may inspect or rewrite arguments, replace the target, short
// circuit with its own results, or call Proceed to continue. The last link
// runs the real member on the target.
//
// # Design
//
// Generation and instantiation are separate steps:
//
//   - A request (kind, target type, extra interfaces, mixins, base type,
//     hook, options) has a canonical key. The type cache maps each key to
//     one generated type, built once by the composer even under concurrent
//     demand. Generated types are frozen dispatch tables (synth.Type).
//
//   - proxy.New binds a generated type to interceptors, mixin values and a
//     target. Instances are cheap; types are shared.
//
// The composer asks contributors (class target, interfaces with or without
// target, mixins, diagnostics) for their members, consults the hook per
// member (Intercept, Forward or Skip) and resolves signature conflicts by
// source priority. Sealed and unexported members are never intercepted.
//
// # Global API
//
// The package keeps a read-mostly snapshot holding the configuration,
// the interceptor registry, the resolver and the default generator built
// over them:
//
//	px, err := dpx.InterfaceProxyWithTarget(ctx,
//	    reflect.TypeFor[Store](), store,
//	    dpx.WithInterceptors("audit", retry),
//	)
//	out, err := px.Invoke(ctx, "Get", "k")
//
// Interceptor references are resolved in order: interceptor instances,
// plain func(apis.Invocation) error values, names registered with
// RegisterInterceptor, and reflect.Type values that are instantiated.
//
// Reads (Default, TypeFor, the proxy constructors) load the current state
// atomically and never take locks. Writers (SetConfig, SetBuilder,
// SetRegistry, SetResolver, SetOptions, SetAll) take a short build mutex,
// assemble a new snapshot and publish it with an atomic swap. The new
// default generator keeps the type cache of the previous one, so a request
// keeps yielding the same type. Only a change of retention, capacity, TTL,
// embed depth or logger, or a call to SetOptions, starts an empty cache;
// proxies created earlier keep their types either way.
//
// # Pinning
//
// SetRegistry and SetResolver pin the layer they replace: later calls to
// SetConfig or SetBuilder keep it as is until UnpinRegistry or
// UnpinResolver. Registry entries are otherwise carried over on rebuild.
//
// # Typed access
//
// A *proxy.Proxy is called by member name through Invoke or Call. For
// static call sites, proxy.Bind fills a struct of func fields with
// dispatching closures, and the codegen package (and the dpx command)
// writes typed wrappers that implement the proxied interface.
package dpx
