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

package resolver

import (
	"dirpx.dev/dpx/apis"
)

// New constructs an apis.Resolver that tries the given strategies in order.
// Nil strategies are ignored. The returned resolver is safe for concurrent use
// provided strategies themselves are safe for concurrent TryResolve calls.
func New(strategies ...apis.Strategy) apis.Resolver {
	// Filter out nils to avoid nil-interface panics on call sites.
	out := make([]apis.Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s != nil {
			out = append(out, s)
		}
	}
	return chain{strats: out}
}

// chain is an immutable, order-preserving resolver over a set of strategies.
type chain struct {
	strats []apis.Strategy
}

// Resolve runs strategies in order until one handles ref.
func (r chain) Resolve(ref any) (apis.Interceptor, error) {
	if ref == nil {
		return nil, &apis.ResolutionError{Ref: ref, Err: apis.ErrUnresolved}
	}
	for _, s := range r.strats {
		ic, handled, err := s.TryResolve(ref)
		if !handled {
			continue
		}
		if err != nil {
			return nil, &apis.ResolutionError{Ref: ref, Err: err}
		}
		if ic == nil {
			return nil, &apis.ResolutionError{Ref: ref, Err: apis.ErrNotInterceptor}
		}
		return ic, nil
	}
	return nil, &apis.ResolutionError{Ref: ref, Err: apis.ErrUnresolved}
}

// ResolveAll resolves refs in order and stops at the first failure.
func (r chain) ResolveAll(refs ...any) ([]apis.Interceptor, error) {
	out := make([]apis.Interceptor, 0, len(refs))
	for _, ref := range refs {
		ic, err := r.Resolve(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, ic)
	}
	return out, nil
}
