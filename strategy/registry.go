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

package strategy

import (
	"fmt"

	"dirpx.dev/dpx/apis"
)

// NewRegistryStrategy creates an apis.Strategy that resolves names through
// an interceptor registry.
func NewRegistryStrategy(reg apis.Registry) apis.Strategy {
	return &registryStrategy{reg: reg}
}

// registryStrategy consults a provided apis.Registry.
type registryStrategy struct {
	reg apis.Registry
}

// Ensure registryStrategy implements apis.Strategy.
var _ apis.Strategy = (*registryStrategy)(nil)

// TryResolve looks up a string reference and runs its factory. Unknown
// names fall through to the next strategy.
func (s *registryStrategy) TryResolve(ref any) (apis.Interceptor, bool, error) {
	name, ok := ref.(string)
	if !ok || s.reg == nil {
		return nil, false, nil
	}
	f, ok := s.reg.Lookup(name)
	if !ok {
		return nil, false, nil
	}
	ic, err := f()
	if err != nil {
		return nil, true, fmt.Errorf("dpx(strategy): factory %q: %w", name, err)
	}
	if ic == nil {
		return nil, true, apis.ErrNotInterceptor
	}
	return ic, true, nil
}

// Callback resolves references the built-in strategies do not know. It
// returns (nil, nil) to leave ref unhandled.
type Callback func(ref any) (apis.Interceptor, error)

// NewCallbackStrategy creates an apis.Strategy that delegates to fn.
func NewCallbackStrategy(fn Callback) apis.Strategy {
	return callbackStrategy{fn: fn}
}

type callbackStrategy struct {
	fn Callback
}

func (s callbackStrategy) TryResolve(ref any) (apis.Interceptor, bool, error) {
	if s.fn == nil {
		return nil, false, nil
	}
	ic, err := s.fn(ref)
	if err != nil {
		return nil, true, err
	}
	if ic == nil {
		return nil, false, nil
	}
	return ic, true, nil
}
