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
	"dirpx.dev/dpx/apis"
)

// NewInstanceStrategy creates an apis.Strategy for references that already
// are interceptors.
func NewInstanceStrategy() apis.Strategy {
	return &instanceStrategy{}
}

// instanceStrategy is the zero-cost fast path: if ref implements
// apis.Interceptor, return it and stop the chain.
type instanceStrategy struct{}

// Ensure instanceStrategy implements apis.Strategy.
var _ apis.Strategy = (*instanceStrategy)(nil)

// TryResolve returns ref itself when it is an interceptor.
func (*instanceStrategy) TryResolve(ref any) (apis.Interceptor, bool, error) {
	if ic, ok := ref.(apis.Interceptor); ok && ic != nil {
		return ic, true, nil
	}
	return nil, false, nil
}

// NewFuncStrategy creates an apis.Strategy for plain interception functions.
func NewFuncStrategy() apis.Strategy {
	return funcStrategy{}
}

type funcStrategy struct{}

// TryResolve adapts func(apis.Invocation) error to apis.InterceptorFunc.
func (funcStrategy) TryResolve(ref any) (apis.Interceptor, bool, error) {
	fn, ok := ref.(func(apis.Invocation) error)
	if !ok {
		return nil, false, nil
	}
	if fn == nil {
		return nil, true, apis.ErrNotInterceptor
	}
	return apis.InterceptorFunc(fn), true, nil
}
