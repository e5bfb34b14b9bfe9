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

package apis

import "reflect"

// Interceptor is one link of the interception chain.
//
// Intercept may call inv.Proceed zero, one or several times. Not calling it
// short-circuits the rest of the chain and the terminal action; the
// interceptor then supplies results through inv.SetReturnValue/SetResults
// or fails by returning an error. Errors returned by Proceed should be
// returned unchanged unless the interceptor deliberately handles them.
type Interceptor interface {
	Intercept(inv Invocation) error
}

// InterceptorFunc adapts a plain function to Interceptor.
type InterceptorFunc func(inv Invocation) error

// Intercept implements Interceptor.
func (f InterceptorFunc) Intercept(inv Invocation) error {
	return f(inv)
}

// Named is implemented by interceptors that carry a stable name. The name is
// what serialization records and what the interceptor registry resolves.
type Named interface {
	InterceptorName() string
}

// Selector picks, per member, which of the proxy's interceptors apply and
// in which order. It is consulted once per member per proxy instance.
type Selector interface {
	SelectInterceptors(source reflect.Type, m reflect.Method, interceptors []Interceptor) []Interceptor
}

// SelectorFunc adapts a plain function to Selector.
type SelectorFunc func(source reflect.Type, m reflect.Method, interceptors []Interceptor) []Interceptor

// SelectInterceptors implements Selector.
func (f SelectorFunc) SelectInterceptors(source reflect.Type, m reflect.Method, interceptors []Interceptor) []Interceptor {
	return f(source, m, interceptors)
}
