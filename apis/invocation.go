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

import (
	"context"
	"reflect"
)

// Invocation is the per-call object handed to interceptors.
//
// An Invocation belongs to exactly one call. Its chain position only moves
// forward, it is never shared between calls or goroutines, and it must not
// be retained after Intercept returns.
type Invocation interface {
	// Context returns the context the call was made with.
	Context() context.Context
	// Proxy returns the proxy instance that received the call.
	Proxy() any

	// Method returns the member as declared on its source type.
	Method() reflect.Method
	// DeclaringType returns the source type that declared the member
	// (target type, interface or mixin interface).
	DeclaringType() reflect.Type
	// TargetType returns the dynamic type of the current target, or nil.
	TargetType() reflect.Type

	// Arguments returns boxed copies of the call arguments.
	Arguments() []any
	// Argument returns the boxed i-th argument.
	Argument(i int) any
	// SetArgument replaces the i-th argument. nil stands for the
	// parameter's zero value.
	SetArgument(i int, v any) error

	// ReturnValue returns the first non-error result, or NoValue when the
	// member has none.
	ReturnValue() any
	// SetReturnValue replaces the first non-error result.
	SetReturnValue(v any) error
	// Results returns boxed copies of all non-error results.
	Results() []any
	// SetResults replaces all non-error results at once.
	SetResults(vs ...any) error

	// Target returns the target the terminal action will reach, or nil.
	Target() any
	// SetTarget replaces the target for this call only. It fails unless the
	// proxy allows target replacement.
	SetTarget(t any) error
	// SetProxyTarget replaces the target for this call and for every later
	// call made on the proxy.
	SetProxyTarget(t any) error

	// Proceed advances the chain from the current position: the next
	// interceptor runs, or the terminal action once the chain is exhausted.
	Proceed() error
}

type noValue struct{}

func (noValue) String() string { return "<no value>" }

// NoValue is what Invocation.ReturnValue reports for members without
// non-error results. It is distinct from a nil result.
var NoValue any = noValue{}

// IsNoValue reports whether v is the NoValue sentinel.
func IsNoValue(v any) bool {
	_, ok := v.(noValue)
	return ok
}
