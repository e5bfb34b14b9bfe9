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

package collector

import (
	"reflect"
	"sort"
	"strings"

	"dirpx.dev/dpx/apis"
)

// AllMethodsHook intercepts every proxyable member.
type AllMethodsHook struct{}

var _ apis.Hook = AllMethodsHook{}

// ShouldIntercept implements apis.Hook.
func (AllMethodsHook) ShouldIntercept(reflect.Type, reflect.Method) apis.Policy {
	return apis.Intercept
}

// NonProxyable implements apis.Hook.
func (AllMethodsHook) NonProxyable(reflect.Type, reflect.Method, error) {}

// MethodsInspected implements apis.Hook.
func (AllMethodsHook) MethodsInspected() {}

// HookFunc adapts a decision function to apis.Hook. Its notifications are
// no-ops.
type HookFunc func(source reflect.Type, m reflect.Method) apis.Policy

var _ apis.Hook = HookFunc(nil)

// ShouldIntercept implements apis.Hook.
func (f HookFunc) ShouldIntercept(source reflect.Type, m reflect.Method) apis.Policy {
	return f(source, m)
}

// NonProxyable implements apis.Hook.
func (HookFunc) NonProxyable(reflect.Type, reflect.Method, error) {}

// MethodsInspected implements apis.Hook.
func (HookFunc) MethodsInspected() {}

// PolicyHook decides by member name and falls back to Default. The zero
// value intercepts everything.
type PolicyHook struct {
	Members map[string]apis.Policy
	Default apis.Policy
}

var _ apis.Hook = PolicyHook{}

// ShouldIntercept implements apis.Hook.
func (h PolicyHook) ShouldIntercept(_ reflect.Type, m reflect.Method) apis.Policy {
	if p, ok := h.Members[m.Name]; ok {
		return p
	}
	if h.Default == apis.PolicyUnset {
		return apis.Intercept
	}
	return h.Default
}

// NonProxyable implements apis.Hook.
func (PolicyHook) NonProxyable(reflect.Type, reflect.Method, error) {}

// MethodsInspected implements apis.Hook.
func (PolicyHook) MethodsInspected() {}

// CacheKey implements apis.Keyed.
func (h PolicyHook) CacheKey() string {
	names := make([]string, 0, len(h.Members))
	for n := range h.Members {
		names = append(names, n)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("policy-hook:")
	b.WriteString(h.Default.String())
	for _, n := range names {
		b.WriteByte(';')
		b.WriteString(n)
		b.WriteByte('=')
		b.WriteString(h.Members[n].String())
	}
	return b.String()
}
