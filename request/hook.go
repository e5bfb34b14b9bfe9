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

package request

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/google/uuid"

	"dirpx.dev/dpx/apis"
	uref "dirpx.dev/dpx/utils/reflect"
)

// HookKey returns the cache identity of h.
//
// Hooks implementing apis.Keyed supply their own key. Pointer hooks are
// identified by address. Hooks that are or hold a func have no comparable
// identity: closures of one literal share a code pointer while deciding
// differently, so each call yields a fresh key and the generated type is
// never shared. Other values are identified by their type and Go-syntax
// representation.
func HookKey(h apis.Hook) string {
	if h == nil {
		return "<all>"
	}
	if k, ok := h.(apis.Keyed); ok {
		return "keyed:" + k.CacheKey()
	}
	v := reflect.ValueOf(h)
	name := uref.Name(v.Type())
	switch {
	case v.Kind() == reflect.Pointer, v.Kind() == reflect.Map,
		v.Kind() == reflect.Chan, v.Kind() == reflect.UnsafePointer:
		return fmt.Sprintf("%s@%#x", name, v.Pointer())
	case holdsFunc(v.Type(), nil):
		slog.Default().Debug("dpx: hook holds a func and is not shared across requests, implement apis.Keyed to share its type",
			"hook", name)
		return name + "#" + uuid.NewString()
	default:
		return fmt.Sprintf("%s=%#v", name, h)
	}
}

// holdsFunc reports whether values of t carry a func, directly or through
// struct fields, containers or interfaces.
func holdsFunc(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return false
	}
	switch t.Kind() {
	case reflect.Func, reflect.Interface:
		return true
	case reflect.Array, reflect.Slice:
		return holdsFunc(t.Elem(), mark(seen, t))
	case reflect.Map:
		seen = mark(seen, t)
		return holdsFunc(t.Key(), seen) || holdsFunc(t.Elem(), seen)
	case reflect.Struct:
		seen = mark(seen, t)
		for i := range t.NumField() {
			if holdsFunc(t.Field(i).Type, seen) {
				return true
			}
		}
	}
	return false
}

func mark(seen map[reflect.Type]bool, t reflect.Type) map[reflect.Type]bool {
	if seen == nil {
		seen = make(map[reflect.Type]bool)
	}
	seen[t] = true
	return seen
}
