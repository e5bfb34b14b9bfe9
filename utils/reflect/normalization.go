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

package reflect

import (
	"errors"
	"reflect"
	"sort"
)

// DefaultMaxDepth bounds pointer unwrapping and embedded-field searches when
// the caller passes a non-positive depth.
const DefaultMaxDepth = 8

var (
	// ErrReflectNilType is returned when a nil reflect.Type is provided.
	ErrReflectNilType = errors.New("reflect: nil reflect.Type provided")
	// ErrReflectTypeNotNamed indicates that the provided type (after unwrapping
	// pointers) is not a named type (e.g., anonymous struct, func, interface{}).
	ErrReflectTypeNotNamed = errors.New("reflect: type is not named")
)

// Normalize unwraps pointers and returns the nearest named type, or an error
// if none is found within maxDepth steps.
func Normalize(t reflect.Type, maxDepth int) (reflect.Type, error) {
	if t == nil {
		return nil, ErrReflectNilType
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	for i := 0; t != nil && i < maxDepth; i++ {
		if t.Name() != "" {
			return t, nil
		}
		if t.Kind() != reflect.Pointer {
			return nil, ErrReflectTypeNotNamed
		}
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return t, nil
	}
	return nil, ErrReflectTypeNotNamed
}

// Name returns a stable, fully qualified name for t: "import/path.Type" for
// named types, "*" prefixes for pointers, and t.String() for everything
// else. Generic instantiations keep their type arguments.
func Name(t reflect.Type) string {
	if t == nil {
		return ""
	}
	if t.Name() != "" {
		if p := t.PkgPath(); p != "" {
			return p + "." + t.Name()
		}
		return t.Name()
	}
	if t.Kind() == reflect.Pointer {
		return "*" + Name(t.Elem())
	}
	return t.String()
}

// SortTypes returns a copy of ts without nils and duplicates, ordered by Name.
func SortTypes(ts []reflect.Type) []reflect.Type {
	seen := make(map[reflect.Type]struct{}, len(ts))
	out := make([]reflect.Type, 0, len(ts))
	for _, t := range ts {
		if t == nil {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return Name(out[i]) < Name(out[j]) })
	return out
}
