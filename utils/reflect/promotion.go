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
	"reflect"
	"runtime"
)

// Promoted describes where a promoted method really lives.
type Promoted struct {
	// Path is the embedded field index path from the outer struct.
	Path []int
	// Field is the embedded field that provides the method.
	Field reflect.StructField
	// Interface reports whether that field is an embedded interface, in
	// which case the method has no implementation while the field is nil.
	Interface bool
}

// Promotion reports whether method name of t is promoted from an embedded
// field rather than declared on t itself, and if so where it comes from.
// t may be a struct or a pointer to a struct. The search is breadth-first,
// follows Go's selector rules (an ambiguous depth yields no promotion) and
// stops after maxDepth levels.
func Promotion(t reflect.Type, name string, maxDepth int) (Promoted, bool) {
	if t == nil {
		return Promoted{}, false
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct || !isPromoted(t, st, name) {
		return Promoted{}, false
	}

	type node struct {
		t    reflect.Type
		path []int
	}
	level := []node{{t: st}}
	for depth := 0; depth < maxDepth && len(level) > 0; depth++ {
		var (
			next  []node
			found Promoted
			hits  int
		)
		for _, n := range level {
			for i := 0; i < n.t.NumField(); i++ {
				f := n.t.Field(i)
				if !f.Anonymous {
					continue
				}
				path := append(append(make([]int, 0, len(n.path)+1), n.path...), i)
				if hasMethod(f.Type, name) {
					hits++
					if hits == 1 {
						found = Promoted{Path: path, Field: f, Interface: f.Type.Kind() == reflect.Interface}
					}
					continue
				}
				et := f.Type
				if et.Kind() == reflect.Pointer {
					et = et.Elem()
				}
				if et.Kind() == reflect.Struct {
					next = append(next, node{t: et, path: path})
				}
			}
		}
		switch {
		case hits == 1:
			return descend(found, name, maxDepth-depth-1), true
		case hits > 1:
			return Promoted{}, false
		}
		level = next
	}
	return Promoted{}, false
}

// descend follows p into the embedded field until it reaches the field that
// actually declares the method.
func descend(p Promoted, name string, depth int) Promoted {
	if depth <= 0 {
		return p
	}
	ft := p.Field.Type
	if ft.Kind() == reflect.Struct {
		ft = reflect.PointerTo(ft)
	}
	if ft.Kind() != reflect.Pointer || ft.Elem().Kind() != reflect.Struct {
		return p
	}
	inner, ok := Promotion(ft, name, depth)
	if !ok {
		return p
	}
	inner.Path = append(append(make([]int, 0, len(p.Path)+len(inner.Path)), p.Path...), inner.Path...)
	return inner
}

// hasMethod reports whether a value of type t (or its address) has method name.
func hasMethod(t reflect.Type, name string) bool {
	if _, ok := t.MethodByName(name); ok {
		return true
	}
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
		_, ok := reflect.PointerTo(t).MethodByName(name)
		return ok
	}
	return false
}

// isPromoted tells declared methods from promoted ones. Promoted methods are
// reached through compiler-generated wrappers, and value-receiver methods
// are looked up on the struct type first so that pointer wrappers of
// declared methods do not count.
func isPromoted(t, st reflect.Type, name string) bool {
	if m, ok := st.MethodByName(name); ok {
		return autogenerated(m.Func)
	}
	if t.Kind() == reflect.Pointer {
		if m, ok := t.MethodByName(name); ok {
			return autogenerated(m.Func)
		}
	}
	return false
}

func autogenerated(fn reflect.Value) bool {
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return false
	}
	pc := fn.Pointer()
	f := runtime.FuncForPC(pc)
	if f == nil {
		return false
	}
	file, _ := f.FileLine(pc)
	return file == "<autogenerated>"
}
