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

package codegen

import (
	"fmt"
	"reflect"
	"strings"
)

// FromTypes builds the model of a file in package pkg wrapping the given
// interface types. Parameter names are positional, except that a leading
// context.Context is named ctx. Types declared in the package with import
// path local are written unqualified.
func FromTypes(pkg, local string, ts ...reflect.Type) (*File, error) {
	if len(ts) == 0 {
		return nil, ErrNoInterfaces
	}
	f := &File{Package: pkg}
	im := imports{}
	q := &reflectQualifier{local: local, im: im}
	for _, t := range ts {
		if t == nil || t.Kind() != reflect.Interface {
			return nil, fmt.Errorf("%w: %v", ErrNotInterface, t)
		}
		it := Interface{Name: t.Name()}
		for i := 0; i < t.NumMethod(); i++ {
			m := t.Method(i)
			if !m.IsExported() {
				continue
			}
			ft := m.Type
			cm := Method{Name: m.Name, Variadic: ft.IsVariadic()}
			for j := 0; j < ft.NumIn(); j++ {
				name := fmt.Sprintf("arg%d", j)
				typ := q.typeString(ft.In(j))
				if j == 0 && typ == contextType {
					name = "ctx"
				}
				cm.Params = append(cm.Params, Param{Name: name, Type: typ})
			}
			for j := 0; j < ft.NumOut(); j++ {
				cm.Results = append(cm.Results, Param{Type: q.typeString(ft.Out(j))})
			}
			it.Methods = append(it.Methods, cm)
		}
		f.Interfaces = append(f.Interfaces, it)
	}
	if q.err != nil {
		return nil, q.err
	}
	f.Imports = im.paths()
	return f, nil
}

type reflectQualifier struct {
	local string
	im    imports
	err   error
}

func (q *reflectQualifier) named(t reflect.Type) string {
	if t.PkgPath() == "" || t.PkgPath() == q.local {
		return t.Name()
	}
	s := t.String()
	pkg, _, _ := strings.Cut(s, ".")
	if err := q.im.add(pkg, t.PkgPath()); err != nil && q.err == nil {
		q.err = err
	}
	return pkg + "." + t.Name()
}

// typeString writes t the way it is spelled in source.
func (q *reflectQualifier) typeString(t reflect.Type) string {
	if t.Name() != "" {
		if strings.Contains(t.Name(), "[") {
			return t.String()
		}
		return q.named(t)
	}
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + q.typeString(t.Elem())
	case reflect.Slice:
		return "[]" + q.typeString(t.Elem())
	case reflect.Array:
		return fmt.Sprintf("[%d]%s", t.Len(), q.typeString(t.Elem()))
	case reflect.Map:
		return "map[" + q.typeString(t.Key()) + "]" + q.typeString(t.Elem())
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + q.typeString(t.Elem())
		case reflect.SendDir:
			return "chan<- " + q.typeString(t.Elem())
		}
		return "chan " + q.typeString(t.Elem())
	case reflect.Func:
		in := make([]string, t.NumIn())
		for i := range in {
			in[i] = q.typeString(t.In(i))
		}
		if t.IsVariadic() {
			in[len(in)-1] = "..." + strings.TrimPrefix(in[len(in)-1], "[]")
		}
		out := make([]string, t.NumOut())
		for i := range out {
			out[i] = q.typeString(t.Out(i))
		}
		s := "func(" + strings.Join(in, ", ") + ")"
		switch len(out) {
		case 0:
		case 1:
			s += " " + out[0]
		default:
			s += " (" + strings.Join(out, ", ") + ")"
		}
		return s
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return "any"
		}
	}
	return t.String()
}
