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

package proxy

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrFacade is returned by Bind for values that are not pointers to
	// structs.
	ErrFacade = errors.New("dpx(proxy): facade must be a non-nil pointer to a struct")
	// ErrFacadeField is returned by Bind for func fields whose type does not
	// match the member.
	ErrFacadeField = errors.New("dpx(proxy): facade field does not match member")
)

var contextType = reflect.TypeFor[context.Context]()

// Bind fills the exported func fields of the struct facade points to with
// functions that call p. A field calls the member of the same name, or
// the one named by its `dpx:"Name"` tag; `dpx:"-"` leaves it alone. A
// field may take a leading context.Context the member does not declare,
// which then becomes the call context.
//
//	var s struct {
//		Get func(ctx context.Context, key string) (string, error)
//		Len func() int
//	}
//	err := proxy.Bind(px, &s)
func Bind(p *Proxy, facade any) error {
	rv := reflect.ValueOf(facade)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrFacade
	}
	sv := rv.Elem()
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() || f.Type.Kind() != reflect.Func {
			continue
		}
		name := f.Name
		if tag := f.Tag.Get("dpx"); tag == "-" {
			continue
		} else if tag != "" {
			name = tag
		}
		m, err := p.lookup(name)
		if err != nil {
			return err
		}
		sig := m.Descriptor.Signature()
		withCtx := f.Type.NumIn() == len(sig.In)+1 && f.Type.NumIn() > 0 && f.Type.In(0) == contextType
		want := sig.FuncType()
		if withCtx {
			want = reflect.FuncOf(append([]reflect.Type{contextType}, sig.In...), sig.Out, sig.Variadic)
		}
		if f.Type != want {
			return fmt.Errorf("%w: %s.%s is %s, member is %s", ErrFacadeField, st, f.Name, f.Type, sig)
		}
		fn := reflect.MakeFunc(f.Type, func(in []reflect.Value) []reflect.Value {
			ctx := context.Background()
			if withCtx {
				if c, ok := in[0].Interface().(context.Context); ok && c != nil {
					ctx = c
				}
				in = in[1:]
			}
			return p.Call(ctx, name, in)
		})
		sv.Field(i).Set(fn)
	}
	return nil
}
