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

package member

import (
	"reflect"
	"strings"
)

var errorType = reflect.TypeFor[error]()

// Signature is the callable shape of a member without its receiver.
type Signature struct {
	// Name is the member name.
	Name string
	// In holds the parameter types. A variadic member's last parameter is
	// its slice type.
	In []reflect.Type
	// Out holds the result types, including a trailing error.
	Out []reflect.Type
	// Variadic reports whether the last parameter is variadic.
	Variadic bool
	// GenericArity is the number of type parameters. Go methods cannot
	// declare their own, so collected signatures always report 0.
	GenericArity int
}

// SignatureOf builds the signature of method m as seen on source. For
// concrete sources the receiver parameter is dropped.
func SignatureOf(source reflect.Type, m reflect.Method) Signature {
	ft := m.Type
	skip := 0
	if source != nil && source.Kind() != reflect.Interface {
		skip = 1
	}
	return FromFunc(m.Name, ft, skip)
}

// FromFunc builds a signature from a func type, ignoring the first skip
// parameters.
func FromFunc(name string, ft reflect.Type, skip int) Signature {
	s := Signature{Name: name, Variadic: ft.IsVariadic()}
	if n := ft.NumIn() - skip; n > 0 {
		s.In = make([]reflect.Type, 0, n)
		for i := skip; i < ft.NumIn(); i++ {
			s.In = append(s.In, ft.In(i))
		}
	}
	if n := ft.NumOut(); n > 0 {
		s.Out = make([]reflect.Type, 0, n)
		for i := 0; i < n; i++ {
			s.Out = append(s.Out, ft.Out(i))
		}
	}
	return s
}

// Equal reports whether s and o describe the same member shape.
func (s Signature) Equal(o Signature) bool {
	if s.Name != o.Name || s.Variadic != o.Variadic || s.GenericArity != o.GenericArity {
		return false
	}
	return sameTypes(s.In, o.In) && sameTypes(s.Out, o.Out)
}

// SameShape is Equal without comparing names.
func (s Signature) SameShape(o Signature) bool {
	o.Name = s.Name
	return s.Equal(o)
}

// ReturnsError reports whether the last result is error.
func (s Signature) ReturnsError() bool {
	return len(s.Out) > 0 && s.Out[len(s.Out)-1] == errorType
}

// Values returns the result types without a trailing error.
func (s Signature) Values() []reflect.Type {
	if s.ReturnsError() {
		return s.Out[:len(s.Out)-1]
	}
	return s.Out
}

// Void reports whether the member has no non-error result.
func (s Signature) Void() bool {
	return len(s.Values()) == 0
}

// FuncType returns the func type of the signature.
func (s Signature) FuncType() reflect.Type {
	return reflect.FuncOf(s.In, s.Out, s.Variadic)
}

// String renders the signature in Go syntax, e.g. "Get(string) (int, error)".
func (s Signature) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte('(')
	for i, t := range s.In {
		if i > 0 {
			b.WriteString(", ")
		}
		if s.Variadic && i == len(s.In)-1 {
			b.WriteString("...")
			b.WriteString(t.Elem().String())
			continue
		}
		b.WriteString(t.String())
	}
	b.WriteByte(')')
	switch len(s.Out) {
	case 0:
	case 1:
		b.WriteByte(' ')
		b.WriteString(s.Out[0].String())
	default:
		b.WriteString(" (")
		for i, t := range s.Out {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(t.String())
		}
		b.WriteByte(')')
	}
	return b.String()
}

func sameTypes(a, b []reflect.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
