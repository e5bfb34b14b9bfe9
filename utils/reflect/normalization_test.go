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

package reflect_test

import (
	"reflect"
	"testing"

	uref "dirpx.dev/dpx/utils/reflect"
)

// Local test types.
type Greeter interface{ Greet() string }

type Base struct{}

func (*Base) Save() error { return nil }
func (Base) ID() string   { return "base" }

type Abstract struct{ Greeter }

type Concrete struct{ Base }

func (*Concrete) Own() {}

type Shadow struct{ Base }

func (Shadow) ID() string { return "shadow" }

type Deep struct{ Concrete }

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		typ  reflect.Type
		want reflect.Type
	}{
		{"plain", reflect.TypeOf(Base{}), reflect.TypeOf(Base{})},
		{"ptr", reflect.TypeOf(&Base{}), reflect.TypeOf(Base{})},
		{"ptr-ptr", reflect.TypeOf((**Base)(nil)), reflect.TypeOf(Base{})},
		{"iface", reflect.TypeFor[Greeter](), reflect.TypeFor[Greeter]()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := uref.Normalize(tc.typ, 0)
			if err != nil {
				t.Fatalf("Normalize(%v) returned error: %v", tc.typ, err)
			}
			if got != tc.want {
				t.Fatalf("Normalize(%v) = %v, want %v", tc.typ, got, tc.want)
			}
		})
	}

	if _, err := uref.Normalize(nil, 0); err != uref.ErrReflectNilType {
		t.Fatalf("Normalize(nil) error = %v, want ErrReflectNilType", err)
	}
	if _, err := uref.Normalize(reflect.TypeOf([]Base{}), 0); err != uref.ErrReflectTypeNotNamed {
		t.Fatalf("Normalize([]Base) error = %v, want ErrReflectTypeNotNamed", err)
	}
}

func TestName(t *testing.T) {
	const pkg = "dirpx.dev/dpx/utils/reflect_test"
	cases := []struct {
		typ  reflect.Type
		want string
	}{
		{reflect.TypeOf(Base{}), pkg + ".Base"},
		{reflect.TypeOf(&Base{}), "*" + pkg + ".Base"},
		{reflect.TypeOf(0), "int"},
		{reflect.TypeOf([]int{}), "[]int"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := uref.Name(tc.typ); got != tc.want {
			t.Fatalf("Name(%v) = %q, want %q", tc.typ, got, tc.want)
		}
	}
}

func TestSortTypes(t *testing.T) {
	in := []reflect.Type{
		reflect.TypeOf(Shadow{}), nil, reflect.TypeOf(Base{}), reflect.TypeOf(Shadow{}),
	}
	got := uref.SortTypes(in)
	if len(got) != 2 {
		t.Fatalf("SortTypes length = %d, want 2", len(got))
	}
	if got[0] != reflect.TypeOf(Base{}) || got[1] != reflect.TypeOf(Shadow{}) {
		t.Fatalf("SortTypes order = %v", got)
	}
}

func TestPromotion(t *testing.T) {
	cases := []struct {
		name     string
		typ      reflect.Type
		method   string
		promoted bool
		path     []int
		iface    bool
	}{
		{"embedded interface", reflect.TypeOf(&Abstract{}), "Greet", true, []int{0}, true},
		{"pointer receiver of embedded value", reflect.TypeOf(&Concrete{}), "Save", true, []int{0}, false},
		{"value receiver of embedded value", reflect.TypeOf(&Concrete{}), "ID", true, []int{0}, false},
		{"declared", reflect.TypeOf(&Concrete{}), "Own", false, nil, false},
		{"shadowed", reflect.TypeOf(&Shadow{}), "ID", false, nil, false},
		{"two levels", reflect.TypeOf(&Deep{}), "Save", true, []int{0, 0}, false},
		{"not a struct", reflect.TypeFor[Greeter](), "Greet", false, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := uref.Promotion(tc.typ, tc.method, 0)
			if ok != tc.promoted {
				t.Fatalf("Promotion(%v, %s) ok = %v, want %v", tc.typ, tc.method, ok, tc.promoted)
			}
			if !ok {
				return
			}
			if !reflect.DeepEqual(got.Path, tc.path) {
				t.Fatalf("Promotion path = %v, want %v", got.Path, tc.path)
			}
			if got.Interface != tc.iface {
				t.Fatalf("Promotion interface = %v, want %v", got.Interface, tc.iface)
			}
		})
	}
}
