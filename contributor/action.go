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

package contributor

import (
	"fmt"
	"reflect"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/member"
	"dirpx.dev/dpx/synth"
)

// call invokes fn with args and splits off a trailing error result.
func call(fn reflect.Value, args []reflect.Value, sig member.Signature) ([]reflect.Value, error) {
	var out []reflect.Value
	if sig.Variadic {
		out = fn.CallSlice(args)
	} else {
		out = fn.Call(args)
	}
	if !sig.ReturnsError() {
		return out, nil
	}
	last := out[len(out)-1]
	out = out[:len(out)-1]
	if last.IsNil() {
		return out, nil
	}
	return out, last.Interface().(error)
}

func nilValue(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// methodOf looks name up on v, falling back to v's address so that pointer
// receiver methods of addressable embedded values are found.
func methodOf(v reflect.Value, name string) reflect.Value {
	if mv := v.MethodByName(name); mv.IsValid() {
		return mv
	}
	if v.CanAddr() {
		return v.Addr().MethodByName(name)
	}
	return reflect.Value{}
}

// embedded follows path from v through embedded fields. It reports false
// when a nil pointer is met on the way.
func embedded(v reflect.Value, path []int) (reflect.Value, bool) {
	for _, i := range path {
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct || i >= v.NumField() {
			return reflect.Value{}, false
		}
		v = v.Field(i)
	}
	return v, true
}

func terminal(d member.Descriptor, err error) error {
	return &apis.TerminalError{Type: d.Source(), Member: d.Name(), Err: err}
}

// forward calls the method called like d on recv.
func forward(d member.Descriptor) synth.Action {
	sig := d.Signature()
	return func(recv reflect.Value, args []reflect.Value) ([]reflect.Value, error) {
		if nilValue(recv) {
			return nil, terminal(d, apis.ErrNoTarget)
		}
		fn := methodOf(recv, sig.Name)
		if !fn.IsValid() {
			return nil, terminal(d, fmt.Errorf("%w: %s has no method %s", apis.ErrNoTarget, recv.Type(), sig.Name))
		}
		return call(fn, args, sig)
	}
}

// fail is the terminal action of target-omitted members.
func fail(d member.Descriptor) synth.Action {
	return func(reflect.Value, []reflect.Value) ([]reflect.Value, error) {
		return nil, terminal(d, apis.ErrNoTarget)
	}
}
