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

// Property pairs a getter X() T with a setter SetX(T).
type Property struct {
	Name string
	Type reflect.Type
	Get  Descriptor
	Set  Descriptor
}

// Event pairs an adder AddX(F) with a remover RemoveX(F), F being a func
// type.
type Event struct {
	Name    string
	Handler reflect.Type
	Add     Descriptor
	Remove  Descriptor
}

// Descriptors returns the two halves of p in accessor order.
func (p Property) Descriptors() []Descriptor { return []Descriptor{p.Get, p.Set} }

// Descriptors returns the two halves of e in accessor order.
func (e Event) Descriptors() []Descriptor { return []Descriptor{e.Add, e.Remove} }

// PropertyShape reports whether getter and setter form property name with
// value type t.
func PropertyShape(getter, setter Signature) (name string, t reflect.Type, ok bool) {
	name, ok = strings.CutPrefix(setter.Name, "Set")
	if !ok || name == "" || name != getter.Name {
		return "", nil, false
	}
	if len(getter.In) != 0 || len(getter.Out) != 1 || getter.Out[0] == errorType {
		return "", nil, false
	}
	if len(setter.In) != 1 || len(setter.Out) != 0 || setter.Variadic {
		return "", nil, false
	}
	if setter.In[0] != getter.Out[0] {
		return "", nil, false
	}
	return name, getter.Out[0], true
}

// EventShape reports whether adder and remover form event name with
// handler type h.
func EventShape(adder, remover Signature) (name string, h reflect.Type, ok bool) {
	name, ok = strings.CutPrefix(adder.Name, "Add")
	if !ok || name == "" {
		return "", nil, false
	}
	if rn, _ := strings.CutPrefix(remover.Name, "Remove"); rn != name || remover.Name == rn {
		return "", nil, false
	}
	for _, s := range []Signature{adder, remover} {
		if len(s.In) != 1 || len(s.Out) != 0 || s.Variadic || s.In[0].Kind() != reflect.Func {
			return "", nil, false
		}
	}
	if adder.In[0] != remover.In[0] {
		return "", nil, false
	}
	return name, adder.In[0], true
}
