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
	"reflect"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/collector"
	"dirpx.dev/dpx/member"
	"dirpx.dev/dpx/synth"
	uref "dirpx.dev/dpx/utils/reflect"
)

// ClassTarget contributes the method set of a concrete type. Its terminal
// actions call the original implementation on the backing instance, going
// through the recorded slot for promoted members.
type ClassTarget struct {
	typ   reflect.Type
	field synth.Field
}

var _ Contributor = (*ClassTarget)(nil)

// NewClassTarget contributes t's members backed by the proxy target.
func NewClassTarget(t reflect.Type) *ClassTarget {
	return &ClassTarget{typ: t, field: synth.Field{Name: synth.TargetField, Kind: synth.FieldTarget, Type: t}}
}

// NewBase contributes the members of the base type of an interface proxy,
// backed by an instance the proxy allocates.
func NewBase(t reflect.Type) *ClassTarget {
	return &ClassTarget{typ: t, field: synth.Field{Name: synth.BaseField, Kind: synth.FieldBase, Type: t}}
}

func (c *ClassTarget) ID() string {
	if c.field.Kind == synth.FieldBase {
		return "base:" + uref.Name(c.typ)
	}
	return "class:" + uref.Name(c.typ)
}

func (c *ClassTarget) Source() apis.Source   { return apis.SourceClassTarget }
func (c *ClassTarget) Type() reflect.Type    { return c.typ }
func (c *ClassTarget) Fields() []synth.Field { return []synth.Field{c.field} }

func (c *ClassTarget) Collect(env Env) (collector.Result, error) {
	return collect(c, env)
}

// Emit builds a member whose action is the callback to the base
// implementation. Abstract members fail with apis.ErrAbstractMember while
// their embedded interface is nil.
func (c *ClassTarget) Emit(d member.Descriptor) (synth.Member, error) {
	sig := d.Signature()
	slot := d.Slot()
	action := func(recv reflect.Value, args []reflect.Value) ([]reflect.Value, error) {
		if nilValue(recv) {
			return nil, terminal(d, apis.ErrNoTarget)
		}
		if slot.Promoted() {
			fv, ok := embedded(recv, slot.Path)
			if slot.Abstract && (!ok || nilValue(fv)) {
				return nil, terminal(d, apis.ErrAbstractMember)
			}
			if ok && !nilValue(fv) {
				if fn := methodOf(fv, sig.Name); fn.IsValid() {
					return call(fn, args, sig)
				}
			}
		}
		fn := methodOf(recv, sig.Name)
		if !fn.IsValid() {
			return nil, terminal(d, apis.ErrAbstractMember)
		}
		return call(fn, args, sig)
	}
	return synth.Member{Descriptor: d, Field: c.field.Name, Action: action}, nil
}
