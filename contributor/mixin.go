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

// Mixin contributes a mixin interface backed by a per-instance value. An
// empty mixin (an interface without methods) contributes only its backing
// field.
type Mixin struct {
	typ   reflect.Type
	field synth.Field
}

var _ Contributor = (*Mixin)(nil)

// NewMixin contributes the mixin interface t.
func NewMixin(t reflect.Type) *Mixin {
	return &Mixin{typ: t, field: synth.Field{Name: synth.MixinField(t), Kind: synth.FieldMixin, Type: t}}
}

// Empty reports whether the mixin has no members.
func (c *Mixin) Empty() bool { return c.typ.NumMethod() == 0 }

func (c *Mixin) ID() string            { return "mixin:" + uref.Name(c.typ) }
func (c *Mixin) Source() apis.Source   { return apis.SourceMixin }
func (c *Mixin) Type() reflect.Type    { return c.typ }
func (c *Mixin) Fields() []synth.Field { return []synth.Field{c.field} }

func (c *Mixin) Collect(env Env) (collector.Result, error) {
	if c.Empty() {
		return collector.Result{}, nil
	}
	return collect(c, env)
}

func (c *Mixin) Emit(d member.Descriptor) (synth.Member, error) {
	return synth.Member{Descriptor: d, Field: c.field.Name, Action: forward(d)}, nil
}
