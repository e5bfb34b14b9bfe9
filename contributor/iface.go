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

// Interface contributes the methods of an explicitly requested interface.
// With a target, members forward to the proxy target; without one, the
// terminal action fails with apis.ErrNoTarget unless an interceptor
// supplies the results.
type Interface struct {
	typ    reflect.Type
	target reflect.Type
}

var _ Contributor = (*Interface)(nil)

// NewInterfaceWithTarget contributes iface backed by a target of type
// target.
func NewInterfaceWithTarget(iface, target reflect.Type) *Interface {
	return &Interface{typ: iface, target: target}
}

// NewInterfaceWithoutTarget contributes iface with no backing target.
func NewInterfaceWithoutTarget(iface reflect.Type) *Interface {
	return &Interface{typ: iface}
}

// HasTarget reports whether members forward to a target.
func (c *Interface) HasTarget() bool { return c.target != nil }

// Target returns the type of the backing target, or nil.
func (c *Interface) Target() reflect.Type { return c.target }

func (c *Interface) ID() string {
	if c.target == nil {
		return "interface(no target):" + uref.Name(c.typ)
	}
	return "interface:" + uref.Name(c.typ)
}

func (c *Interface) Source() apis.Source { return apis.SourceInterface }
func (c *Interface) Type() reflect.Type  { return c.typ }

func (c *Interface) Fields() []synth.Field {
	if c.target == nil {
		return nil
	}
	return []synth.Field{{Name: synth.TargetField, Kind: synth.FieldTarget, Type: c.target}}
}

func (c *Interface) Collect(env Env) (collector.Result, error) {
	return collect(c, env)
}

func (c *Interface) Emit(d member.Descriptor) (synth.Member, error) {
	if c.target == nil {
		return synth.Member{Descriptor: d, Action: fail(d)}, nil
	}
	return synth.Member{Descriptor: d, Field: synth.TargetField, Action: forward(d)}, nil
}
