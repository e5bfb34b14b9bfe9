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

// Package synth is the type synthesis backend.
//
// Go cannot declare types at run time, so a generated type is a frozen
// dispatch table: one entry per generated member, each pointing at the
// backing field it reaches and at the action that performs the real call.
// The composer describes what to build as a Shape; a Backend turns the
// Shape into a *Type. Table is the default Backend.
package synth

import (
	"reflect"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/member"
	uref "dirpx.dev/dpx/utils/reflect"
)

// Action performs the real behavior of a member against recv, the current
// value of the member's backing field. It returns the member's non-error
// results and its error result (or a terminal failure).
type Action func(recv reflect.Value, args []reflect.Value) ([]reflect.Value, error)

// FieldKind tells backing fields apart.
type FieldKind uint8

const (
	// FieldTarget holds the proxy target. It is the only field that can be
	// replaced after construction.
	FieldTarget FieldKind = iota + 1
	// FieldBase holds the allocated base instance of an interface proxy.
	FieldBase
	// FieldMixin holds one mixin value.
	FieldMixin
	// FieldSelf is the proxy instance itself.
	FieldSelf
)

func (k FieldKind) String() string {
	switch k {
	case FieldTarget:
		return "target"
	case FieldBase:
		return "base"
	case FieldMixin:
		return "mixin"
	case FieldSelf:
		return "self"
	default:
		return "unknown"
	}
}

// Well-known field names.
const (
	TargetField = "target"
	BaseField   = "base"
	SelfField   = "self"
)

// MixinField returns the backing field name of mixin interface t.
func MixinField(t reflect.Type) string {
	return "mixin:" + uref.Name(t)
}

// Field is one backing field of a generated type.
type Field struct {
	Name string
	Kind FieldKind
	// Type is the type values stored in the field must be assignable to.
	Type reflect.Type
}

// Member is one entry of the dispatch table.
type Member struct {
	Descriptor member.Descriptor
	// Field names the backing field the action runs against; empty when
	// there is none (target-omitted members).
	Field string
	// Action is the terminal action, or the whole body of a forwarding
	// member.
	Action Action
}

// Name returns the member name.
func (m Member) Name() string { return m.Descriptor.Name() }

// Policy returns the member's dispatch policy.
func (m Member) Policy() apis.Policy { return m.Descriptor.Policy() }

// Intercepted reports whether calls run through the interceptor chain.
func (m Member) Intercepted() bool { return m.Descriptor.Policy() == apis.Intercept }

// Shape describes a generated type before synthesis.
type Shape struct {
	Key        string
	Kind       apis.Kind
	Target     reflect.Type
	Base       reflect.Type
	Interfaces []reflect.Type
	Mixins     []reflect.Type
	Fields     []Field
	// Members are emitted in order: class-target, interface, mixin, then
	// diagnostics members.
	Members []Member
	// Skipped holds members excluded from the generated surface. Their
	// actions are kept so that calls can still reach the backing value
	// directly.
	Skipped    []Member
	Properties []member.Property
	Events     []member.Event
	Tags       map[string]string

	AllowTargetReplacement bool
	Serializable           bool
}

// Backend synthesizes generated types.
type Backend interface {
	Synthesize(s Shape) (*Type, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(s Shape) (*Type, error)

// Synthesize implements Backend.
func (f BackendFunc) Synthesize(s Shape) (*Type, error) { return f(s) }
