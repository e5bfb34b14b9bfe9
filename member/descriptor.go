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
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"dirpx.dev/dpx/apis"
)

var (
	// ErrNoSource is returned when a descriptor has no declaring type.
	ErrNoSource = errors.New("dpx(member): descriptor has no source type")
	// ErrNoName is returned when a descriptor has no member name.
	ErrNoName = errors.New("dpx(member): descriptor has no name")
	// ErrBadPolicy is returned when a descriptor carries no valid policy.
	ErrBadPolicy = errors.New("dpx(member): descriptor has no valid policy")
)

// Role tells ordinary methods apart from property and event halves.
type Role uint8

const (
	// RoleMethod is an ordinary, standalone method.
	RoleMethod Role = iota
	// RoleGetter is the X() T half of property X.
	RoleGetter
	// RoleSetter is the SetX(T) half of property X.
	RoleSetter
	// RoleAdder is the AddX(F) half of event X.
	RoleAdder
	// RoleRemover is the RemoveX(F) half of event X.
	RoleRemover
)

func (r Role) String() string {
	switch r {
	case RoleMethod:
		return "method"
	case RoleGetter:
		return "getter"
	case RoleSetter:
		return "setter"
	case RoleAdder:
		return "adder"
	case RoleRemover:
		return "remover"
	default:
		return fmt.Sprintf("role(%d)", r)
	}
}

// Slot locates the original implementation of a member on the type that
// provides it.
type Slot struct {
	// Path is the embedded field index path for methods promoted from an
	// embedded field; empty for methods declared on the type itself.
	Path []int
	// Field is the name of the embedded field at the end of Path.
	Field string
	// Abstract reports that the member is promoted from an embedded
	// interface and has no implementation while that field is nil.
	Abstract bool
}

// Promoted reports whether the slot points into an embedded field.
func (s Slot) Promoted() bool { return len(s.Path) > 0 }

// Input carries everything New needs.
type Input struct {
	Source      reflect.Type
	Method      reflect.Method
	Role        Role
	Policy      apis.Policy
	Kind        apis.Source
	Contributor string
	Slot        Slot
	Metadata    map[string]string
}

// Descriptor describes one candidate member. It is immutable: getters
// return copies of every reference-typed field.
type Descriptor struct {
	source      reflect.Type
	method      reflect.Method
	sig         Signature
	role        Role
	policy      apis.Policy
	kind        apis.Source
	contributor string
	slot        Slot
	metadata    map[string]string
}

// New validates in and builds a Descriptor.
func New(in Input) (Descriptor, error) {
	switch {
	case in.Source == nil:
		return Descriptor{}, ErrNoSource
	case in.Method.Name == "":
		return Descriptor{}, ErrNoName
	case !in.Policy.Valid():
		return Descriptor{}, fmt.Errorf("%w: %s.%s", ErrBadPolicy, in.Source, in.Method.Name)
	}
	d := Descriptor{
		source:      in.Source,
		method:      in.Method,
		sig:         SignatureOf(in.Source, in.Method),
		role:        in.Role,
		policy:      in.Policy,
		kind:        in.Kind,
		contributor: in.Contributor,
		slot: Slot{
			Path:     slices.Clone(in.Slot.Path),
			Field:    in.Slot.Field,
			Abstract: in.Slot.Abstract,
		},
	}
	if len(in.Metadata) > 0 {
		d.metadata = maps.Clone(in.Metadata)
	}
	return d, nil
}

// Source returns the declaring source type.
func (d Descriptor) Source() reflect.Type { return d.source }

// Method returns the member as reported by reflection on Source.
func (d Descriptor) Method() reflect.Method { return d.method }

// Name returns the member name.
func (d Descriptor) Name() string { return d.sig.Name }

// Signature returns a copy of the member signature.
func (d Descriptor) Signature() Signature {
	s := d.sig
	s.In = slices.Clone(s.In)
	s.Out = slices.Clone(s.Out)
	return s
}

// Role returns the member role.
func (d Descriptor) Role() Role { return d.role }

// Standalone reports whether the member is an ordinary method rather than
// one half of a property or event.
func (d Descriptor) Standalone() bool { return d.role == RoleMethod }

// Policy returns the dispatch policy fixed at collection time.
func (d Descriptor) Policy() apis.Policy { return d.policy }

// Kind returns the kind of source that produced the member.
func (d Descriptor) Kind() apis.Source { return d.kind }

// Contributor returns the identifier of the contributor that produced the
// member. It is a reference, not ownership.
func (d Descriptor) Contributor() string { return d.contributor }

// Slot returns a copy of the member's original slot.
func (d Descriptor) Slot() Slot {
	s := d.slot
	s.Path = slices.Clone(s.Path)
	return s
}

// Abstract reports whether the member may have no implementation.
func (d Descriptor) Abstract() bool { return d.slot.Abstract }

// Metadata returns a copy of the member annotations.
func (d Descriptor) Metadata() map[string]string { return maps.Clone(d.metadata) }

// Tag returns one annotation value.
func (d Descriptor) Tag(key string) (string, bool) {
	v, ok := d.metadata[key]
	return v, ok
}

// IsZero reports whether d is the zero Descriptor.
func (d Descriptor) IsZero() bool { return d.source == nil }

// String renders "source.Signature [policy]".
func (d Descriptor) String() string {
	return fmt.Sprintf("%v.%s [%s]", d.source, d.sig, d.policy)
}
