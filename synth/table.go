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

package synth

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/zeebo/xxh3"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/member"
	uref "dirpx.dev/dpx/utils/reflect"
)

var (
	// ErrNoKey is returned for shapes without a cache key.
	ErrNoKey = errors.New("dpx(synth): shape has no key")
	// ErrDuplicateMember is returned when two members share a name.
	ErrDuplicateMember = errors.New("dpx(synth): duplicate member")
	// ErrUnknownField is returned when a member references a field the
	// shape does not declare.
	ErrUnknownField = errors.New("dpx(synth): unknown backing field")
	// ErrNoAction is returned for a member without an action.
	ErrNoAction = errors.New("dpx(synth): member has no action")
)

// Table is the default Backend: it validates the shape and freezes it into
// a dispatch table.
type Table struct{}

var _ Backend = Table{}

// Synthesize implements Backend.
func (Table) Synthesize(s Shape) (*Type, error) {
	if s.Key == "" {
		return nil, ErrNoKey
	}
	t := &Type{
		id:      fmt.Sprintf("%016x", xxh3.HashString(s.Key)),
		shape:   freeze(s),
		members: make(map[string]int, len(s.Members)),
		skipped: make(map[string]int, len(s.Skipped)),
		fields:  make(map[string]int, len(s.Fields)),
	}
	t.name = fmt.Sprintf("Proxy[%s]#%s", uref.Name(s.Target), t.id[:8])

	for i, f := range t.shape.Fields {
		if _, dup := t.fields[f.Name]; dup {
			return nil, fmt.Errorf("dpx(synth): duplicate field %q", f.Name)
		}
		t.fields[f.Name] = i
	}
	check := func(m Member) error {
		if m.Action == nil {
			return fmt.Errorf("%w: %s", ErrNoAction, m.Name())
		}
		if m.Field == "" {
			return nil
		}
		if _, ok := t.fields[m.Field]; !ok {
			return fmt.Errorf("%w: %s reaches %q", ErrUnknownField, m.Name(), m.Field)
		}
		return nil
	}
	for i, m := range t.shape.Members {
		if _, dup := t.members[m.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, m.Name())
		}
		if err := check(m); err != nil {
			return nil, err
		}
		t.members[m.Name()] = i
	}
	for i, m := range t.shape.Skipped {
		if _, dup := t.members[m.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, m.Name())
		}
		if _, dup := t.skipped[m.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, m.Name())
		}
		if err := check(m); err != nil {
			return nil, err
		}
		t.skipped[m.Name()] = i
	}
	return t, nil
}

func freeze(s Shape) Shape {
	s.Interfaces = slices.Clone(s.Interfaces)
	s.Mixins = slices.Clone(s.Mixins)
	s.Fields = slices.Clone(s.Fields)
	s.Members = slices.Clone(s.Members)
	s.Skipped = slices.Clone(s.Skipped)
	s.Properties = slices.Clone(s.Properties)
	s.Events = slices.Clone(s.Events)
	s.Tags = maps.Clone(s.Tags)
	return s
}

// Type is a generated type. It is immutable and shared by every proxy
// built from it; identity (pointer equality) is meaningful.
type Type struct {
	id      string
	name    string
	shape   Shape
	members map[string]int
	skipped map[string]int
	fields  map[string]int
}

// ID returns the hex fingerprint of the type's key.
func (t *Type) ID() string { return t.id }

// Name returns a readable name such as "Proxy[*billing.Service]#1a2b3c4d".
func (t *Type) Name() string { return t.name }

// String implements fmt.Stringer.
func (t *Type) String() string { return t.name }

// Key returns the canonical request key the type was built for.
func (t *Type) Key() string { return t.shape.Key }

// Kind returns the proxy kind.
func (t *Type) Kind() apis.Kind { return t.shape.Kind }

// Target returns the target type.
func (t *Type) Target() reflect.Type { return t.shape.Target }

// Base returns the base type of an interface proxy, or nil.
func (t *Type) Base() reflect.Type { return t.shape.Base }

// Interfaces returns the additional interfaces, sorted.
func (t *Type) Interfaces() []reflect.Type { return slices.Clone(t.shape.Interfaces) }

// Mixins returns the mixin interfaces, sorted.
func (t *Type) Mixins() []reflect.Type { return slices.Clone(t.shape.Mixins) }

// Fields returns the backing fields.
func (t *Type) Fields() []Field { return slices.Clone(t.shape.Fields) }

// Field returns the backing field called name.
func (t *Type) Field(name string) (Field, bool) {
	i, ok := t.fields[name]
	if !ok {
		return Field{}, false
	}
	return t.shape.Fields[i], true
}

// Members returns the generated members in emission order.
func (t *Type) Members() []Member { return slices.Clone(t.shape.Members) }

// Member returns the generated member called name.
func (t *Type) Member(name string) (Member, bool) {
	i, ok := t.members[name]
	if !ok {
		return Member{}, false
	}
	return t.shape.Members[i], true
}

// Skipped returns the members excluded from the generated surface.
func (t *Type) Skipped() []Member { return slices.Clone(t.shape.Skipped) }

// SkippedMember returns the excluded member called name.
func (t *Type) SkippedMember(name string) (Member, bool) {
	i, ok := t.skipped[name]
	if !ok {
		return Member{}, false
	}
	return t.shape.Skipped[i], true
}

// Properties returns the generated properties.
func (t *Type) Properties() []member.Property { return slices.Clone(t.shape.Properties) }

// Events returns the generated events.
func (t *Type) Events() []member.Event { return slices.Clone(t.shape.Events) }

// Tags returns the type-level tags copied from the target type.
func (t *Type) Tags() map[string]string { return maps.Clone(t.shape.Tags) }

// AllowsTargetReplacement reports whether invocations may swap targets.
func (t *Type) AllowsTargetReplacement() bool { return t.shape.AllowTargetReplacement }

// Serializable reports whether proxies of t export their state.
func (t *Type) Serializable() bool { return t.shape.Serializable }

// Implements reports whether t's generated surface covers every method of
// interface iface.
func (t *Type) Implements(iface reflect.Type) bool {
	if iface == nil || iface.Kind() != reflect.Interface {
		return false
	}
	for i := 0; i < iface.NumMethod(); i++ {
		m := iface.Method(i)
		gm, ok := t.Member(m.Name)
		if !ok {
			gm, ok = t.SkippedMember(m.Name)
		}
		if !ok {
			return false
		}
		sig := gm.Descriptor.Signature()
		if sig.FuncType() != m.Type {
			return false
		}
	}
	return true
}
