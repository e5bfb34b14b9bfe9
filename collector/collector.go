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

// Package collector inspects one member source (a class target, an
// additional interface or a mixin interface) and yields its member
// descriptors with their dispatch policies.
package collector

import (
	"fmt"
	"log/slog"
	"reflect"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/member"
	"dirpx.dev/dpx/metadata"
	uref "dirpx.dev/dpx/utils/reflect"
)

// SealedTag is the struct tag that seals every member promoted through an
// embedded field: `dpx:"sealed"`.
const SealedTag = "sealed"

// Input is what Collect needs to inspect one source.
type Input struct {
	// Source is the type whose method set is inspected.
	Source reflect.Type
	// Kind selects the collection rules.
	Kind apis.Source
	// Contributor identifies the contributor the descriptors belong to.
	Contributor string
	// Hook decides per member. nil intercepts everything.
	Hook apis.Hook
	// Known holds member names that were already collected from another
	// view of the same source; they are left out entirely.
	Known map[string]struct{}
	// Metadata provides annotations and sealed marks. nil uses
	// metadata.Default().
	Metadata *metadata.Registry
	// MaxEmbedDepth bounds the embedded field search.
	MaxEmbedDepth int
	// Logger receives debug lines for excluded members.
	Logger *slog.Logger
}

// Result is the ordered output of Collect: properties, then events, then
// standalone methods, each in declaration order.
type Result struct {
	Properties []member.Property
	Events     []member.Event
	Methods    []member.Descriptor
}

// Descriptors flattens r in emission order.
func (r Result) Descriptors() []member.Descriptor {
	out := make([]member.Descriptor, 0, 2*len(r.Properties)+2*len(r.Events)+len(r.Methods))
	for _, p := range r.Properties {
		out = append(out, p.Get, p.Set)
	}
	for _, e := range r.Events {
		out = append(out, e.Add, e.Remove)
	}
	return append(out, r.Methods...)
}

// Len returns the number of descriptors in r.
func (r Result) Len() int {
	return 2*len(r.Properties) + 2*len(r.Events) + len(r.Methods)
}

type candidate struct {
	m      reflect.Method
	sig    member.Signature
	policy apis.Policy
	slot   member.Slot
	from   reflect.Type
	role   member.Role
	used   bool
}

// Collect inspects in.Source. Every candidate gets a decision from the
// hook, except sealed and inaccessible members, which are skipped without
// asking and reported through Hook.NonProxyable. A hook that returns no
// decision fails collection with a *apis.GenerationError.
func Collect(in Input) (Result, error) {
	if err := validate(in); err != nil {
		return Result{}, err
	}
	hook := in.Hook
	if hook == nil {
		hook = AllMethodsHook{}
	}
	reg := in.Metadata
	if reg == nil {
		reg = metadata.Default()
	}
	log := in.Logger
	if log == nil {
		log = slog.Default()
	}

	cands := make([]*candidate, 0, in.Source.NumMethod())
	byName := make(map[string]*candidate, in.Source.NumMethod())
	for i := 0; i < in.Source.NumMethod(); i++ {
		m := in.Source.Method(i)
		if _, known := in.Known[m.Name]; known {
			continue
		}
		c := &candidate{m: m, sig: member.SignatureOf(in.Source, m)}
		reason := inspect(in, reg, c)
		if reason != nil {
			c.policy = apis.Skip
			hook.NonProxyable(in.Source, m, reason)
			log.Debug("dpx: member excluded from proxy",
				"type", uref.Name(in.Source),
				"member", m.Name,
				"reason", reason,
			)
		} else {
			c.policy = hook.ShouldIntercept(in.Source, m)
			if !c.policy.Valid() {
				return Result{}, &apis.GenerationError{Type: in.Source, Member: m.Name, Err: apis.ErrNoDecision}
			}
		}
		cands = append(cands, c)
		byName[m.Name] = c
	}

	var res Result
	for _, c := range cands {
		if c.used {
			continue
		}
		set, ok := byName["Set"+c.m.Name]
		if !ok || set.used {
			continue
		}
		name, typ, ok := member.PropertyShape(c.sig, set.sig)
		if !ok {
			continue
		}
		c.role, set.role = member.RoleGetter, member.RoleSetter
		get, err := describe(in, reg, c)
		if err != nil {
			return Result{}, err
		}
		put, err := describe(in, reg, set)
		if err != nil {
			return Result{}, err
		}
		c.used, set.used = true, true
		res.Properties = append(res.Properties, member.Property{Name: name, Type: typ, Get: get, Set: put})
	}
	for _, c := range cands {
		if c.used {
			continue
		}
		ev, ok := eventPair(c, byName)
		if !ok {
			continue
		}
		name, h, ok := member.EventShape(c.sig, ev.sig)
		if !ok {
			continue
		}
		c.role, ev.role = member.RoleAdder, member.RoleRemover
		add, err := describe(in, reg, c)
		if err != nil {
			return Result{}, err
		}
		rem, err := describe(in, reg, ev)
		if err != nil {
			return Result{}, err
		}
		c.used, ev.used = true, true
		res.Events = append(res.Events, member.Event{Name: name, Handler: h, Add: add, Remove: rem})
	}
	for _, c := range cands {
		if c.used {
			continue
		}
		c.role = member.RoleMethod
		d, err := describe(in, reg, c)
		if err != nil {
			return Result{}, err
		}
		c.used = true
		res.Methods = append(res.Methods, d)
	}
	return res, nil
}

func eventPair(c *candidate, byName map[string]*candidate) (*candidate, bool) {
	if len(c.m.Name) <= len("Add") || c.m.Name[:3] != "Add" {
		return nil, false
	}
	rem, ok := byName["Remove"+c.m.Name[3:]]
	if !ok || rem.used {
		return nil, false
	}
	return rem, true
}

func validate(in Input) error {
	if in.Source == nil {
		return &apis.GenerationError{Err: fmt.Errorf("%w: nil source type", apis.ErrInvalidRequest)}
	}
	switch in.Kind {
	case apis.SourceClassTarget:
		if in.Source.Kind() == reflect.Interface {
			return &apis.GenerationError{Type: in.Source, Err: fmt.Errorf("%w: class source must be a concrete type", apis.ErrInvalidRequest)}
		}
	case apis.SourceInterface, apis.SourceMixin, apis.SourceDiagnostics:
		if in.Source.Kind() != reflect.Interface {
			return &apis.GenerationError{Type: in.Source, Err: fmt.Errorf("%w: %s source must be an interface", apis.ErrInvalidRequest, in.Kind)}
		}
	default:
		return &apis.GenerationError{Type: in.Source, Err: fmt.Errorf("%w: unknown source kind %s", apis.ErrInvalidRequest, in.Kind)}
	}
	return nil
}

// inspect fills the slot of c and returns the reason it cannot be
// proxied, if any.
func inspect(in Input, reg *metadata.Registry, c *candidate) error {
	if c.m.PkgPath != "" {
		return apis.ErrInaccessible
	}
	if reg.Sealed(in.Source, c.m.Name) {
		return apis.ErrSealed
	}
	if in.Kind != apis.SourceClassTarget {
		return nil
	}

	p, ok := uref.Promotion(in.Source, c.m.Name, in.MaxEmbedDepth)
	if !ok {
		return nil
	}
	c.slot = member.Slot{Path: p.Path, Field: p.Field.Name, Abstract: p.Interface}
	c.from = p.Field.Type
	for _, f := range fieldsAlong(in.Source, p.Path) {
		if f.Tag.Get("dpx") == SealedTag {
			return apis.ErrSealed
		}
	}
	if reg.Sealed(p.Field.Type, c.m.Name) {
		return apis.ErrSealed
	}
	return nil
}

func describe(in Input, reg *metadata.Registry, c *candidate) (member.Descriptor, error) {
	d, err := member.New(member.Input{
		Source:      in.Source,
		Method:      c.m,
		Role:        c.role,
		Policy:      c.policy,
		Kind:        in.Kind,
		Contributor: in.Contributor,
		Slot:        c.slot,
		Metadata:    reg.Collect(in.Source, c.m.Name, c.from),
	})
	if err != nil {
		return member.Descriptor{}, &apis.GenerationError{Type: in.Source, Member: c.m.Name, Err: err}
	}
	return d, nil
}

// fieldsAlong returns the struct fields visited by path starting at t.
func fieldsAlong(t reflect.Type, path []int) []reflect.StructField {
	out := make([]reflect.StructField, 0, len(path))
	for _, i := range path {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct || i >= t.NumField() {
			break
		}
		f := t.Field(i)
		out = append(out, f)
		t = f.Type
	}
	return out
}
