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

package apis

import (
	"fmt"
	"strings"
)

// Policy is the dispatch policy of one generated member.
//
// The zero value, PolicyUnset, is not a decision. A hook that returns it
// makes member collection fail.
type Policy uint8

const (
	// PolicyUnset means no decision was made.
	PolicyUnset Policy = iota
	// Intercept routes calls through the interceptor chain.
	Intercept
	// Forward calls straight through to the backing value, never consulting
	// interceptors.
	Forward
	// Skip excludes the member from the generated surface.
	Skip
)

// String returns a stable token for p.
func (p Policy) String() string {
	switch p {
	case PolicyUnset:
		return "Unset"
	case Intercept:
		return "Intercept"
	case Forward:
		return "Forward"
	case Skip:
		return "Skip"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// Valid reports whether p is a real decision.
func (p Policy) Valid() bool {
	return p == Intercept || p == Forward || p == Skip
}

// ParsePolicy parses a policy token case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INTERCEPT":
		return Intercept, nil
	case "FORWARD":
		return Forward, nil
	case "SKIP":
		return Skip, nil
	default:
		return PolicyUnset, fmt.Errorf("dpx(apis): unknown policy %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("dpx(apis): cannot marshal policy %d", p)
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	v, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Source identifies which kind of contributor produced a member.
// Lower values win member conflicts.
type Source uint8

const (
	// SourceClassTarget is the concrete target (or base) type.
	SourceClassTarget Source = iota + 1
	// SourceInterface is an explicitly requested interface.
	SourceInterface
	// SourceMixin is a mixin interface backed by a per-instance value.
	SourceMixin
	// SourceDiagnostics covers infrastructure members (target accessor,
	// serialization state).
	SourceDiagnostics
)

// String returns a stable token for s.
func (s Source) String() string {
	switch s {
	case SourceClassTarget:
		return "class"
	case SourceInterface:
		return "interface"
	case SourceMixin:
		return "mixin"
	case SourceDiagnostics:
		return "diagnostics"
	default:
		return fmt.Sprintf("source(%d)", s)
	}
}

// Outranks reports whether s wins a member conflict against o.
func (s Source) Outranks(o Source) bool {
	return s < o
}

// Kind is the shape of proxy being generated.
type Kind uint8

const (
	// ClassProxy wraps a concrete type; its base implementation is the
	// backing instance.
	ClassProxy Kind = iota + 1
	// InterfaceWithTarget implements an interface by forwarding to a target.
	InterfaceWithTarget
	// InterfaceWithoutTarget implements an interface with no real
	// implementation behind it; interceptors must supply results.
	InterfaceWithoutTarget
)

// String returns a stable token for k.
func (k Kind) String() string {
	switch k {
	case ClassProxy:
		return "class"
	case InterfaceWithTarget:
		return "interface-with-target"
	case InterfaceWithoutTarget:
		return "interface-without-target"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// HasTarget reports whether proxies of kind k carry a backing target.
func (k Kind) HasTarget() bool {
	return k == ClassProxy || k == InterfaceWithTarget
}

// ParseKind parses a kind token as produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "class":
		return ClassProxy, nil
	case "interface-with-target":
		return InterfaceWithTarget, nil
	case "interface-without-target":
		return InterfaceWithoutTarget, nil
	default:
		return 0, fmt.Errorf("dpx(apis): unknown proxy kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case ClassProxy, InterfaceWithTarget, InterfaceWithoutTarget:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("dpx(apis): cannot marshal proxy kind %d", k)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
