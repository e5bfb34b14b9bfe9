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
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrNoDecision is reported when a hook returns PolicyUnset (or an
	// unknown policy) for a candidate member.
	ErrNoDecision = errors.New("dpx: hook returned no dispatch decision")
	// ErrSignatureConflict is reported when two sources contribute members
	// with the same name but different signatures.
	ErrSignatureConflict = errors.New("dpx: conflicting member signatures")
	// ErrInvalidRequest is reported for malformed proxy requests.
	ErrInvalidRequest = errors.New("dpx: invalid proxy request")
	// ErrSealed marks members that cannot be intercepted because they are
	// sealed. It is passed to Hook.NonProxyable, never returned.
	ErrSealed = errors.New("dpx: member is sealed")
	// ErrInaccessible marks unexported interface members. It is passed to
	// Hook.NonProxyable, never returned.
	ErrInaccessible = errors.New("dpx: member is not accessible")

	// ErrUnresolved is reported when no strategy handled a reference.
	ErrUnresolved = errors.New("dpx: interceptor reference not resolved")
	// ErrNotInterceptor is reported when a resolved object does not
	// implement Interceptor.
	ErrNotInterceptor = errors.New("dpx: resolved object is not an interceptor")

	// ErrNoTarget is the terminal failure of a target-omitted member whose
	// chain completed without an interceptor supplying results.
	ErrNoTarget = errors.New("dpx: no target to proceed to")
	// ErrAbstractMember is the terminal failure of a member promoted from a
	// nil embedded interface.
	ErrAbstractMember = errors.New("dpx: member has no implementation")
)

// GenerationError reports an unsatisfiable proxy request. It is returned by
// the type composer before anything is published to the type cache.
type GenerationError struct {
	// Type is the target (or offending source) type.
	Type reflect.Type
	// Member is the offending member name, if any.
	Member string
	// Err is the underlying cause.
	Err error
}

func (e *GenerationError) Error() string {
	switch {
	case e.Type != nil && e.Member != "":
		return fmt.Sprintf("dpx: cannot generate proxy for %v: member %s: %v", e.Type, e.Member, e.Err)
	case e.Type != nil:
		return fmt.Sprintf("dpx: cannot generate proxy for %v: %v", e.Type, e.Err)
	default:
		return fmt.Sprintf("dpx: cannot generate proxy: %v", e.Err)
	}
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ResolutionError reports an interceptor reference that could not be turned
// into a live interceptor. It surfaces at instance-build time.
type ResolutionError struct {
	// Ref is the reference as given by the caller.
	Ref any
	// Err is the underlying cause.
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("dpx: cannot resolve interceptor %v: %v", describeRef(e.Ref), e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// TerminalError reports a terminal action that could not run: no target,
// or an abstract member without implementation.
type TerminalError struct {
	// Type is the declaring type of the member.
	Type reflect.Type
	// Member is the member name.
	Member string
	// Err is ErrNoTarget or ErrAbstractMember.
	Err error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("dpx: %v.%s: %v", e.Type, e.Member, e.Err)
}

func (e *TerminalError) Unwrap() error { return e.Err }

func describeRef(ref any) string {
	switch r := ref.(type) {
	case nil:
		return "<nil>"
	case string:
		return fmt.Sprintf("%q", r)
	case reflect.Type:
		return r.String()
	case fmt.Stringer:
		return r.String()
	default:
		return fmt.Sprintf("%T", ref)
	}
}
