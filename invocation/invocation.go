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

// Package invocation is the per-call runtime of generated members.
//
// An Invocation is created for every call to an intercepted member. It owns
// the call's arguments, results and chain position, and runs the
// interceptor chain: each Proceed hands control to the next interceptor,
// or to the terminal action once the chain is exhausted. The position only
// moves forward, so an interceptor that proceeds twice continues from where
// the chain stands rather than restarting it.
package invocation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/member"
	"dirpx.dev/dpx/synth"
)

var (
	// ErrTargetNotReplaceable is returned by SetTarget on proxies built
	// without target replacement.
	ErrTargetNotReplaceable = errors.New("dpx(invocation): target is not replaceable")
	// ErrTargetType is returned when a replacement target has the wrong
	// type.
	ErrTargetType = errors.New("dpx(invocation): replacement target has the wrong type")
	// ErrArgumentIndex is returned for out of range argument indexes.
	ErrArgumentIndex = errors.New("dpx(invocation): argument index out of range")
	// ErrArgumentType is returned when a value cannot be assigned to a
	// parameter.
	ErrArgumentType = errors.New("dpx(invocation): argument has the wrong type")
	// ErrResultType is returned when a value cannot be assigned to a result.
	ErrResultType = errors.New("dpx(invocation): result has the wrong type")
	// ErrResultCount is returned by SetResults with the wrong arity.
	ErrResultCount = errors.New("dpx(invocation): wrong number of results")
	// ErrVoid is returned by SetReturnValue on members without results.
	ErrVoid = errors.New("dpx(invocation): member has no return value")
)

// Config describes one call.
type Config struct {
	Context      context.Context
	Proxy        any
	Member       synth.Member
	Interceptors []apis.Interceptor
	Args         []reflect.Value
	// Target is the current value of the member's backing field.
	Target reflect.Value
	// TargetType is what replacement targets must be assignable to.
	TargetType reflect.Type
	// Replaceable allows SetTarget.
	Replaceable bool
	// Retarget makes a target change permanent. nil disables
	// SetProxyTarget.
	Retarget func(reflect.Value) error
}

// Invocation implements apis.Invocation. It must not be shared between
// calls.
type Invocation struct {
	ctx          context.Context
	proxy        any
	member       synth.Member
	sig          member.Signature
	interceptors []apis.Interceptor
	pos          int
	args         []reflect.Value
	results      []reflect.Value
	target       reflect.Value
	targetType   reflect.Type
	replaceable  bool
	retarget     func(reflect.Value) error
}

var _ apis.Invocation = (*Invocation)(nil)

// New prepares an invocation. The arguments are copied.
func New(cfg Config) *Invocation {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	sig := cfg.Member.Descriptor.Signature()
	vals := sig.Values()
	results := make([]reflect.Value, len(vals))
	for i, t := range vals {
		results[i] = reflect.New(t).Elem()
	}
	return &Invocation{
		ctx:          ctx,
		proxy:        cfg.Proxy,
		member:       cfg.Member,
		sig:          sig,
		interceptors: cfg.Interceptors,
		args:         copyValues(cfg.Args, sig.In),
		results:      results,
		target:       cfg.Target,
		targetType:   cfg.TargetType,
		replaceable:  cfg.Replaceable,
		retarget:     cfg.Retarget,
	}
}

// Run starts the chain and returns the non-error results and the error the
// chain ended with.
func (inv *Invocation) Run() ([]reflect.Value, error) {
	err := inv.Proceed()
	return slices.Clone(inv.results), err
}

// Proceed implements apis.Invocation.
func (inv *Invocation) Proceed() error {
	if inv.pos < len(inv.interceptors) {
		ic := inv.interceptors[inv.pos]
		inv.pos++
		return ic.Intercept(inv)
	}
	out, err := inv.member.Action(inv.target, slices.Clone(inv.args))
	if err != nil {
		return err
	}
	for i := range inv.results {
		if i < len(out) {
			inv.results[i] = out[i]
		}
	}
	return nil
}

// Position returns how many interceptors have been entered so far.
func (inv *Invocation) Position() int { return inv.pos }

// Context implements apis.Invocation.
func (inv *Invocation) Context() context.Context { return inv.ctx }

// Proxy implements apis.Invocation.
func (inv *Invocation) Proxy() any { return inv.proxy }

// Method implements apis.Invocation.
func (inv *Invocation) Method() reflect.Method { return inv.member.Descriptor.Method() }

// Descriptor returns the member descriptor.
func (inv *Invocation) Descriptor() member.Descriptor { return inv.member.Descriptor }

// DeclaringType implements apis.Invocation.
func (inv *Invocation) DeclaringType() reflect.Type { return inv.member.Descriptor.Source() }

// TargetType implements apis.Invocation.
func (inv *Invocation) TargetType() reflect.Type {
	if !inv.target.IsValid() {
		return nil
	}
	return inv.target.Type()
}

// MethodInvocationTarget returns the method the terminal action reaches on
// the current target.
func (inv *Invocation) MethodInvocationTarget() (reflect.Method, bool) {
	if !inv.target.IsValid() {
		return reflect.Method{}, false
	}
	return inv.target.Type().MethodByName(inv.sig.Name)
}

// Arguments implements apis.Invocation.
func (inv *Invocation) Arguments() []any {
	out := make([]any, len(inv.args))
	for i, a := range inv.args {
		out[i] = box(a)
	}
	return out
}

// Argument implements apis.Invocation. It returns nil for out of range
// indexes.
func (inv *Invocation) Argument(i int) any {
	if i < 0 || i >= len(inv.args) {
		return nil
	}
	return box(inv.args[i])
}

// SetArgument implements apis.Invocation.
func (inv *Invocation) SetArgument(i int, v any) error {
	if i < 0 || i >= len(inv.args) {
		return fmt.Errorf("%w: %d of %d", ErrArgumentIndex, i, len(inv.args))
	}
	rv, err := Assign(v, inv.sig.In[i])
	if err != nil {
		return fmt.Errorf("%w: %s argument %d: %w", ErrArgumentType, inv.sig.Name, i, err)
	}
	inv.args[i] = rv
	return nil
}

// ReturnValue implements apis.Invocation.
func (inv *Invocation) ReturnValue() any {
	if len(inv.results) == 0 {
		return apis.NoValue
	}
	return box(inv.results[0])
}

// SetReturnValue implements apis.Invocation.
func (inv *Invocation) SetReturnValue(v any) error {
	if len(inv.results) == 0 {
		return fmt.Errorf("%w: %s", ErrVoid, inv.sig.Name)
	}
	rv, err := Assign(v, inv.results[0].Type())
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrResultType, inv.sig.Name, err)
	}
	inv.results[0] = rv
	return nil
}

// Results implements apis.Invocation.
func (inv *Invocation) Results() []any {
	out := make([]any, len(inv.results))
	for i, r := range inv.results {
		out[i] = box(r)
	}
	return out
}

// SetResults implements apis.Invocation.
func (inv *Invocation) SetResults(vs ...any) error {
	if len(vs) != len(inv.results) {
		return fmt.Errorf("%w: %s wants %d, got %d", ErrResultCount, inv.sig.Name, len(inv.results), len(vs))
	}
	next := make([]reflect.Value, len(vs))
	for i, v := range vs {
		rv, err := Assign(v, inv.results[i].Type())
		if err != nil {
			return fmt.Errorf("%w: %s result %d: %w", ErrResultType, inv.sig.Name, i, err)
		}
		next[i] = rv
	}
	inv.results = next
	return nil
}

// Target implements apis.Invocation.
func (inv *Invocation) Target() any {
	return box(inv.target)
}

// SetTarget implements apis.Invocation.
func (inv *Invocation) SetTarget(t any) error {
	rv, err := inv.checkTarget(t)
	if err != nil {
		return err
	}
	inv.target = rv
	return nil
}

// SetProxyTarget implements apis.Invocation.
func (inv *Invocation) SetProxyTarget(t any) error {
	rv, err := inv.checkTarget(t)
	if err != nil {
		return err
	}
	if inv.retarget == nil {
		return fmt.Errorf("%w: %s does not reach the proxy target", ErrTargetNotReplaceable, inv.sig.Name)
	}
	if err := inv.retarget(rv); err != nil {
		return err
	}
	inv.target = rv
	return nil
}

func (inv *Invocation) checkTarget(t any) (reflect.Value, error) {
	if !inv.replaceable {
		return reflect.Value{}, ErrTargetNotReplaceable
	}
	if t == nil {
		return reflect.Value{}, fmt.Errorf("%w: nil", ErrTargetType)
	}
	rv := reflect.ValueOf(t)
	if inv.targetType != nil && !rv.Type().AssignableTo(inv.targetType) {
		return reflect.Value{}, fmt.Errorf("%w: %s is not assignable to %s", ErrTargetType, rv.Type(), inv.targetType)
	}
	return rv, nil
}

func box(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	if !v.CanInterface() {
		return nil
	}
	return v.Interface()
}

func copyValues(vs []reflect.Value, types []reflect.Type) []reflect.Value {
	out := make([]reflect.Value, len(types))
	for i := range types {
		if i < len(vs) && vs[i].IsValid() {
			out[i] = vs[i]
			continue
		}
		out[i] = reflect.New(types[i]).Elem()
	}
	return out
}

// Assign converts a boxed value into a value of type t. nil stands for the
// zero value of t.
func Assign(v any, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	if v == nil {
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", rv.Type(), t)
	}
	out.Set(rv)
	return out, nil
}
