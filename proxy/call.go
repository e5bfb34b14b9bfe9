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

package proxy

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"dirpx.dev/dpx/invocation"
	"dirpx.dev/dpx/member"
	"dirpx.dev/dpx/synth"
)

var errorType = reflect.TypeFor[error]()

// Invoke calls member name with boxed arguments and returns its boxed
// non-error results. A variadic member takes its variadic arguments either
// spread or as one slice. nil arguments stand for zero values.
func (p *Proxy) Invoke(ctx context.Context, name string, args ...any) ([]any, error) {
	m, err := p.lookup(name)
	if err != nil {
		return nil, err
	}
	sig := m.Descriptor.Signature()
	in, err := boxedArgs(sig, args)
	if err != nil {
		return nil, err
	}
	out, err := p.dispatch(ctx, m, in)
	boxed := make([]any, len(out))
	for i, v := range out {
		boxed[i] = v.Interface()
	}
	return boxed, err
}

// Call calls member name the way reflect.Value.Call does: in holds one
// value per parameter (the variadic one as a slice) and the result holds
// every result, including a trailing error. A failure of a member without
// an error result panics with the error.
func (p *Proxy) Call(ctx context.Context, name string, in []reflect.Value) []reflect.Value {
	m, err := p.lookup(name)
	if err != nil {
		panic(err)
	}
	sig := m.Descriptor.Signature()
	if err := checkArgs(sig, in); err != nil {
		panic(err)
	}
	out, err := p.dispatch(ctx, m, in)
	if !sig.ReturnsError() {
		if err != nil {
			panic(err)
		}
		return out
	}
	ev := reflect.New(errorType).Elem()
	if err != nil {
		ev.Set(reflect.ValueOf(err))
	}
	return append(out, ev)
}

// lookup finds name on the generated surface or among skipped members.
func (p *Proxy) lookup(name string) (synth.Member, error) {
	if m, ok := p.typ.Member(name); ok {
		return m, nil
	}
	if m, ok := p.typ.SkippedMember(name); ok {
		return m, nil
	}
	return synth.Member{}, fmt.Errorf("%w: %s.%s", ErrNoSuchMember, p.typ.Name(), name)
}

func (p *Proxy) dispatch(ctx context.Context, m synth.Member, in []reflect.Value) (out []reflect.Value, err error) {
	if p.observer != nil {
		start := time.Now()
		defer func() {
			p.observer.Invoked(ctx, p.typ, m.Name(), m.Policy(), time.Since(start), err)
		}()
	}
	recv := p.receiver(m.Field)
	if !m.Intercepted() {
		out, err = m.Action(recv, in)
		return normalize(m.Descriptor.Signature(), out), err
	}

	cfg := invocation.Config{
		Context:      ctx,
		Proxy:        p,
		Member:       m,
		Interceptors: p.chains[m.Name()],
		Args:         in,
		Target:       recv,
		Replaceable:  p.typ.AllowsTargetReplacement(),
	}
	if f, ok := p.typ.Field(m.Field); ok {
		cfg.TargetType = f.Type
		if f.Kind == synth.FieldTarget && p.typ.Kind().HasTarget() {
			cfg.Retarget = p.retarget
		}
	}
	if cfg.TargetType == nil {
		cfg.Replaceable = false
	}
	return invocation.New(cfg).Run()
}

func (p *Proxy) retarget(v reflect.Value) error {
	p.target.Store(&targetRef{v: v})
	p.log.Debug("dpx: proxy target replaced", "proxy", p.id, "target", v.Type())
	return nil
}

// normalize pads missing results with zero values so callers always get
// one value per result.
func normalize(sig member.Signature, out []reflect.Value) []reflect.Value {
	vals := sig.Values()
	if len(out) == len(vals) {
		return out
	}
	full := make([]reflect.Value, len(vals))
	for i, t := range vals {
		if i < len(out) && out[i].IsValid() {
			full[i] = out[i]
		} else {
			full[i] = reflect.New(t).Elem()
		}
	}
	return full
}

func boxedArgs(sig member.Signature, args []any) ([]reflect.Value, error) {
	n := len(sig.In)
	if sig.Variadic {
		if len(args) < n-1 {
			return nil, fmt.Errorf("%w: %s wants at least %d, got %d", ErrArgumentCount, sig.Name, n-1, len(args))
		}
		if len(args) != n || !assignableOrNil(args[n-1], sig.In[n-1]) {
			slice := reflect.MakeSlice(sig.In[n-1], 0, len(args)-(n-1))
			elem := sig.In[n-1].Elem()
			for i, a := range args[n-1:] {
				v, err := invocation.Assign(a, elem)
				if err != nil {
					return nil, fmt.Errorf("%w: %s argument %d: %w", ErrArgumentType, sig.Name, n-1+i, err)
				}
				slice = reflect.Append(slice, v)
			}
			args = append(args[:n-1:n-1], slice.Interface())
		}
	} else if len(args) != n {
		return nil, fmt.Errorf("%w: %s wants %d, got %d", ErrArgumentCount, sig.Name, n, len(args))
	}
	in := make([]reflect.Value, n)
	for i, a := range args {
		v, err := invocation.Assign(a, sig.In[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %s argument %d: %w", ErrArgumentType, sig.Name, i, err)
		}
		in[i] = v
	}
	return in, nil
}

func assignableOrNil(a any, t reflect.Type) bool {
	return a == nil || reflect.TypeOf(a).AssignableTo(t)
}

func checkArgs(sig member.Signature, in []reflect.Value) error {
	if len(in) != len(sig.In) {
		return fmt.Errorf("%w: %s wants %d, got %d", ErrArgumentCount, sig.Name, len(sig.In), len(in))
	}
	for i, v := range in {
		if !v.IsValid() || !v.Type().AssignableTo(sig.In[i]) {
			return fmt.Errorf("%w: %s argument %d", ErrArgumentType, sig.Name, i)
		}
	}
	return nil
}

// Result returns out[i] as a T, or the zero T when it is nil or missing.
func Result[T any](out []any, i int) T {
	var zero T
	if i < 0 || i >= len(out) || out[i] == nil {
		return zero
	}
	v, ok := out[i].(T)
	if !ok {
		return zero
	}
	return v
}

// Must panics with err when it is not nil. Generated wrappers of members
// without an error result use it.
func Must(err error) {
	if err != nil {
		panic(err)
	}
}

// IsProxy reports whether v is a proxy instance.
func IsProxy(v any) bool {
	_, ok := v.(*Proxy)
	return ok
}

// Unwrap returns the target behind v when v is a proxy, and v otherwise.
func Unwrap(v any) any {
	if p, ok := v.(*Proxy); ok {
		return p.ProxyTarget()
	}
	return v
}

// TypeOf returns the generated type of v when v is a proxy.
func TypeOf(v any) (*synth.Type, bool) {
	if p, ok := v.(*Proxy); ok {
		return p.typ, true
	}
	return nil, false
}
