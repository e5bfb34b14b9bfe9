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

package proxy_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/collector"
	"dirpx.dev/dpx/composer"
	"dirpx.dev/dpx/proxy"
	"dirpx.dev/dpx/request"
	"dirpx.dev/dpx/synth"
)

type Greeter interface {
	Greet(name string) string
	Join(sep string, parts ...string) string
	Fail() error
}

type english struct{ prefix string }

func (e english) Greet(name string) string { return e.prefix + name }
func (english) Join(sep string, parts ...string) string {
	return strings.Join(parts, sep)
}
func (english) Fail() error { return errBroken }

var (
	errBroken = errors.New("broken")
	greeterT  = reflect.TypeFor[Greeter]()
)

type Tagger interface {
	Tag() string
}

type fixedTag string

func (f fixedTag) Tag() string { return string(f) }

func compose(t *testing.T, kind apis.Kind, target reflect.Type, opts ...request.Option) *synth.Type {
	t.Helper()
	typ, err := composer.New().Compose(context.Background(), request.MustNew(kind, target, opts...))
	require.NoError(t, err)
	return typ
}

type upper struct{}

func (upper) Intercept(inv apis.Invocation) error {
	if err := inv.Proceed(); err != nil {
		return err
	}
	if s, ok := inv.ReturnValue().(string); ok {
		return inv.SetReturnValue(strings.ToUpper(s))
	}
	return nil
}

type observed struct {
	mu    sync.Mutex
	calls []string
	errs  []error
}

func (o *observed) Invoked(_ context.Context, _ *synth.Type, member string, policy apis.Policy, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, member+"/"+policy.String())
	o.errs = append(o.errs, err)
}

func TestInvoke(t *testing.T) {
	ctx := context.Background()
	px, err := proxy.New(compose(t, apis.InterfaceWithTarget, greeterT), proxy.Options{
		Target:       english{prefix: "hello "},
		Interceptors: []apis.Interceptor{upper{}},
	})
	require.NoError(t, err)

	out, err := px.Invoke(ctx, "Greet", "bob")
	require.NoError(t, err)
	assert.Equal(t, "HELLO BOB", proxy.Result[string](out, 0))

	out, err = px.Invoke(ctx, "Join", "-", "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, "A-B-C", proxy.Result[string](out, 0))

	out, err = px.Invoke(ctx, "Join", ",", []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, "X,Y", proxy.Result[string](out, 0))

	out, err = px.Invoke(ctx, "Fail")
	assert.ErrorIs(t, err, errBroken)
	assert.Empty(t, out)
}

func TestInvokeErrors(t *testing.T) {
	ctx := context.Background()
	px, err := proxy.New(compose(t, apis.InterfaceWithTarget, greeterT), proxy.Options{Target: english{}})
	require.NoError(t, err)

	_, err = px.Invoke(ctx, "Missing")
	assert.ErrorIs(t, err, proxy.ErrNoSuchMember)
	_, err = px.Invoke(ctx, "Greet")
	assert.ErrorIs(t, err, proxy.ErrArgumentCount)
	_, err = px.Invoke(ctx, "Greet", 7)
	assert.ErrorIs(t, err, proxy.ErrArgumentType)
	_, err = px.Invoke(ctx, "Join")
	assert.ErrorIs(t, err, proxy.ErrArgumentCount)
}

func TestCall(t *testing.T) {
	ctx := context.Background()
	px, err := proxy.New(compose(t, apis.InterfaceWithTarget, greeterT), proxy.Options{Target: english{prefix: "hi "}})
	require.NoError(t, err)

	out := px.Call(ctx, "Greet", []reflect.Value{reflect.ValueOf("ann")})
	require.Len(t, out, 1)
	assert.Equal(t, "hi ann", out[0].String())

	out = px.Call(ctx, "Fail", nil)
	require.Len(t, out, 1)
	assert.ErrorIs(t, out[0].Interface().(error), errBroken)

	assert.Panics(t, func() { px.Call(ctx, "Greet", nil) })
	assert.Panics(t, func() { px.Call(ctx, "Nope", nil) })
}

func TestNewValidation(t *testing.T) {
	withTarget := compose(t, apis.InterfaceWithTarget, greeterT)
	without := compose(t, apis.InterfaceWithoutTarget, greeterT)
	mixed := compose(t, apis.InterfaceWithoutTarget, greeterT, request.WithMixins(reflect.TypeFor[Tagger]()))

	tests := []struct {
		name string
		typ  *synth.Type
		opts proxy.Options
		want error
	}{
		{"nil type", nil, proxy.Options{}, proxy.ErrNilType},
		{"missing target", withTarget, proxy.Options{}, proxy.ErrTargetRequired},
		{"wrong target", withTarget, proxy.Options{Target: 42}, proxy.ErrTargetType},
		{"unexpected target", without, proxy.Options{Target: english{}}, proxy.ErrUnexpectedTarget},
		{"nil interceptor", without, proxy.Options{Interceptors: []apis.Interceptor{nil}}, proxy.ErrNilInterceptor},
		{"missing mixin", mixed, proxy.Options{}, proxy.ErrMissingMixin},
		{"wrong mixin", mixed, proxy.Options{Mixins: map[reflect.Type]any{reflect.TypeFor[Tagger](): 3}}, proxy.ErrMixinType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := proxy.New(tt.typ, tt.opts)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMixinDispatch(t *testing.T) {
	ctx := context.Background()
	tagT := reflect.TypeFor[Tagger]()
	px, err := proxy.New(compose(t, apis.InterfaceWithTarget, greeterT, request.WithMixins(tagT)), proxy.Options{
		Target:       english{},
		Interceptors: []apis.Interceptor{upper{}},
		Mixins:       map[reflect.Type]any{tagT: fixedTag("blue")},
	})
	require.NoError(t, err)

	out, err := px.Invoke(ctx, "Tag")
	require.NoError(t, err)
	assert.Equal(t, "BLUE", proxy.Result[string](out, 0))

	v, ok := px.Mixin(tagT)
	require.True(t, ok)
	assert.Equal(t, fixedTag("blue"), v)
}

func TestSelectorAndObserver(t *testing.T) {
	ctx := context.Background()
	obs := &observed{}
	onlyGreet := apis.SelectorFunc(func(_ reflect.Type, m reflect.Method, ics []apis.Interceptor) []apis.Interceptor {
		if m.Name == "Greet" {
			return ics
		}
		return nil
	})
	typ := compose(t, apis.InterfaceWithTarget, greeterT,
		request.WithHook(collector.PolicyHook{Members: map[string]apis.Policy{"Fail": apis.Forward}}),
	)
	px, err := proxy.New(typ, proxy.Options{
		Target:       english{prefix: "yo "},
		Interceptors: []apis.Interceptor{upper{}},
		Selector:     onlyGreet,
		Observer:     obs,
	})
	require.NoError(t, err)
	assert.Len(t, px.Interceptors("Greet"), 1)
	assert.Empty(t, px.Interceptors("Join"))
	assert.Len(t, px.ProxyInterceptors(), 1)

	out, err := px.Invoke(ctx, "Greet", "x")
	require.NoError(t, err)
	assert.Equal(t, "YO X", proxy.Result[string](out, 0))
	out, err = px.Invoke(ctx, "Join", "+", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "a+b", proxy.Result[string](out, 0))
	_, err = px.Invoke(ctx, "Fail")
	require.Error(t, err)

	assert.Equal(t, []string{
		"Greet/" + apis.Intercept.String(),
		"Join/" + apis.Intercept.String(),
		"Fail/" + apis.Forward.String(),
	}, obs.calls)
	assert.ErrorIs(t, obs.errs[2], errBroken)
}

func TestSetTarget(t *testing.T) {
	ctx := context.Background()
	fixed, err := proxy.New(compose(t, apis.InterfaceWithTarget, greeterT), proxy.Options{Target: english{}})
	require.NoError(t, err)
	assert.ErrorIs(t, fixed.SetTarget(english{prefix: "x"}), proxy.ErrNotReplaceable)

	px, err := proxy.New(compose(t, apis.InterfaceWithTarget, greeterT, request.WithTargetReplacement(true)),
		proxy.Options{Target: english{prefix: "a "}})
	require.NoError(t, err)
	require.NoError(t, px.SetTarget(english{prefix: "b "}))
	assert.ErrorIs(t, px.SetTarget(nil), proxy.ErrTargetType)
	assert.ErrorIs(t, px.SetTarget(3), proxy.ErrTargetType)

	out, err := px.Invoke(ctx, "Greet", "c")
	require.NoError(t, err)
	assert.Equal(t, "b c", proxy.Result[string](out, 0))
	assert.Equal(t, english{prefix: "b "}, proxy.Unwrap(px))
}

func TestHelpers(t *testing.T) {
	px, err := proxy.New(compose(t, apis.InterfaceWithTarget, greeterT), proxy.Options{Target: english{}})
	require.NoError(t, err)

	assert.True(t, proxy.IsProxy(px))
	assert.False(t, proxy.IsProxy(english{}))
	assert.Equal(t, english{}, proxy.Unwrap(english{}))
	typ, ok := proxy.TypeOf(px)
	require.True(t, ok)
	assert.Same(t, px.Type(), typ)
	assert.Contains(t, px.String(), px.ID().String())

	assert.Equal(t, 0, proxy.Result[int]([]any{nil}, 0))
	assert.Equal(t, "", proxy.Result[string]([]any{1}, 0))
	assert.Equal(t, "", proxy.Result[string](nil, 3))
	assert.NotPanics(t, func() { proxy.Must(nil) })
	assert.Panics(t, func() { proxy.Must(errBroken) })
}

func TestBind(t *testing.T) {
	px, err := proxy.New(compose(t, apis.InterfaceWithTarget, greeterT), proxy.Options{Target: english{prefix: "hey "}})
	require.NoError(t, err)

	var facade struct {
		Greet  func(ctx context.Context, name string) string
		Hello  func(name string) string `dpx:"Greet"`
		Join   func(sep string, parts ...string) string
		Fail   func() error
		Ignore func() `dpx:"-"`
		note   string
	}
	require.NoError(t, proxy.Bind(px, &facade))
	assert.Equal(t, "hey you", facade.Greet(context.Background(), "you"))
	assert.Equal(t, "hey me", facade.Hello("me"))
	assert.Equal(t, "1.2", facade.Join(".", "1", "2"))
	assert.ErrorIs(t, facade.Fail(), errBroken)
	assert.Nil(t, facade.Ignore)
	assert.Empty(t, facade.note)

	assert.ErrorIs(t, proxy.Bind(px, facade), proxy.ErrFacade)
	var bad struct{ Greet func(int) string }
	assert.ErrorIs(t, proxy.Bind(px, &bad), proxy.ErrFacadeField)
	var unknown struct{ Nope func() }
	assert.ErrorIs(t, proxy.Bind(px, &unknown), proxy.ErrNoSuchMember)
}
