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

package composer_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/collector"
	"dirpx.dev/dpx/composer"
	"dirpx.dev/dpx/contributor"
	"dirpx.dev/dpx/request"
	"dirpx.dev/dpx/synth"
)

type Sizer interface {
	Len() int
}

type Namer interface {
	Name() string
}

type WrongSizer interface {
	Len() string
}

type Box struct{ items []string }

func (b *Box) Len() int       { return len(b.items) }
func (b *Box) Name() string   { return "box" }
func (b *Box) Add(s string)   { b.items = append(b.items, s) }
func (b *Box) Clear() (n int) { n = len(b.items); b.items = nil; return n }

var (
	sizerT = reflect.TypeFor[Sizer]()
	namerT = reflect.TypeFor[Namer]()
	boxT   = reflect.TypeFor[*Box]()
)

func tracedComposer(t *testing.T) (*composer.Composer, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return composer.New(composer.WithTracerProvider(tp)), rec
}

func ids(cs []contributor.Contributor) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID()
	}
	return out
}

func TestPlanOrder(t *testing.T) {
	req := request.MustNew(apis.InterfaceWithTarget, sizerT,
		request.WithInterfaces(namerT),
		request.WithMixins(reflect.TypeFor[WrongSizer]()),
		request.WithSerializable(true),
	)
	got := composer.Plan(req)
	require.Len(t, got, 5)
	assert.Equal(t, apis.SourceInterface, got[0].Source())
	assert.Equal(t, sizerT, got[0].Type())
	assert.Equal(t, namerT, got[1].Type())
	assert.Equal(t, apis.SourceMixin, got[2].Source())
	assert.Equal(t, []string{"diagnostics", "serialization"}, ids(got[3:]))

	// an extra interface the target does not implement has no target
	iface, ok := got[1].(*contributor.Interface)
	require.True(t, ok)
	assert.False(t, iface.HasTarget())

	cls := composer.Plan(request.MustNew(apis.ClassProxy, boxT))
	assert.Equal(t, apis.SourceClassTarget, cls[0].Source())
	assert.Len(t, cls, 2)
}

func TestComposeClass(t *testing.T) {
	c, rec := tracedComposer(t)
	req := request.MustNew(apis.ClassProxy, boxT,
		request.WithMixins(namerT),
		request.WithHook(collector.PolicyHook{Members: map[string]apis.Policy{"Clear": apis.Skip}}),
	)
	typ, err := c.Compose(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, req.Key(), typ.Key())
	assert.Equal(t, apis.ClassProxy, typ.Kind())

	// the class outranks the mixin for Name
	name, ok := typ.Member("Name")
	require.True(t, ok)
	assert.Equal(t, synth.TargetField, name.Field)

	_, ok = typ.Member("Clear")
	assert.False(t, ok)
	skipped, ok := typ.SkippedMember("Clear")
	require.True(t, ok)
	assert.Equal(t, apis.Skip, skipped.Policy())

	for _, n := range []string{"Add", "Len", "ProxyTarget", "ProxyInterceptors"} {
		_, ok := typ.Member(n)
		assert.True(t, ok, n)
	}
	pt, _ := typ.Member("ProxyTarget")
	assert.Equal(t, apis.Forward, pt.Policy())
	assert.Equal(t, synth.SelfField, pt.Field)

	_, ok = typ.Field(synth.MixinField(namerT))
	assert.True(t, ok)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "dpx.compose", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("dpx.kind", apis.ClassProxy.String()))
	assert.Contains(t, spans[0].Attributes(), attribute.String("dpx.type", typ.Name()))
}

func TestComposeSignatureConflict(t *testing.T) {
	c, rec := tracedComposer(t)
	req := request.MustNew(apis.InterfaceWithoutTarget, sizerT, request.WithMixins(reflect.TypeFor[WrongSizer]()))
	_, err := c.Compose(context.Background(), req)

	var ge *apis.GenerationError
	require.ErrorAs(t, err, &ge)
	assert.ErrorIs(t, err, apis.ErrSignatureConflict)
	assert.Equal(t, "Len", ge.Member)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

type recordingHook struct {
	asked     []string
	inspected int
}

func (h *recordingHook) ShouldIntercept(_ reflect.Type, m reflect.Method) apis.Policy {
	h.asked = append(h.asked, m.Name)
	return apis.Intercept
}

func (h *recordingHook) NonProxyable(reflect.Type, reflect.Method, error) {}

func (h *recordingHook) MethodsInspected() { h.inspected++ }

func TestComposeNotifiesHook(t *testing.T) {
	h := &recordingHook{}
	req := request.MustNew(apis.InterfaceWithTarget, sizerT, request.WithInterfaces(namerT), request.WithHook(h))
	_, err := composer.New().Compose(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, h.inspected)
	assert.ElementsMatch(t, []string{"Len", "Name"}, h.asked, "diagnostics members never reach the hook")
}

func TestComposeInterfaceViewOfClass(t *testing.T) {
	h := &recordingHook{}
	req := request.MustNew(apis.ClassProxy, boxT, request.WithInterfaces(sizerT), request.WithHook(h))
	typ, err := composer.New().Compose(context.Background(), req)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Add", "Clear", "Len", "Name"}, h.asked,
		"members the class already contributed are not asked again")
	assert.True(t, typ.Implements(sizerT))
	l, ok := typ.Member("Len")
	require.True(t, ok)
	assert.Equal(t, synth.TargetField, l.Field)
}

func TestComposeBackendFailure(t *testing.T) {
	boom := errors.New("boom")
	c := composer.New(composer.WithBackend(synth.BackendFunc(func(synth.Shape) (*synth.Type, error) {
		return nil, boom
	})))
	_, err := c.Compose(context.Background(), request.MustNew(apis.InterfaceWithoutTarget, sizerT))
	var ge *apis.GenerationError
	require.ErrorAs(t, err, &ge)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, sizerT, ge.Type)

	_, err = c.Compose(context.Background(), nil)
	assert.ErrorIs(t, err, composer.ErrNilRequest)
}

func TestComposeTags(t *testing.T) {
	req := request.MustNew(apis.InterfaceWithoutTarget, sizerT, request.WithTag("team", "core"))
	typ, err := composer.New().Compose(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "core", typ.Tags()["team"])
}
