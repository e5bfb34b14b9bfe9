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

package collector_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/collector"
	"dirpx.dev/dpx/member"
	"dirpx.dev/dpx/metadata"
)

type Notifier interface {
	Notify(msg string) error
}

type Audited struct{}

func (*Audited) Audit() string { return "audit" }

type Lock struct{}

func (*Lock) Unlock() {}

type Service struct {
	Notifier
	Audited
	Lock `dpx:"sealed"`
	name string
}

func (s *Service) Name() string                 { return s.name }
func (s *Service) SetName(v string)             { s.name = v }
func (s *Service) AddStopped(func(code int))    {}
func (s *Service) RemoveStopped(func(code int)) {}
func (s *Service) Run(args ...string) error     { return nil }
func (s *Service) Close() error                 { return nil }
func (s *Service) SetMode(mode int, force bool) {}

type hidden interface {
	Visible() int
	secret()
}

type recordingHook struct {
	decide     func(m reflect.Method) apis.Policy
	asked      []string
	nonProxied map[string]error
	inspected  int
}

func (h *recordingHook) ShouldIntercept(_ reflect.Type, m reflect.Method) apis.Policy {
	h.asked = append(h.asked, m.Name)
	if h.decide != nil {
		return h.decide(m)
	}
	return apis.Intercept
}

func (h *recordingHook) NonProxyable(_ reflect.Type, m reflect.Method, reason error) {
	if h.nonProxied == nil {
		h.nonProxied = map[string]error{}
	}
	h.nonProxied[m.Name] = reason
}

func (h *recordingHook) MethodsInspected() { h.inspected++ }

func names(ds []member.Descriptor) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Name())
	}
	return out
}

func byName(t *testing.T, ds []member.Descriptor, name string) member.Descriptor {
	t.Helper()
	for _, d := range ds {
		if d.Name() == name {
			return d
		}
	}
	t.Fatalf("no descriptor %s in %v", name, names(ds))
	return member.Descriptor{}
}

func TestCollect_ClassOrderAndAccessors(t *testing.T) {
	hook := &recordingHook{}
	res, err := collector.Collect(collector.Input{
		Source:      reflect.TypeOf(&Service{}),
		Kind:        apis.SourceClassTarget,
		Contributor: "class",
		Hook:        hook,
		Metadata:    metadata.New(),
	})
	require.NoError(t, err)

	require.Len(t, res.Properties, 1)
	assert.Equal(t, "Name", res.Properties[0].Name)
	assert.Equal(t, member.RoleGetter, res.Properties[0].Get.Role())
	assert.Equal(t, member.RoleSetter, res.Properties[0].Set.Role())
	assert.False(t, res.Properties[0].Get.Standalone())

	require.Len(t, res.Events, 1)
	assert.Equal(t, "Stopped", res.Events[0].Name)
	assert.Equal(t, reflect.TypeOf(func(int) {}), res.Events[0].Handler)

	assert.Equal(t, []string{"Audit", "Close", "Notify", "Run", "SetMode", "Unlock"}, names(res.Methods))
	assert.Equal(t, []string{"Name", "SetName", "AddStopped", "RemoveStopped", "Audit", "Close", "Notify", "Run", "SetMode", "Unlock"},
		names(res.Descriptors()))
	assert.Equal(t, 10, res.Len())
	assert.Zero(t, hook.inspected, "MethodsInspected belongs to the composer")
}

func TestCollect_PromotedSlots(t *testing.T) {
	res, err := collector.Collect(collector.Input{
		Source:   reflect.TypeOf(&Service{}),
		Kind:     apis.SourceClassTarget,
		Metadata: metadata.New(),
	})
	require.NoError(t, err)

	notify := byName(t, res.Methods, "Notify")
	assert.True(t, notify.Abstract())
	assert.Equal(t, []int{0}, notify.Slot().Path)
	assert.Equal(t, "Notifier", notify.Slot().Field)

	audit := byName(t, res.Methods, "Audit")
	assert.False(t, audit.Abstract())
	assert.Equal(t, []int{1}, audit.Slot().Path)

	closeM := byName(t, res.Methods, "Close")
	assert.False(t, closeM.Slot().Promoted())
}

func TestCollect_ForcedSkips(t *testing.T) {
	reg := metadata.New()
	require.NoError(t, reg.Seal(reflect.TypeOf(Service{}), "Close"))

	hook := &recordingHook{}
	res, err := collector.Collect(collector.Input{
		Source:   reflect.TypeOf(&Service{}),
		Kind:     apis.SourceClassTarget,
		Hook:     hook,
		Metadata: reg,
	})
	require.NoError(t, err)

	assert.Equal(t, apis.Skip, byName(t, res.Methods, "Close").Policy())
	assert.Equal(t, apis.Skip, byName(t, res.Methods, "Unlock").Policy())
	assert.ErrorIs(t, hook.nonProxied["Close"], apis.ErrSealed)
	assert.ErrorIs(t, hook.nonProxied["Unlock"], apis.ErrSealed)
	assert.NotContains(t, hook.asked, "Close")
	assert.NotContains(t, hook.asked, "Unlock")
	assert.Contains(t, hook.asked, "Run")
}

func TestCollect_InaccessibleInterfaceMembers(t *testing.T) {
	hook := &recordingHook{}
	res, err := collector.Collect(collector.Input{
		Source:   reflect.TypeFor[hidden](),
		Kind:     apis.SourceInterface,
		Hook:     hook,
		Metadata: metadata.New(),
	})
	require.NoError(t, err)

	require.Len(t, res.Methods, 2)
	assert.Equal(t, apis.Skip, byName(t, res.Methods, "secret").Policy())
	assert.Equal(t, apis.Intercept, byName(t, res.Methods, "Visible").Policy())
	assert.ErrorIs(t, hook.nonProxied["secret"], apis.ErrInaccessible)
	assert.Equal(t, []string{"Visible"}, hook.asked)
}

func TestCollect_HookWithoutDecisionFails(t *testing.T) {
	hook := &recordingHook{decide: func(m reflect.Method) apis.Policy {
		if m.Name == "Notify" {
			return apis.PolicyUnset
		}
		return apis.Forward
	}}
	_, err := collector.Collect(collector.Input{
		Source:   reflect.TypeFor[Notifier](),
		Kind:     apis.SourceInterface,
		Hook:     hook,
		Metadata: metadata.New(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apis.ErrNoDecision)

	var ge *apis.GenerationError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "Notify", ge.Member)
}

func TestCollect_KnownMembersAreLeftOut(t *testing.T) {
	res, err := collector.Collect(collector.Input{
		Source:   reflect.TypeOf(&Service{}),
		Kind:     apis.SourceClassTarget,
		Known:    map[string]struct{}{"SetName": {}, "Run": {}},
		Metadata: metadata.New(),
	})
	require.NoError(t, err)

	assert.Empty(t, res.Properties, "a property needs both halves")
	assert.NotContains(t, names(res.Descriptors()), "Run")
	assert.Contains(t, names(res.Methods), "Name")
}

func TestCollect_MetadataIsCopied(t *testing.T) {
	reg := metadata.New()
	require.NoError(t, reg.Annotate(reflect.TypeOf(Audited{}), "Audit",
		metadata.Annotation{Key: "category", Value: "security", Inherited: true}))
	require.NoError(t, reg.Annotate(reflect.TypeOf(Service{}), "Run",
		metadata.Annotation{Key: "tx", Value: "required"}))

	res, err := collector.Collect(collector.Input{
		Source:   reflect.TypeOf(&Service{}),
		Kind:     apis.SourceClassTarget,
		Metadata: reg,
	})
	require.NoError(t, err)

	v, ok := byName(t, res.Methods, "Audit").Tag("category")
	assert.True(t, ok)
	assert.Equal(t, "security", v)
	v, _ = byName(t, res.Methods, "Run").Tag("tx")
	assert.Equal(t, "required", v)
}

func TestCollect_RejectsWrongSourceKinds(t *testing.T) {
	_, err := collector.Collect(collector.Input{Source: reflect.TypeFor[Notifier](), Kind: apis.SourceClassTarget})
	assert.ErrorIs(t, err, apis.ErrInvalidRequest)

	_, err = collector.Collect(collector.Input{Source: reflect.TypeOf(&Service{}), Kind: apis.SourceMixin})
	assert.ErrorIs(t, err, apis.ErrInvalidRequest)

	_, err = collector.Collect(collector.Input{Kind: apis.SourceInterface})
	assert.ErrorIs(t, err, apis.ErrInvalidRequest)
}

func TestHooks(t *testing.T) {
	m := reflect.Method{Name: "Run"}
	assert.Equal(t, apis.Intercept, collector.AllMethodsHook{}.ShouldIntercept(nil, m))

	f := collector.HookFunc(func(reflect.Type, reflect.Method) apis.Policy { return apis.Forward })
	assert.Equal(t, apis.Forward, f.ShouldIntercept(nil, m))

	ph := collector.PolicyHook{Members: map[string]apis.Policy{"Run": apis.Skip}}
	assert.Equal(t, apis.Skip, ph.ShouldIntercept(nil, m))
	assert.Equal(t, apis.Intercept, ph.ShouldIntercept(nil, reflect.Method{Name: "Other"}))
	assert.Equal(t, "policy-hook:Unset;Run=Skip", ph.CacheKey())
}
