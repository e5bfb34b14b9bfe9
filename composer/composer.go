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

// Package composer turns a proxy request into a generated type.
//
// It plans the contributors for the request, collects every source, lets
// the hook know inspection is over, resolves member conflicts by source
// priority (class target, then interfaces, then mixins, then diagnostics)
// and hands the resulting shape to the synthesis backend. Nothing is
// published on failure; publishing is the type cache's job.
package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/collector"
	"dirpx.dev/dpx/contributor"
	"dirpx.dev/dpx/member"
	"dirpx.dev/dpx/metadata"
	"dirpx.dev/dpx/request"
	"dirpx.dev/dpx/synth"
	uref "dirpx.dev/dpx/utils/reflect"
)

// ErrNilRequest is returned by Compose for a nil request.
var ErrNilRequest = errors.New("dpx(composer): nil request")

const instrumentation = "dirpx.dev/dpx/composer"

// Composer is safe for concurrent use.
type Composer struct {
	backend       synth.Backend
	metadata      *metadata.Registry
	maxEmbedDepth int
	log           *slog.Logger
	tracer        trace.Tracer
}

// Option configures a Composer.
type Option func(*Composer)

// WithBackend replaces the synthesis backend (synth.Table by default).
func WithBackend(b synth.Backend) Option {
	return func(c *Composer) {
		if b != nil {
			c.backend = b
		}
	}
}

// WithMetadata sets the annotation registry (metadata.Default by default).
func WithMetadata(r *metadata.Registry) Option {
	return func(c *Composer) {
		if r != nil {
			c.metadata = r
		}
	}
}

// WithMaxEmbedDepth bounds the embedded field search of class collectors.
func WithMaxEmbedDepth(n int) Option {
	return func(c *Composer) { c.maxEmbedDepth = n }
}

// WithLogger sets the logger. nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Composer) { c.log = l }
}

// WithTracerProvider sets the provider of the composition spans. The
// global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Composer) {
		if tp != nil {
			c.tracer = tp.Tracer(instrumentation)
		}
	}
}

// New returns a Composer.
func New(opts ...Option) *Composer {
	c := &Composer{
		backend:  synth.Table{},
		metadata: metadata.Default(),
		tracer:   otel.Tracer(instrumentation),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// Plan returns the contributors of req in emission order.
func Plan(req *request.Request) []contributor.Contributor {
	target := req.Target()
	var out []contributor.Contributor

	switch req.Kind() {
	case apis.ClassProxy:
		out = append(out, contributor.NewClassTarget(target))
	default:
		if base := req.BaseType(); base != nil {
			out = append(out, contributor.NewBase(base))
		}
		if req.Kind() == apis.InterfaceWithTarget {
			out = append(out, contributor.NewInterfaceWithTarget(target, target))
		} else {
			out = append(out, contributor.NewInterfaceWithoutTarget(target))
		}
	}
	for _, iface := range req.Interfaces() {
		if iface == target {
			continue
		}
		if req.Kind().HasTarget() && target.Implements(iface) {
			out = append(out, contributor.NewInterfaceWithTarget(iface, target))
		} else {
			out = append(out, contributor.NewInterfaceWithoutTarget(iface))
		}
	}
	for _, m := range req.Mixins() {
		out = append(out, contributor.NewMixin(m))
	}
	out = append(out, contributor.NewDiagnostics())
	if req.Serializable() {
		out = append(out, contributor.NewSerialization())
	}
	return out
}

// backing returns the target type whose members cb reaches, or nil. An
// interface implemented by the target is another view of members the
// target's own contributor has already collected.
func backing(cb contributor.Contributor) reflect.Type {
	switch c := cb.(type) {
	case *contributor.ClassTarget:
		return c.Type()
	case *contributor.Interface:
		return c.Target()
	}
	return nil
}

type claim struct {
	d     member.Descriptor
	owner int
}

// Compose builds the generated type for req. Failures are
// *apis.GenerationError.
func (c *Composer) Compose(ctx context.Context, req *request.Request) (_ *synth.Type, err error) {
	if req == nil {
		return nil, &apis.GenerationError{Err: ErrNilRequest}
	}
	_, span := c.tracer.Start(ctx, "dpx.compose", trace.WithAttributes(
		attribute.String("dpx.kind", req.Kind().String()),
		attribute.String("dpx.target", uref.Name(req.Target())),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := time.Now()
	contribs := Plan(req)
	env := contributor.Env{
		Hook:          req.Hook(),
		Metadata:      c.metadata,
		MaxEmbedDepth: c.maxEmbedDepth,
		Logger:        c.log,
	}
	results := make([]collector.Result, len(contribs))
	known := map[reflect.Type]map[string]struct{}{}
	for i, cb := range contribs {
		bt := backing(cb)
		env.Known = known[bt]
		res, err := cb.Collect(env)
		if err != nil {
			return nil, generationError(req, "", err)
		}
		results[i] = res
		if bt == nil {
			continue
		}
		seen := known[bt]
		if seen == nil {
			seen = make(map[string]struct{}, res.Len())
			known[bt] = seen
		}
		for _, d := range res.Descriptors() {
			seen[d.Name()] = struct{}{}
		}
	}
	if h := req.Hook(); h != nil {
		h.MethodsInspected()
	}

	claims := map[string]claim{}
	for i, res := range results {
		for _, d := range res.Descriptors() {
			prev, taken := claims[d.Name()]
			if !taken {
				claims[d.Name()] = claim{d: d, owner: i}
				continue
			}
			if !prev.d.Signature().Equal(d.Signature()) {
				return nil, &apis.GenerationError{
					Type:   req.Target(),
					Member: d.Name(),
					Err: fmt.Errorf("%w: %s from %s, %s from %s", apis.ErrSignatureConflict,
						prev.d.Signature(), contribs[prev.owner].ID(), d.Signature(), contribs[i].ID()),
				}
			}
			c.log.Debug("dpx: member suppressed by higher priority source",
				"member", d.Name(),
				"kept", contribs[prev.owner].ID(),
				"suppressed", contribs[i].ID(),
			)
		}
	}
	owns := func(i int, d member.Descriptor) bool {
		cl := claims[d.Name()]
		return cl.owner == i
	}

	shape := synth.Shape{
		Key:                    req.Key(),
		Kind:                   req.Kind(),
		Target:                 req.Target(),
		Base:                   req.BaseType(),
		Interfaces:             req.Interfaces(),
		Mixins:                 req.Mixins(),
		Tags:                   c.tags(req),
		AllowTargetReplacement: req.AllowTargetReplacement(),
		Serializable:           req.Serializable(),
	}
	fields := map[string]struct{}{}
	for i, cb := range contribs {
		for _, f := range cb.Fields() {
			if _, dup := fields[f.Name]; dup {
				continue
			}
			fields[f.Name] = struct{}{}
			shape.Fields = append(shape.Fields, f)
		}
		res := results[i]
		for _, p := range res.Properties {
			if owns(i, p.Get) && owns(i, p.Set) {
				shape.Properties = append(shape.Properties, p)
			}
		}
		for _, e := range res.Events {
			if owns(i, e.Add) && owns(i, e.Remove) {
				shape.Events = append(shape.Events, e)
			}
		}
		for _, d := range res.Descriptors() {
			if !owns(i, d) {
				continue
			}
			m, err := cb.Emit(d)
			if err != nil {
				return nil, generationError(req, d.Name(), err)
			}
			if d.Policy() == apis.Skip {
				shape.Skipped = append(shape.Skipped, m)
			} else {
				shape.Members = append(shape.Members, m)
			}
		}
	}

	t, err := c.backend.Synthesize(shape)
	if err != nil {
		return nil, generationError(req, "", err)
	}
	span.SetAttributes(
		attribute.String("dpx.type", t.Name()),
		attribute.Int("dpx.members", len(shape.Members)),
	)
	c.log.Debug("dpx: proxy type synthesized",
		"type", t.Name(),
		"key", req.Key(),
		"members", len(shape.Members),
		"skipped", len(shape.Skipped),
		"took", time.Since(start),
	)
	return t, nil
}

func (c *Composer) tags(req *request.Request) map[string]string {
	tags := c.metadata.TypeTags(req.Target())
	if extra := req.Tags(); len(extra) > 0 {
		if tags == nil {
			tags = map[string]string{}
		}
		maps.Copy(tags, extra)
	}
	return tags
}

func generationError(req *request.Request, name string, err error) error {
	var ge *apis.GenerationError
	if errors.As(err, &ge) {
		return err
	}
	var t reflect.Type
	if req != nil {
		t = req.Target()
	}
	return &apis.GenerationError{Type: t, Member: name, Err: err}
}
