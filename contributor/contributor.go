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

// Package contributor holds the member sources a generated type is composed
// from: the class target, additional interfaces (with or without a backing
// target), mixins and the diagnostics members every proxy carries.
//
// A contributor collects descriptors for its source and, for every
// descriptor the composer lets it keep, emits the dispatch table entry:
// which backing field the member reaches and the terminal action that
// performs the real call.
package contributor

import (
	"log/slog"
	"reflect"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/collector"
	"dirpx.dev/dpx/member"
	"dirpx.dev/dpx/metadata"
	"dirpx.dev/dpx/synth"
)

// Env is the per-request collection environment.
type Env struct {
	Hook apis.Hook
	// Known holds member names another contributor already collected from
	// the same backing target.
	Known         map[string]struct{}
	Metadata      *metadata.Registry
	MaxEmbedDepth int
	Logger        *slog.Logger
}

// Contributor is one member source of a generated type.
type Contributor interface {
	// ID identifies the contributor; descriptors refer back to it.
	ID() string
	// Source is the contributor kind, used by the conflict rule.
	Source() apis.Source
	// Type is the source type whose members are contributed.
	Type() reflect.Type
	// Fields lists the backing fields the contributor's members reach.
	Fields() []synth.Field
	// Collect gathers the source's descriptors.
	Collect(env Env) (collector.Result, error)
	// Emit builds the dispatch table entry for d.
	Emit(d member.Descriptor) (synth.Member, error)
}

func collect(c Contributor, env Env) (collector.Result, error) {
	return collector.Collect(collector.Input{
		Source:        c.Type(),
		Kind:          c.Source(),
		Contributor:   c.ID(),
		Hook:          env.Hook,
		Known:         env.Known,
		Metadata:      env.Metadata,
		MaxEmbedDepth: env.MaxEmbedDepth,
		Logger:        env.Logger,
	})
}
