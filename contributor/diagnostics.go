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

package contributor

import (
	"reflect"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/collector"
	"dirpx.dev/dpx/member"
	"dirpx.dev/dpx/serialize"
	"dirpx.dev/dpx/synth"
)

var (
	diagnosticsType = reflect.TypeFor[apis.Diagnostics]()
	exporterType    = reflect.TypeFor[apis.StateExporter]()
)

// Diagnostics contributes the members every proxy carries
// (apis.Diagnostics) and, for serializable proxies, apis.StateExporter.
// They always forward to the proxy itself and are never intercepted.
type Diagnostics struct {
	typ reflect.Type
}

var _ Contributor = (*Diagnostics)(nil)

// NewDiagnostics returns the diagnostics contributor.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{typ: diagnosticsType}
}

// NewSerialization returns the contributor of apis.StateExporter.
func NewSerialization() *Diagnostics {
	return &Diagnostics{typ: exporterType}
}

func (c *Diagnostics) ID() string {
	if c.typ == exporterType {
		return "serialization"
	}
	return "diagnostics"
}

func (c *Diagnostics) Source() apis.Source { return apis.SourceDiagnostics }
func (c *Diagnostics) Type() reflect.Type  { return c.typ }

func (c *Diagnostics) Fields() []synth.Field {
	return []synth.Field{{Name: synth.SelfField, Kind: synth.FieldSelf, Type: diagnosticsType}}
}

// Collect ignores the request hook: diagnostics members are always
// forwarded.
func (c *Diagnostics) Collect(env Env) (collector.Result, error) {
	env.Hook = collector.PolicyHook{Default: apis.Forward}
	return collect(c, env)
}

func (c *Diagnostics) Emit(d member.Descriptor) (synth.Member, error) {
	if c.typ != exporterType {
		return synth.Member{Descriptor: d, Field: synth.SelfField, Action: forward(d)}, nil
	}
	action := func(recv reflect.Value, _ []reflect.Value) ([]reflect.Value, error) {
		if nilValue(recv) {
			return nil, terminal(d, apis.ErrNoTarget)
		}
		b, err := serialize.Export(recv.Interface())
		return []reflect.Value{reflect.ValueOf(b)}, err
	}
	return synth.Member{Descriptor: d, Field: synth.SelfField, Action: action}, nil
}
