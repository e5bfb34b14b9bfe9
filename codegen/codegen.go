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

// Package codegen renders static typed wrappers over proxies.
//
// A wrapper is a plain struct holding a *proxy.Proxy with one method per
// interface member. Each method boxes its arguments, calls the member by
// name and unboxes the results, so callers get compile-time checked calls
// without going through reflect.MakeFunc. Interfaces are described by a
// small model that is built either from reflect types (FromTypes) or from
// source (Load).
package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"slices"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// DefaultSuffix is appended to interface names to name wrappers.
	DefaultSuffix = "Proxy"

	proxyImport   = "dirpx.dev/dpx/proxy"
	contextImport = "context"
	contextType   = "context.Context"
)

var (
	// ErrNoInterfaces is returned when there is nothing to render.
	ErrNoInterfaces = errors.New("dpx(codegen): no interfaces")
	// ErrNotInterface is returned for types that are not interfaces.
	ErrNotInterface = errors.New("dpx(codegen): not an interface")
	// ErrNotFound is returned by Load for names missing from the package.
	ErrNotFound = errors.New("dpx(codegen): interface not found")
	// ErrImportConflict is returned when two imported packages share a
	// name.
	ErrImportConflict = errors.New("dpx(codegen): import name conflict")
	// ErrPackageName is returned for an empty output package name.
	ErrPackageName = errors.New("dpx(codegen): output package name required")
)

// reserved names the generated bodies use.
var reserved = map[string]bool{"w": true, "out": true, "err": true, "proxy": true, "context": true}

// Param is one parameter or result.
type Param struct {
	Name string
	Type string
}

// Method is one interface member.
type Method struct {
	Name     string
	Params   []Param
	Results  []Param
	Variadic bool
}

// Interface is one interface to wrap.
type Interface struct {
	Name    string
	Methods []Method
}

// File is the model of one generated file.
type File struct {
	Package    string
	Imports    []string
	Interfaces []Interface
	// Suffix names wrappers. Empty means DefaultSuffix.
	Suffix string
}

// imports collects import paths keyed by package name.
type imports map[string]string

func (im imports) add(name, path string) error {
	if prev, ok := im[name]; ok && prev != path {
		return fmt.Errorf("%w: %s is both %q and %q", ErrImportConflict, name, prev, path)
	}
	im[name] = path
	return nil
}

func (im imports) paths() []string {
	out := make([]string, 0, len(im))
	for _, p := range im {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// WrapperName returns the wrapper type name of iface.
func WrapperName(iface, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return cases.Title(language.Und, cases.NoLower).String(iface) + suffix
}

// FileName returns the conventional file name for the wrappers of iface.
func FileName(iface string) string {
	return cases.Lower(language.Und).String(iface) + "_dpx.go"
}

// paramName keeps declared names and falls back to positional ones.
func paramName(name string, i int) string {
	switch {
	case name == "" || name == "_":
		return fmt.Sprintf("arg%d", i)
	case reserved[name]:
		return name + "_"
	default:
		return name
	}
}

// takesContext reports whether m's first parameter is the call context.
func (m Method) takesContext() bool {
	return len(m.Params) > 0 && m.Params[0].Type == contextType
}

func (m Method) returnsError() bool {
	return len(m.Results) > 0 && m.Results[len(m.Results)-1].Type == "error"
}

func (m Method) values() []Param {
	if m.returnsError() {
		return m.Results[:len(m.Results)-1]
	}
	return m.Results
}

// ParamList renders the parameter list.
func (m Method) ParamList() string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		t := p.Type
		if m.Variadic && i == len(m.Params)-1 {
			t = "..." + strings.TrimPrefix(t, "[]")
		}
		parts[i] = p.Name + " " + t
	}
	return strings.Join(parts, ", ")
}

// ResultList renders the result list, with its leading space.
func (m Method) ResultList() string {
	switch len(m.Results) {
	case 0:
		return ""
	case 1:
		return " " + m.Results[0].Type
	}
	parts := make([]string, len(m.Results))
	for i, r := range m.Results {
		parts[i] = r.Type
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// Body renders the statements of the wrapper method.
func (m Method) Body() []string {
	ctx := "context.Background()"
	if m.takesContext() {
		ctx = m.Params[0].Name
	}
	args := []string{ctx, fmt.Sprintf("%q", m.Name)}
	for _, p := range m.Params {
		args = append(args, p.Name)
	}
	call := "w.px.Invoke(" + strings.Join(args, ", ") + ")"

	vals := m.values()
	lhs := "out, err"
	if len(vals) == 0 {
		lhs = "_, err"
	}
	lines := []string{lhs + " := " + call}

	rets := make([]string, 0, len(m.Results))
	for i, v := range vals {
		rets = append(rets, fmt.Sprintf("proxy.Result[%s](out, %d)", v.Type, i))
	}
	if m.returnsError() {
		rets = append(rets, "err")
	} else {
		lines = append(lines, "proxy.Must(err)")
	}
	if len(rets) > 0 {
		lines = append(lines, "return "+strings.Join(rets, ", "))
	}
	return lines
}

type ifaceView struct {
	Interface
	Wrapper string
}

type fileView struct {
	Package    string
	Imports    []string
	Interfaces []ifaceView
}

var fileTmpl = template.Must(template.New("file").Parse(`// Code generated by dpx gen. DO NOT EDIT.

package {{.Package}}

import (
{{- range .Imports}}
	{{printf "%q" .}}
{{- end}}
)
{{range .Interfaces}}{{$w := .Wrapper}}
// {{$w}} is a typed wrapper over a proxy of {{.Name}}.
type {{$w}} struct {
	px *proxy.Proxy
}

// New{{$w}} wraps px.
func New{{$w}}(px *proxy.Proxy) *{{$w}} {
	return &{{$w}}{px: px}
}

// Proxy returns the wrapped proxy.
func (w *{{$w}}) Proxy() *proxy.Proxy { return w.px }
{{range .Methods}}
func (w *{{$w}}) {{.Name}}({{.ParamList}}){{.ResultList}} {
{{- range .Body}}
	{{.}}
{{- end}}
}
{{end}}{{end}}`))

// Render renders f as gofmt-ed Go source.
func Render(f *File) ([]byte, error) {
	if f == nil || len(f.Interfaces) == 0 {
		return nil, ErrNoInterfaces
	}
	if f.Package == "" {
		return nil, ErrPackageName
	}
	paths := slices.Clone(f.Imports)
	paths = append(paths, proxyImport)
	for _, it := range f.Interfaces {
		for _, m := range it.Methods {
			if !m.takesContext() {
				paths = append(paths, contextImport)
			}
		}
	}
	slices.Sort(paths)
	view := fileView{Package: f.Package, Imports: slices.Compact(paths)}
	for _, it := range f.Interfaces {
		view.Interfaces = append(view.Interfaces, ifaceView{Interface: it, Wrapper: WrapperName(it.Name, f.Suffix)})
	}

	var buf bytes.Buffer
	if err := fileTmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("dpx(codegen): render: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("dpx(codegen): format: %w\n%s", err, buf.Bytes())
	}
	return src, nil
}
