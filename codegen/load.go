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

package codegen

import (
	"context"
	"errors"
	"fmt"
	"go/types"

	"golang.org/x/tools/go/packages"
)

// LoadConfig controls Load.
type LoadConfig struct {
	// Dir is the directory patterns are resolved in.
	Dir string
	// Pattern selects the package holding the interfaces.
	Pattern string
	// Names lists the interfaces to wrap. Empty means every exported
	// interface of the package.
	Names []string
	// Package is the output package name. Empty means the source
	// package, in which case its own types are written unqualified.
	Package string
}

// Load builds a model from source with golang.org/x/tools/go/packages.
// Parameter names are taken from the declarations.
func Load(ctx context.Context, cfg LoadConfig) (*File, error) {
	pcfg := &packages.Config{
		Context: ctx,
		Dir:     cfg.Dir,
		Mode:    packages.NeedName | packages.NeedTypes | packages.NeedImports,
	}
	pkgs, err := packages.Load(pcfg, cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("dpx(codegen): load %s: %w", cfg.Pattern, err)
	}
	if len(pkgs) != 1 {
		return nil, fmt.Errorf("dpx(codegen): pattern %s matched %d packages", cfg.Pattern, len(pkgs))
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		errs := make([]error, len(pkg.Errors))
		for i, e := range pkg.Errors {
			errs[i] = e
		}
		return nil, fmt.Errorf("dpx(codegen): load %s: %w", cfg.Pattern, errors.Join(errs...))
	}

	out := &File{Package: cfg.Package}
	local := ""
	if out.Package == "" || out.Package == pkg.Name {
		out.Package = pkg.Name
		local = pkg.PkgPath
	}
	im := imports{}
	var qerr error
	qual := func(p *types.Package) string {
		if p.Path() == local {
			return ""
		}
		if err := im.add(p.Name(), p.Path()); err != nil && qerr == nil {
			qerr = err
		}
		return p.Name()
	}

	names := cfg.Names
	scope := pkg.Types.Scope()
	if len(names) == 0 {
		for _, n := range scope.Names() {
			obj, ok := scope.Lookup(n).(*types.TypeName)
			if !ok || !obj.Exported() || obj.IsAlias() {
				continue
			}
			if _, ok := obj.Type().Underlying().(*types.Interface); ok {
				names = append(names, n)
			}
		}
	}
	for _, n := range names {
		obj, ok := scope.Lookup(n).(*types.TypeName)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrNotFound, pkg.PkgPath, n)
		}
		iface, ok := obj.Type().Underlying().(*types.Interface)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrNotInterface, pkg.PkgPath, n)
		}
		it := Interface{Name: n}
		for i := 0; i < iface.NumMethods(); i++ {
			fn := iface.Method(i)
			if !fn.Exported() {
				continue
			}
			sig := fn.Type().(*types.Signature)
			m := Method{Name: fn.Name(), Variadic: sig.Variadic()}
			for j := 0; j < sig.Params().Len(); j++ {
				v := sig.Params().At(j)
				ts := types.TypeString(v.Type(), qual)
				name := paramName(v.Name(), j)
				if j == 0 && ts == contextType && (v.Name() == "" || v.Name() == "_") {
					name = "ctx"
				}
				m.Params = append(m.Params, Param{Name: name, Type: ts})
			}
			for j := 0; j < sig.Results().Len(); j++ {
				m.Results = append(m.Results, Param{Type: types.TypeString(sig.Results().At(j).Type(), qual)})
			}
			it.Methods = append(it.Methods, m)
		}
		out.Interfaces = append(out.Interfaces, it)
	}
	if qerr != nil {
		return nil, qerr
	}
	if len(out.Interfaces) == 0 {
		return nil, ErrNoInterfaces
	}
	out.Imports = im.paths()
	return out, nil
}
