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

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"dirpx.dev/dpx/codegen"
)

// ErrNoTargets is returned when gen has nothing to generate.
var ErrNoTargets = errors.New("dpx(cli): no generation targets")

// Manifest lists generation targets.
//
//	targets:
//	  - dir: ./store
//	    interfaces: [Store]
//	    output: store_dpx.go
type Manifest struct {
	Targets []Target `yaml:"targets"`
}

// Target is one generated file.
type Target struct {
	// Dir is the package directory, relative to the manifest.
	Dir string `yaml:"dir"`
	// Pattern selects the package inside Dir. Empty means ".".
	Pattern string `yaml:"pattern,omitempty"`
	// Interfaces to wrap. Empty means every exported interface.
	Interfaces []string `yaml:"interfaces,omitempty"`
	// Package is the output package. Empty means the source package.
	Package string `yaml:"package,omitempty"`
	// Output is the generated file, relative to Dir. "-" means stdout.
	Output string `yaml:"output,omitempty"`
	// Suffix names the wrappers.
	Suffix string `yaml:"suffix,omitempty"`
}

// LoadManifest reads a manifest file. Target directories are resolved
// against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dpx(cli): %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("dpx(cli): %s: %w", path, err)
	}
	if len(m.Targets) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoTargets, path)
	}
	base := filepath.Dir(path)
	for i := range m.Targets {
		t := &m.Targets[i]
		if t.Dir == "" {
			t.Dir = "."
		}
		if !filepath.IsAbs(t.Dir) {
			t.Dir = filepath.Join(base, t.Dir)
		}
	}
	return &m, nil
}

// outputPath returns where t is written, or "" for stdout.
func (t Target) outputPath(pkg string) string {
	switch t.Output {
	case "-":
		return ""
	case "":
		name := pkg
		if len(t.Interfaces) == 1 {
			name = t.Interfaces[0]
		}
		return filepath.Join(t.Dir, codegen.FileName(name))
	}
	if filepath.IsAbs(t.Output) {
		return t.Output
	}
	return filepath.Join(t.Dir, t.Output)
}

// Generate renders t and writes it. Stdout output goes to w.
func Generate(ctx context.Context, t Target, w io.Writer, log *slog.Logger) (string, error) {
	pattern := t.Pattern
	if pattern == "" {
		pattern = "."
	}
	f, err := codegen.Load(ctx, codegen.LoadConfig{
		Dir:     t.Dir,
		Pattern: pattern,
		Names:   t.Interfaces,
		Package: t.Package,
	})
	if err != nil {
		return "", err
	}
	f.Suffix = t.Suffix
	src, err := codegen.Render(f)
	if err != nil {
		return "", err
	}
	out := t.outputPath(f.Package)
	if out == "" {
		_, err = w.Write(src)
		return "", err
	}
	if err := os.WriteFile(out, src, 0o644); err != nil {
		return "", fmt.Errorf("dpx(cli): %w", err)
	}
	log.Info("dpx: wrappers generated", "output", out, "interfaces", len(f.Interfaces))
	return out, nil
}

// GenOptions holds the gen flags.
type GenOptions struct {
	*RootOptions
	Manifest string
	Target   Target
	Watch    bool
}

// NewGenCommand creates the gen command.
func NewGenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "gen [dir]",
		Short: "Generate typed proxy wrappers",
		Long: `Generate typed wrappers over proxies for the interfaces of a package.

Targets come from a manifest (--manifest) or from flags. With --watch the
wrappers are regenerated whenever a Go file of a target changes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Target.Dir = args[0]
			}
			return runGen(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.Manifest, "manifest", "m", "", "generation manifest (YAML)")
	cmd.Flags().StringVar(&opts.Target.Pattern, "pattern", ".", "package pattern inside dir")
	cmd.Flags().StringSliceVarP(&opts.Target.Interfaces, "interface", "i", nil, "interfaces to wrap (default all exported)")
	cmd.Flags().StringVarP(&opts.Target.Package, "package", "p", "", "output package name")
	cmd.Flags().StringVarP(&opts.Target.Output, "output", "o", "", "output file (- for stdout)")
	cmd.Flags().StringVar(&opts.Target.Suffix, "suffix", codegen.DefaultSuffix, "wrapper name suffix")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "regenerate on source changes")

	return cmd
}

func (o *GenOptions) targets() ([]Target, error) {
	if o.Manifest != "" {
		m, err := LoadManifest(o.Manifest)
		if err != nil {
			return nil, err
		}
		return m.Targets, nil
	}
	t := o.Target
	if t.Dir == "" {
		t.Dir = "."
	}
	return []Target{t}, nil
}

func runGen(ctx context.Context, opts *GenOptions, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	targets, err := opts.targets()
	if err != nil {
		return err
	}
	outputs := map[string]bool{}
	var errs []error
	for _, t := range targets {
		out, err := Generate(ctx, t, stdout, opts.Logger)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Dir, err))
			continue
		}
		if out != "" {
			outputs[filepath.Clean(out)] = true
		}
	}
	if !opts.Watch {
		return errors.Join(errs...)
	}
	for _, err := range errs {
		opts.Logger.Error("dpx: generation failed", "error", err)
	}

	byDir := map[string]Target{}
	for _, t := range targets {
		byDir[filepath.Clean(t.Dir)] = t
	}
	isSource := func(name string) bool {
		return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go") && !outputs[filepath.Clean(name)]
	}
	return Watch(ctx, keys(byDir), isSource, opts.Logger, func(dir string) {
		if _, err := Generate(ctx, byDir[dir], stdout, opts.Logger); err != nil {
			opts.Logger.Error("dpx: generation failed", "dir", dir, "error", err)
		}
	})
}

func keys(m map[string]Target) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
