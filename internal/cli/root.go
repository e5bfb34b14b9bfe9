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

// Package cli implements the dpx command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/config"
)

// RootOptions holds the global flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string

	// Config and Logger are set before any subcommand runs.
	Config apis.Config
	Logger *slog.Logger
}

// NewRootCommand creates the dpx root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dpx",
		Short: "dpx - dynamic proxies for Go",
		Long: `dpx builds proxies whose calls run through interceptor chains.

The command line renders typed wrappers over proxies and inspects the
engine configuration.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "engine configuration file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "log format (text|json)")

	cmd.AddCommand(NewGenCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

func (o *RootOptions) setup(w io.Writer) error {
	logger, err := config.NewLogger(w, o.LogLevel, o.LogFormat)
	if err != nil {
		return err
	}
	o.Logger = logger

	cfg := config.DefaultConfig()
	if o.ConfigPath != "" {
		if cfg, err = config.Load(o.ConfigPath); err != nil {
			return err
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	o.Config = cfg
	o.Logger.Debug("dpx: configuration loaded", "path", o.ConfigPath, "retention", cfg.Retention)
	return nil
}

// NewConfigCommand creates the config command.
func NewConfigCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective engine configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := config.Encode(opts.Config)
			if err != nil {
				return fmt.Errorf("encode configuration: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}
