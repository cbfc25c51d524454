// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"github.com/spf13/cobra"

	"github.com/opentofu-labs/modsys/internal/modsys"
)

// cliSettings layers modsys.FromEnvironment() under the persistent flags
// every subcommand shares, last writer wins.
type cliSettings struct {
	libraryPath             string
	traceLevel              string
	suppressPlatformDefault bool
}

func (c *cliSettings) resolve() modsys.Settings {
	s := modsys.FromEnvironment()
	if c.libraryPath != "" {
		s.LibraryPath = c.libraryPath
	}
	if c.traceLevel != "" {
		s.TraceLevel = c.traceLevel
	}
	if c.suppressPlatformDefault {
		s.SuppressPlatformDefault = true
	}
	return s
}

func newRootCommand() *cobra.Command {
	flags := &cliSettings{}

	root := &cobra.Command{
		Use:           "modsys",
		Short:         "Resolve, publish and inspect modsys module files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.libraryPath, "library-path", "", "root of the installed-module library (default: MODSYS_LIBRARY_PATH or a per-user data directory)")
	root.PersistentFlags().StringVar(&flags.traceLevel, "trace-level", "", "hclog level for diagnostic output: trace, debug, info, warn, error")
	root.PersistentFlags().BoolVar(&flags.suppressPlatformDefault, "suppress-platform-default", false, "do not add a SYNTHETIC platform dependence during resolution")

	root.AddCommand(
		newResolveCommand(flags),
		newPublishCommand(flags),
		newInspectCommand(flags),
		newCatalogCommand(flags),
	)
	return root
}
