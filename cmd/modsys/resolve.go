// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opentofu-labs/modsys/internal/configuration"
	"github.com/opentofu-labs/modsys/internal/linker"
	"github.com/opentofu-labs/modsys/internal/modcontext"
	"github.com/opentofu-labs/modsys/internal/modid"
	"github.com/opentofu-labs/modsys/internal/repocatalog"
	"github.com/opentofu-labs/modsys/internal/resolver"
)

func newResolveCommand(flags *cliSettings) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <root-query>...",
		Short: "Resolve a root query set against the library and print the bound modules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := flags.resolve()

			roots := make([]modid.Query, len(args))
			for i, a := range args {
				q, err := modid.ParseQuery(a)
				if err != nil {
					return err
				}
				roots[i] = q
			}

			lib, err := repocatalog.OpenLibrary(settings.LibraryPath, nil)
			if err != nil {
				return err
			}

			resolution, err := resolver.Resolve(lib, roots, resolver.Options{
				SuppressPlatformDefault: settings.SuppressPlatformDefault,
				Logger:                  settings.Logger("resolve"),
			})
			if err != nil {
				return err
			}

			contexts, err := modcontext.Build(resolution.Modules, resolution.ViewOwner)
			if err != nil {
				return err
			}
			if err := linker.Link(contexts, resolution.Modules, resolution.ViewOwner); err != nil {
				return err
			}
			cfg, err := configuration.Build(resolution, contexts)
			if err != nil {
				return err
			}

			for _, id := range resolution.ModulesNeeded() {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d contexts, %d bytes to download\n", len(cfg.Contexts()), resolution.SpaceRequired)
			return nil
		},
	}
}
