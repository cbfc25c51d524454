// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opentofu-labs/modsys/internal/repocatalog"
)

func newCatalogCommand(flags *cliSettings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and maintain the %catalog index at --library-path",
	}
	cmd.AddCommand(newCatalogValidateCommand(flags))
	return cmd
}

func newCatalogValidateCommand(flags *cliSettings) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Cross-check %catalog against the module files on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := flags.resolve()

			repo, err := repocatalog.OpenRepository(settings.LibraryPath, nil)
			if err != nil {
				return err
			}
			extraOnDisk, extraInCatalog, err := repo.Validate()
			if err != nil {
				return err
			}
			if err := repocatalog.ValidationError(extraOnDisk, extraInCatalog); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
