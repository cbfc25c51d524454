// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opentofu-labs/modsys/internal/modfile"
	"github.com/opentofu-labs/modsys/internal/modinfo"
)

func newInspectCommand(_ *cliSettings) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <module-file>",
		Short: "Print a module file's header, sections and descriptor without installing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			r, err := modfile.NewReader(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "type: %s  version: %d.%d  hash: %s\n", r.Header.Type, r.Header.MajorVersion, r.Header.MinorVersion, r.Header.HashType)

			for {
				ev, err := r.Next()
				if err != nil {
					return err
				}
				switch ev {
				case modfile.EventStartSection:
					st, err := r.CurrentSectionType()
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "  section %s\n", st)
					if st == modfile.ModuleInfoSection {
						content, err := r.GetContentStream()
						if err != nil {
							return err
						}
						info, err := modinfo.Decode(content)
						if err != nil {
							return err
						}
						fmt.Fprintf(out, "    id: %s\n", info.Id())
						for _, v := range info.Views() {
							fmt.Fprintf(out, "    view: %s\n", v.Id)
						}
						for _, dep := range info.Requires() {
							fmt.Fprintf(out, "    requires: %s\n", dep.Query)
						}
					}
				case modfile.EventStartSubsection:
					path, err := r.CurrentSubsectionPath()
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "    file %s\n", path)
				case modfile.EventEndFile:
					fmt.Fprintln(out, "file hash ok")
					return nil
				}
			}
		},
	}
}
