// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/opentofu-labs/modsys/internal/modfile"
	"github.com/opentofu-labs/modsys/internal/modinfo"
	"github.com/opentofu-labs/modsys/internal/repocatalog"
)

func newPublishCommand(flags *cliSettings) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <dir>",
		Short: "Publish every built module file under dir into the repository rooted at --library-path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := flags.resolve()
			dir := args[0]

			repo, err := repocatalog.OpenRepository(settings.LibraryPath, nil)
			if err != nil {
				return err
			}

			matches, err := doublestar.Glob(os.DirFS(dir), "**/*.modfile")
			if err != nil {
				return repocatalog.IOError{Path: dir, Cause: err}
			}
			for _, m := range matches {
				path := dir + string(os.PathSeparator) + m
				if err := publishOne(repo, path); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "published", path)
			}
			return nil
		},
	}
}

// publishOne decodes a module file's own declared id from its MODULE_INFO
// section, then republishes it under that id: the file is trusted to
// declare its own identity rather than having one imposed by the caller.
func publishOne(repo *repocatalog.Repository, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return repocatalog.IOError{Path: path, Cause: err}
	}
	r, err := modfile.NewReader(data)
	if err != nil {
		return err
	}

	var descriptor []byte
	for {
		ev, err := r.Next()
		if err != nil {
			return err
		}
		if ev == modfile.EventStartSection {
			st, err := r.CurrentSectionType()
			if err != nil {
				return err
			}
			if st == modfile.ModuleInfoSection {
				descriptor, err = r.GetContentStream()
				if err != nil {
					return err
				}
			}
		}
		if ev == modfile.EventEndFile {
			break
		}
	}

	info, err := modinfo.Decode(descriptor)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return repocatalog.IOError{Path: path, Cause: err}
	}
	defer f.Close()
	return repo.PublishModuleFile(info.Id(), f)
}
