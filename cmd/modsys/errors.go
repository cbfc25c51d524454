// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"

	"github.com/opentofu-labs/modsys/internal/linker"
	"github.com/opentofu-labs/modsys/internal/modcontext"
	"github.com/opentofu-labs/modsys/internal/modfile"
	"github.com/opentofu-labs/modsys/internal/repocatalog"
	"github.com/opentofu-labs/modsys/internal/resolver"
)

// exitCodeFor maps a returned error to a process exit code by matching it
// against the structured error kinds each subsystem defines. Unrecognized
// errors (including cobra's own usage errors) exit 1.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}

	var (
		cannotResolve  resolver.CannotResolveError
		permitsErr     resolver.PermitsError
		moduleNotFound resolver.ModuleNotFoundError
		localConflict  linker.MultipleLocalDefinitionsError
		pkgConflict    linker.PackageConflictError
		exportConflict linker.DuplicateExportError
		notFrozen      modcontext.NotFrozenError
		alreadyFrozen  modcontext.AlreadyFrozenError

		ioErr      repocatalog.IOError
		lockedErr  repocatalog.LockedError
		staleErr   repocatalog.StaleCatalogError
		idMismatch repocatalog.ModuleIdMismatchError
		orphaned   repocatalog.OrphanedModuleFileError
		dangling   repocatalog.DanglingCatalogEntryError

		formatErr    modfile.FormatError
		stateErr     modfile.StateError
		pathEscape   modfile.PathEscapeError
		wrongType    repocatalog.WrongFileTypeError
		unsupported  modfile.UnsupportedHashAlgorithmError
		hashMismatch modfile.HashMismatchError
	)

	switch {
	case errors.As(err, &cannotResolve), errors.As(err, &permitsErr), errors.As(err, &moduleNotFound),
		errors.As(err, &localConflict), errors.As(err, &pkgConflict), errors.As(err, &exportConflict),
		errors.As(err, &notFrozen), errors.As(err, &alreadyFrozen):
		return exitResolutionError
	case errors.As(err, &ioErr), errors.As(err, &lockedErr), errors.As(err, &staleErr), errors.As(err, &idMismatch),
		errors.As(err, &orphaned), errors.As(err, &dangling):
		return exitIOError
	case errors.As(err, &hashMismatch), errors.As(err, &unsupported):
		return exitHashError
	case errors.As(err, &formatErr), errors.As(err, &stateErr), errors.As(err, &pathEscape), errors.As(err, &wrongType):
		return exitFormatError
	default:
		return exitUsage
	}
}
