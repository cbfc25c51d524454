// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

// Package repocatalog implements the directory-backed catalog kinds: an
// installed-module Library and a published-module Repository, both rooted
// at a directory on disk, guarded by a single-writer file lock and
// updated via write-temp-then-rename.
package repocatalog

import "fmt"

// IOError wraps a filesystem failure with the path that caused it.
type IOError struct {
	Path  string
	Cause error
}

func (e IOError) Error() string {
	return fmt.Sprintf("i/o error at %s: %s", e.Path, e.Cause)
}

func (e IOError) Unwrap() error { return e.Cause }

// LockedError indicates the single-writer lock on path could not be
// acquired.
type LockedError struct {
	Path string
}

func (e LockedError) Error() string {
	return fmt.Sprintf("library locked: %s", e.Path)
}

// StaleCatalogError indicates a repository's %catalog index could not be
// read or no longer matches the directory it describes.
type StaleCatalogError struct {
	Path   string
	Reason string
}

func (e StaleCatalogError) Error() string {
	return fmt.Sprintf("stale catalog at %s: %s", e.Path, e.Reason)
}

// ModuleIdMismatchError indicates a module file's own descriptor declares
// a different id than the one it was installed or published under.
type ModuleIdMismatchError struct {
	Requested string
	Declared  string
}

func (e ModuleIdMismatchError) Error() string {
	return fmt.Sprintf("module file declares id %s, expected %s", e.Declared, e.Requested)
}

// WrongFileTypeError indicates a module file stream's header type is not
// MODULE_FILE.
type WrongFileTypeError struct {
	Got string
}

func (e WrongFileTypeError) Error() string {
	return fmt.Sprintf("expected a MODULE_FILE stream, got %s", e.Got)
}

// OrphanedModuleFileError indicates a `.modfile` exists on disk with no
// matching entry in the repository's %catalog index.
type OrphanedModuleFileError struct {
	Id string
}

func (e OrphanedModuleFileError) Error() string {
	return fmt.Sprintf("module file on disk has no %%catalog entry: %s", e.Id)
}

// DanglingCatalogEntryError indicates %catalog records an id with no
// corresponding `.modfile` on disk.
type DanglingCatalogEntryError struct {
	Id string
}

func (e DanglingCatalogEntryError) Error() string {
	return fmt.Sprintf("%%catalog entry has no module file on disk: %s", e.Id)
}
