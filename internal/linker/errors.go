// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package linker

import "fmt"

// MultipleLocalDefinitionsError indicates that two modules in the same
// context define the same class. No dominance rule is implemented: any
// duplicate definition is fatal, reserved for a future named
// DominanceRule option.
type MultipleLocalDefinitionsError struct {
	Context string
	Class   string
	First   string
	Second  string
}

func (e MultipleLocalDefinitionsError) Error() string {
	return fmt.Sprintf("context %s: class %s is defined by both %s and %s", e.Context, e.Class, e.First, e.Second)
}

// PackageConflictError indicates that the remote-supplier fixed point
// found a package that is both defined locally and imported, or reachable
// from two different supplying contexts.
type PackageConflictError struct {
	Package string
	First   string
	Second  string
}

func (e PackageConflictError) Error() string {
	return fmt.Sprintf("package %s is supplied by both context %s and context %s", e.Package, e.First, e.Second)
}

// DuplicateExportError indicates that a context's computed export set
// would otherwise have contained a package from two different sources
// (reserved for callers that want to distinguish this from the general
// PackageConflictError; the fixed point itself always reports
// PackageConflictError, treating the two as the same failure condition
// surfaced at different points in the propagation).
type DuplicateExportError struct {
	Package string
	Context string
}

func (e DuplicateExportError) Error() string {
	return fmt.Sprintf("package %s is exported more than once by context %s", e.Package, e.Context)
}
