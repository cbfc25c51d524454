// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modinfo

import (
	"fmt"

	"github.com/opentofu-labs/modsys/internal/collections"
	"github.com/opentofu-labs/modsys/internal/modid"
)

// ModuleInfo is the (id, views, requires) triple that describes one
// module's metadata. The invariant that view ids are unique within a
// ModuleInfo and that the declared id is one of them is enforced by
// NewModuleInfo and never re-checked afterwards (ModuleInfo is immutable
// except for the one-time synthetic-dependence mutation performed by
// AddSyntheticPlatformDependence).
type ModuleInfo struct {
	id       modid.Id
	views    []ModuleView
	requires []Dependence
	frozen   bool
	// classes is the fully-qualified class listing backing this module's
	// bytes, as read from the catalog (ultimately the module file's
	// CLASSES section). It is the same set regardless of which view is
	// used to look the module up.
	classes collections.Set[string]
}

// NewModuleInfo validates and constructs a ModuleInfo. declaredId must
// match exactly one of views' ids, and every view id (including aliases'
// underlying ids, which are a different concept and not checked here) must
// be unique among views.
func NewModuleInfo(declaredId modid.Id, views []ModuleView, requires []Dependence) (*ModuleInfo, error) {
	seen := make(map[modid.Id]bool, len(views))
	foundDeclared := false
	for _, v := range views {
		if seen[v.Id] {
			return nil, InvalidModuleInfoError{
				Module:  declaredId.String(),
				Message: fmt.Sprintf("duplicate view id %s", v.Id),
			}
		}
		seen[v.Id] = true
		if v.Id.Equal(declaredId) {
			foundDeclared = true
		}
	}
	if !foundDeclared {
		return nil, InvalidModuleInfoError{
			Module:  declaredId.String(),
			Message: "declared id is not among the module's views",
		}
	}
	viewsCopy := make([]ModuleView, len(views))
	copy(viewsCopy, views)
	requiresCopy := make([]Dependence, len(requires))
	copy(requiresCopy, requires)
	return &ModuleInfo{id: declaredId, views: viewsCopy, requires: requiresCopy, classes: collections.Set[string]{}}, nil
}

// WithClasses returns mi with its class listing set to classes. It is used
// by the catalog/codec layer to attach the CLASSES section's contents
// after the ModuleInfo itself has been parsed from the MODULE_INFO
// section, since the two sections are read independently by the codec.
func (mi *ModuleInfo) WithClasses(classes collections.Set[string]) *ModuleInfo {
	mi.classes = classes
	return mi
}

// Classes returns the fully-qualified class names this module defines.
func (mi *ModuleInfo) Classes() collections.Set[string] {
	return mi.classes
}

// PackageOf returns the package portion of a fully-qualified, dot-separated
// class name: everything up to (not including) the final '.'. A class with
// no package (no dot) returns the empty string, the default package.
func PackageOf(class string) string {
	for i := len(class) - 1; i >= 0; i-- {
		if class[i] == '.' {
			return class[:i]
		}
	}
	return ""
}

// Packages returns the distinct set of packages this module's classes
// belong to.
func (mi *ModuleInfo) Packages() collections.Set[string] {
	packages := collections.Set[string]{}
	for class := range mi.classes {
		packages[PackageOf(class)] = struct{}{}
	}
	return packages
}

// Id returns the ModuleInfo's declared module id.
func (mi *ModuleInfo) Id() modid.Id { return mi.id }

// Name is a convenience accessor for Id().Name.
func (mi *ModuleInfo) Name() string { return mi.id.Name }

// Views returns the module's views. The returned slice must not be
// mutated by the caller.
func (mi *ModuleInfo) Views() []ModuleView { return mi.views }

// MainView returns the view whose id equals the ModuleInfo's declared id.
// NewModuleInfo guarantees this always succeeds.
func (mi *ModuleInfo) MainView() ModuleView {
	for _, v := range mi.views {
		if v.Id.Equal(mi.id) {
			return v
		}
	}
	panic("unreachable: NewModuleInfo guarantees the declared id is among the views")
}

// Requires returns the module's declared dependences, including any
// synthetic platform dependence added by AddSyntheticPlatformDependence.
// The returned slice must not be mutated by the caller.
func (mi *ModuleInfo) Requires() []Dependence { return mi.requires }

// HasPlatformDependence reports whether any of mi's requires names
// platformName, regardless of the Synthetic modifier.
func (mi *ModuleInfo) HasPlatformDependence(platformName string) bool {
	for _, dep := range mi.requires {
		if dep.Query.Name == platformName {
			return true
		}
	}
	return false
}

// AddSyntheticPlatformDependence performs a one-time mutation: if mi has
// no dependence on platformName, a SYNTHETIC dependence on it is
// appended. This must be called at most once per ModuleInfo,
// before resolution; a second call fails with AlreadyFrozenError so callers
// can detect a wiring bug rather than silently double-inserting the
// dependence.
func (mi *ModuleInfo) AddSyntheticPlatformDependence(platformQuery modid.Query) error {
	if mi.frozen {
		return AlreadyFrozenError{Module: mi.id.String()}
	}
	mi.frozen = true
	if mi.HasPlatformDependence(platformQuery.Name) {
		return nil
	}
	mi.requires = append(mi.requires, NewDependence(platformQuery, Synthetic))
	return nil
}
