// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

// Package modinfo implements the module metadata model: the immutable
// ModuleInfo/ModuleView/Dependence types that a Catalog (package catalog)
// hands back for a given module id.
package modinfo

import (
	"strings"

	"github.com/opentofu-labs/modsys/internal/modid"
)

// Modifier is one flag of a Dependence's modifier set: LOCAL, PUBLIC,
// OPTIONAL or SYNTHETIC. Modifiers combine with bitwise OR.
type Modifier uint8

const (
	// Local forces the supplier into the same Context as the requestor
	// (package-private visibility).
	Local Modifier = 1 << iota
	// Public re-exports the supplier's exports to the requestor's own
	// consumers.
	Public
	// Optional means an unsatisfied dependence is not a resolution failure.
	Optional
	// Synthetic marks a dependence added by the platform-default injection
	// in AddSyntheticPlatformDependence rather than declared by the module.
	Synthetic
)

// Has reports whether m includes the flag bits of other.
func (m Modifier) Has(other Modifier) bool {
	return m&other == other
}

func (m Modifier) String() string {
	var parts []string
	if m.Has(Local) {
		parts = append(parts, "local")
	}
	if m.Has(Public) {
		parts = append(parts, "public")
	}
	if m.Has(Optional) {
		parts = append(parts, "optional")
	}
	if m.Has(Synthetic) {
		parts = append(parts, "synthetic")
	}
	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, " ")
}

// Dependence is a (query, modifiers) pair: a requestor module's declared
// requirement on a supplier, with visibility and mandatoriness modifiers.
type Dependence struct {
	Query     modid.Query
	Modifiers Modifier
}

// NewDependence constructs a Dependence from a version query and modifiers.
func NewDependence(query modid.Query, modifiers Modifier) Dependence {
	return Dependence{Query: query, Modifiers: modifiers}
}
