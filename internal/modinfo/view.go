// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modinfo

import (
	"github.com/opentofu-labs/modsys/internal/collections"
	"github.com/opentofu-labs/modsys/internal/modid"
)

// ModuleView is an alternate identity for the same underlying module bytes:
// its own id, aliases, optional main class, the requestors permitted
// to name it, the packages it exports, and the services it provides.
type ModuleView struct {
	Id        modid.Id
	Aliases   collections.Set[modid.Id]
	MainClass string // empty when the view has no entry point
	Permits   collections.Set[string]
	Exports   collections.Set[string]
	// Services maps a provider interface's fully-qualified name to the set
	// of fully-qualified provider class names the view supplies for it.
	Services map[string]collections.Set[string]
}

// NewModuleView constructs a ModuleView, defaulting nil sets/maps to empty
// ones so callers never need a nil check.
func NewModuleView(id modid.Id) ModuleView {
	return ModuleView{
		Id:       id,
		Aliases:  collections.Set[modid.Id]{},
		Permits:  collections.Set[string]{},
		Exports:  collections.Set[string]{},
		Services: map[string]collections.Set[string]{},
	}
}

// PermitsRequestor implements the permit rule: a supplier's permits set,
// if non-empty, whitelists the only requestor names allowed to depend on
// it. An empty permits set means "no restriction" as far as the view
// itself is concerned; the LOCAL-specific half of the rule lives in the
// resolver, since it also needs to know the dependence's modifiers.
func (v ModuleView) PermitsRequestor(requestorName string) bool {
	if len(v.Permits) == 0 {
		return true
	}
	return v.Permits.Has(requestorName)
}
