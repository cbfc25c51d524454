// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

// Package catalog implements the read-only lookup capability every
// catalog kind shares: chain-of-responsibility lookup of module metadata
// with parent delegation, plus the Library and Repository variants that
// add mutating and fetch capabilities respectively.
package catalog

import (
	"github.com/opentofu-labs/modsys/internal/modid"
	"github.com/opentofu-labs/modsys/internal/modinfo"
)

// Catalog is the read-only lookup capability shared by every concrete
// catalog kind: one capability set plus variants (Library, Repository),
// rather than an abstract base class hierarchy.
type Catalog interface {
	// GatherLocalModuleIds lists the ids this catalog alone (not its
	// parent) holds for the given module name. An empty name lists every
	// name this catalog holds.
	GatherLocalModuleIds(name string) ([]modid.Id, error)

	// GatherLocalDeclaringModuleIds lists every id that this catalog alone
	// declares as a ModuleInfo's declared id (as opposed to an alias or
	// additional view id).
	GatherLocalDeclaringModuleIds() ([]modid.Id, error)

	// ReadLocalModuleInfo reads the ModuleInfo this catalog alone holds for
	// id. It returns ModuleNotFoundError if the id isn't present locally,
	// even if a parent catalog would have it.
	ReadLocalModuleInfo(id modid.Id) (*modinfo.ModuleInfo, error)

	// Parent returns the catalog this one delegates to when a local lookup
	// misses, or (nil, false) if this catalog has no parent.
	Parent() (Catalog, bool)
}

// GatherModuleIds walks cat and its ancestors, returning the union of
// GatherLocalModuleIds(name) results.
func GatherModuleIds(cat Catalog, name string) ([]modid.Id, error) {
	var all []modid.Id
	for c := cat; c != nil; {
		ids, err := c.GatherLocalModuleIds(name)
		if err != nil {
			return nil, err
		}
		all = append(all, ids...)
		parent, ok := c.Parent()
		if !ok {
			break
		}
		c = parent
	}
	return all, nil
}

// GatherDeclaringModuleIds walks cat and its ancestors, returning the
// union of GatherLocalDeclaringModuleIds results.
func GatherDeclaringModuleIds(cat Catalog) ([]modid.Id, error) {
	var all []modid.Id
	for c := cat; c != nil; {
		ids, err := c.GatherLocalDeclaringModuleIds()
		if err != nil {
			return nil, err
		}
		all = append(all, ids...)
		parent, ok := c.Parent()
		if !ok {
			break
		}
		c = parent
	}
	return all, nil
}

// ReadModuleInfo walks cat and its ancestors (local catalog first) looking
// for id, returning ModuleNotFoundError if no catalog in the chain has it.
func ReadModuleInfo(cat Catalog, id modid.Id) (*modinfo.ModuleInfo, error) {
	for c := cat; c != nil; {
		info, err := c.ReadLocalModuleInfo(id)
		if err == nil {
			return info, nil
		}
		var notFound ModuleNotFoundError
		if !isNotFound(err, &notFound) {
			return nil, err
		}
		parent, ok := c.Parent()
		if !ok {
			break
		}
		c = parent
	}
	return nil, ModuleNotFoundError{Query: id.String()}
}

func isNotFound(err error, target *ModuleNotFoundError) bool {
	if e, ok := err.(ModuleNotFoundError); ok {
		*target = e
		return true
	}
	return false
}

// FindLatestModuleId returns the latest id across cat and its ancestors
// that matches query: ties are broken by total id order, most recent
// version first.
func FindLatestModuleId(cat Catalog, query modid.Query) (modid.Id, bool, error) {
	candidates, err := GatherModuleIds(cat, query.Name)
	if err != nil {
		return modid.Id{}, false, err
	}
	var best modid.Id
	found := false
	for _, id := range candidates {
		if !query.Matches(id) {
			continue
		}
		if !found || modid.CompareNewestFirst(id, best) < 0 {
			best = id
			found = true
		}
	}
	return best, found, nil
}
