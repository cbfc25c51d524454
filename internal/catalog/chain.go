// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"github.com/opentofu-labs/modsys/internal/modid"
	"github.com/opentofu-labs/modsys/internal/modinfo"
)

// CompositeChain adapts a flat list of catalogs, none of which need to know
// about each other, into a single Catalog whose Parent delegation walks the
// list in order: no new dispatch logic, just a different way to assemble
// the same lookup capability.
type CompositeChain struct {
	catalogs []Catalog
}

var _ Catalog = (*CompositeChain)(nil)

// NewCompositeChain builds a Catalog that consults each of cats in order.
// Passing zero catalogs is valid and yields an always-empty chain.
func NewCompositeChain(cats ...Catalog) *CompositeChain {
	return &CompositeChain{catalogs: cats}
}

func (c *CompositeChain) GatherLocalModuleIds(name string) ([]modid.Id, error) {
	if len(c.catalogs) == 0 {
		return nil, nil
	}
	return c.catalogs[0].GatherLocalModuleIds(name)
}

func (c *CompositeChain) GatherLocalDeclaringModuleIds() ([]modid.Id, error) {
	if len(c.catalogs) == 0 {
		return nil, nil
	}
	return c.catalogs[0].GatherLocalDeclaringModuleIds()
}

func (c *CompositeChain) ReadLocalModuleInfo(id modid.Id) (*modinfo.ModuleInfo, error) {
	if len(c.catalogs) == 0 {
		return nil, ModuleNotFoundError{Query: id.String()}
	}
	return c.catalogs[0].ReadLocalModuleInfo(id)
}

func (c *CompositeChain) Parent() (Catalog, bool) {
	if len(c.catalogs) <= 1 {
		return nil, false
	}
	return &CompositeChain{catalogs: c.catalogs[1:]}, true
}
