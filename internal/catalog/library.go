// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"io"

	"github.com/opentofu-labs/modsys/internal/modid"
	"github.com/opentofu-labs/modsys/internal/modinfo"
)

// Library is a writable Catalog: the on-disk directory of installed
// modules that the resolver consults and the installer writes into.
// Mutating methods are expected to honor a single-writer file lock and
// atomic-rename publishing discipline; this interface only specifies the
// operations, not the locking, which lives in the concrete implementation
// (package repocatalog's on-disk Library).
type Library interface {
	Catalog

	// InstallModuleFile copies a module file's content into the library
	// under the given id, making it locally discoverable afterwards. It is
	// an installer's entry point; the installer itself is not implemented
	// by this package.
	InstallModuleFile(id modid.Id, content io.Reader) error

	// RemoveModule deletes an installed module's on-disk artifacts and
	// catalog entry.
	RemoveModule(id modid.Id) error
}

// RepositoryMetaData is the metadata Repository.FetchMetaData returns for
// a module file without downloading its full content.
type RepositoryMetaData struct {
	Kind             string
	CompressedSize   uint64
	UncompressedSize uint64
}

// Repository is a read-only Catalog of downloadable module *files* keyed
// by id, as opposed to a Library's already-installed module metadata.
type Repository interface {
	Catalog

	// Fetch opens a stream of the module file's bytes for id. The caller
	// is responsible for closing the returned stream.
	Fetch(id modid.Id) (io.ReadCloser, error)

	// FetchMetaData returns size/kind metadata for id without fetching
	// its full content.
	FetchMetaData(id modid.Id) (RepositoryMetaData, error)
}

// MapCatalog is a minimal in-memory Catalog, useful for tests and worked
// examples. It is not a Library or Repository; those capabilities are
// layered on separately (package repocatalog) since they involve on-disk
// persistence this package intentionally knows nothing about.
type MapCatalog struct {
	byId   map[modid.Id]*modinfo.ModuleInfo
	parent Catalog
}

var _ Catalog = (*MapCatalog)(nil)

// NewMapCatalog constructs an empty MapCatalog with the given optional
// parent (pass nil for a root catalog).
func NewMapCatalog(parent Catalog) *MapCatalog {
	return &MapCatalog{byId: make(map[modid.Id]*modinfo.ModuleInfo), parent: parent}
}

// Put installs info under its own declared id. It's the test/example
// equivalent of an installer copying a module file into a real Library.
func (c *MapCatalog) Put(info *modinfo.ModuleInfo) {
	c.byId[info.Id()] = info
}

func (c *MapCatalog) GatherLocalModuleIds(name string) ([]modid.Id, error) {
	var ids []modid.Id
	for id := range c.byId {
		if name == "" || id.Name == name {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *MapCatalog) GatherLocalDeclaringModuleIds() ([]modid.Id, error) {
	ids := make([]modid.Id, 0, len(c.byId))
	for id := range c.byId {
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *MapCatalog) ReadLocalModuleInfo(id modid.Id) (*modinfo.ModuleInfo, error) {
	info, ok := c.byId[id]
	if !ok {
		return nil, ModuleNotFoundError{Query: id.String()}
	}
	return info, nil
}

func (c *MapCatalog) Parent() (Catalog, bool) {
	if c.parent == nil {
		return nil, false
	}
	return c.parent, true
}
