// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package repocatalog

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/opentofu-labs/modsys/internal/catalog"
	"github.com/opentofu-labs/modsys/internal/modfile"
	"github.com/opentofu-labs/modsys/internal/modid"
	"github.com/opentofu-labs/modsys/internal/modinfo"
)

// Repository is the on-disk, directory-backed Repository implementation:
// a compact `%catalog` index (module + alias records) describing the raw
// published module files stored alongside it, guarded by the same `%lock`
// discipline as Library.
type Repository struct {
	root   string
	parent catalog.Catalog
	locker *Locker
}

var _ catalog.Repository = (*Repository)(nil)

// OpenRepository opens (creating if absent) a repository rooted at root.
func OpenRepository(root string, parent catalog.Catalog) (*Repository, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, IOError{Path: root, Cause: err}
	}
	return &Repository{root: root, parent: parent, locker: NewLocker(root)}, nil
}

func (r *Repository) catalogPath() string { return filepath.Join(r.root, "%catalog") }

func (r *Repository) moduleFilePath(id modid.Id) string {
	return filepath.Join(r.root, id.Name, id.Version.String()+".modfile")
}

// load reads %catalog fresh on every call, so readers never need the
// lock. A repository with no %catalog yet (nothing published) reads as
// empty rather than an error.
func (r *Repository) load() ([]moduleRecord, []aliasRecord, error) {
	path := r.catalogPath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, IOError{Path: path, Cause: err}
	}
	typ, body, err := modfile.ReadWholeFile(data)
	if err != nil {
		return nil, nil, err
	}
	if typ != modfile.StreamCatalogFile {
		return nil, nil, StaleCatalogError{Path: path, Reason: "unexpected file type " + typ.String()}
	}
	return decodeCatalog(body)
}

func (r *Repository) GatherLocalModuleIds(name string) ([]modid.Id, error) {
	modules, aliases, err := r.load()
	if err != nil {
		return nil, err
	}
	var ids []modid.Id
	for _, m := range modules {
		if name == "" || m.Id.Name == name {
			ids = append(ids, m.Id)
		}
	}
	for _, a := range aliases {
		if name == "" || a.ViewId.Name == name {
			ids = append(ids, a.ViewId)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids, nil
}

func (r *Repository) GatherLocalDeclaringModuleIds() ([]modid.Id, error) {
	modules, _, err := r.load()
	if err != nil {
		return nil, err
	}
	ids := make([]modid.Id, 0, len(modules))
	for _, m := range modules {
		ids = append(ids, m.Id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids, nil
}

func (r *Repository) ReadLocalModuleInfo(id modid.Id) (*modinfo.ModuleInfo, error) {
	modules, aliases, err := r.load()
	if err != nil {
		return nil, err
	}
	target := id
	for _, a := range aliases {
		if a.ViewId.Equal(id) {
			target = a.ModuleId
			break
		}
	}
	for _, m := range modules {
		if m.Id.Equal(target) {
			info, err := modinfo.Decode(m.Descriptor)
			if err != nil {
				return nil, StaleCatalogError{Path: r.catalogPath(), Reason: err.Error()}
			}
			return info, nil
		}
	}
	return nil, catalog.ModuleNotFoundError{Query: id.String()}
}

func (r *Repository) Parent() (catalog.Catalog, bool) {
	if r.parent == nil {
		return nil, false
	}
	return r.parent, true
}

// Fetch opens the raw module file stored for id.
func (r *Repository) Fetch(id modid.Id) (io.ReadCloser, error) {
	path := r.moduleFilePath(id)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, catalog.ModuleNotFoundError{Query: id.String()}
		}
		return nil, IOError{Path: path, Cause: err}
	}
	return f, nil
}

// FetchMetaData returns id's recorded size/kind metadata without opening
// its module file.
func (r *Repository) FetchMetaData(id modid.Id) (catalog.RepositoryMetaData, error) {
	modules, _, err := r.load()
	if err != nil {
		return catalog.RepositoryMetaData{}, err
	}
	for _, m := range modules {
		if m.Id.Equal(id) {
			return catalog.RepositoryMetaData{
				Kind:             m.Kind,
				CompressedSize:   m.CompressedSize,
				UncompressedSize: m.UncompressedSize,
			}, nil
		}
	}
	return catalog.RepositoryMetaData{}, catalog.ModuleNotFoundError{Query: id.String()}
}

// PublishModuleFile adds a module file to the repository: its raw bytes
// are stored for later Fetch and its descriptor/metadata are
// recorded in %catalog, along with an alias record for each of its
// additional views. This is not part of the catalog.Repository interface
// (which is read-only); it is the concrete counterpart the "publish" CLI
// subcommand drives.
func (r *Repository) PublishModuleFile(id modid.Id, content io.Reader) error {
	release, err := r.locker.Acquire(context.Background())
	if err != nil {
		return err
	}
	defer release()

	data, err := io.ReadAll(content)
	if err != nil {
		return IOError{Path: r.moduleFilePath(id), Cause: err}
	}
	fileReader, extracted, err := walkModuleFile(data, false)
	if err != nil {
		return err
	}
	info, err := modinfo.Decode(extracted.Descriptor)
	if err != nil {
		return StaleCatalogError{Reason: err.Error()}
	}
	if !info.Id().Equal(id) {
		return ModuleIdMismatchError{Requested: id.String(), Declared: info.Id().String()}
	}

	modules, aliases, err := r.load()
	if err != nil {
		return err
	}
	modules = removeModuleRecord(modules, id)
	modules = append(modules, moduleRecord{
		Id:               id,
		Kind:             fileReader.Header.Type.String(),
		CompressedSize:   fileReader.Header.CSize,
		UncompressedSize: fileReader.Header.USize,
		HashType:         fileReader.Header.HashType,
		Hash:             fileReader.Header.Hash,
		Descriptor:       extracted.Descriptor,
	})
	aliases = removeAliasesFor(aliases, id)
	for _, v := range info.Views() {
		if v.Id.Equal(id) {
			continue
		}
		aliases = append(aliases, aliasRecord{ViewId: v.Id, ModuleId: id})
	}

	if err := r.persistModuleFile(id, data); err != nil {
		return err
	}
	return r.persistCatalog(modules, aliases)
}

// RemoveModuleFile removes a published module file and its catalog entry.
func (r *Repository) RemoveModuleFile(id modid.Id) error {
	release, err := r.locker.Acquire(context.Background())
	if err != nil {
		return err
	}
	defer release()

	modules, aliases, err := r.load()
	if err != nil {
		return err
	}
	found := false
	kept := modules[:0:0]
	for _, m := range modules {
		if m.Id.Equal(id) {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return catalog.ModuleNotFoundError{Query: id.String()}
	}
	aliases = removeAliasesFor(aliases, id)

	path := r.moduleFilePath(id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return IOError{Path: path, Cause: err}
	}
	return r.persistCatalog(kept, aliases)
}

func removeModuleRecord(modules []moduleRecord, id modid.Id) []moduleRecord {
	out := modules[:0:0]
	for _, m := range modules {
		if !m.Id.Equal(id) {
			out = append(out, m)
		}
	}
	return out
}

func removeAliasesFor(aliases []aliasRecord, id modid.Id) []aliasRecord {
	out := aliases[:0:0]
	for _, a := range aliases {
		if !a.ModuleId.Equal(id) {
			out = append(out, a)
		}
	}
	return out
}

func (r *Repository) persistModuleFile(id modid.Id, data []byte) error {
	dest := r.moduleFilePath(id)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return IOError{Path: dest, Cause: err}
	}
	tmp := dest + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return IOError{Path: tmp, Cause: err}
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return IOError{Path: dest, Cause: err}
	}
	return nil
}

func (r *Repository) persistCatalog(modules []moduleRecord, aliases []aliasRecord) error {
	sort.Slice(modules, func(i, j int) bool { return modules[i].Id.Compare(modules[j].Id) < 0 })
	sort.Slice(aliases, func(i, j int) bool { return aliases[i].ViewId.Compare(aliases[j].ViewId) < 0 })
	data := modfile.WriteWholeFile(modfile.StreamCatalogFile, encodeCatalog(modules, aliases))
	path := r.catalogPath()
	tmp := path + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return IOError{Path: tmp, Cause: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return IOError{Path: path, Cause: err}
	}
	return nil
}

// Validate cross-checks the repository directory's `.modfile` files
// against %catalog's recorded entries, reporting ids present only on disk
// and ids present only in the catalog.
func (r *Repository) Validate() (extraOnDisk []modid.Id, extraInCatalog []modid.Id, err error) {
	modules, _, err := r.load()
	if err != nil {
		return nil, nil, err
	}
	cataloged := make(map[modid.Id]bool, len(modules))
	for _, m := range modules {
		cataloged[m.Id] = true
	}

	matches, err := doublestar.Glob(os.DirFS(r.root), "*/*.modfile")
	if err != nil {
		return nil, nil, IOError{Path: r.root, Cause: err}
	}
	onDisk := make(map[modid.Id]bool, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(m, ".modfile")
		parts := strings.SplitN(name, "/", 2)
		if len(parts) != 2 {
			continue
		}
		version, err := modid.ParseVersion(parts[1])
		if err != nil {
			continue
		}
		id, err := modid.NewId(parts[0], version)
		if err != nil {
			continue
		}
		onDisk[id] = true
		if !cataloged[id] {
			extraOnDisk = append(extraOnDisk, id)
		}
	}
	for id := range cataloged {
		if !onDisk[id] {
			extraInCatalog = append(extraInCatalog, id)
		}
	}
	sort.Slice(extraOnDisk, func(i, j int) bool { return extraOnDisk[i].Compare(extraOnDisk[j]) < 0 })
	sort.Slice(extraInCatalog, func(i, j int) bool { return extraInCatalog[i].Compare(extraInCatalog[j]) < 0 })
	return extraOnDisk, extraInCatalog, nil
}

// ValidationError aggregates the mismatches Validate reports into a single
// error, one entry per orphaned module file or dangling catalog entry, so
// a caller that just wants a pass/fail result doesn't have to walk both
// slices itself.
func ValidationError(extraOnDisk, extraInCatalog []modid.Id) error {
	var errs *multierror.Error
	for _, id := range extraOnDisk {
		errs = multierror.Append(errs, OrphanedModuleFileError{Id: id.String()})
	}
	for _, id := range extraInCatalog {
		errs = multierror.Append(errs, DanglingCatalogEntryError{Id: id.String()})
	}
	return errs.ErrorOrNil()
}
