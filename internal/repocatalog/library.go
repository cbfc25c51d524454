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

	"github.com/opentofu-labs/modsys/internal/catalog"
	"github.com/opentofu-labs/modsys/internal/collections"
	"github.com/opentofu-labs/modsys/internal/modfile"
	"github.com/opentofu-labs/modsys/internal/modid"
	"github.com/opentofu-labs/modsys/internal/modinfo"
)

// Library is the on-disk, writable Library implementation: a
// `%jigsaw-library` header, one `<name>/<version>/` directory per
// installed module holding its expanded info/classes/lib/bin/etc trees,
// and a `%lock` sibling file guarding every mutation.
type Library struct {
	root   string
	parent catalog.Catalog
	locker *Locker
}

var _ catalog.Library = (*Library)(nil)

// sectionDirs maps a file-bearing section type to the filesystem layout
// directory its subsections extract into. RESOURCES has no standard
// directory name (only CLASSES/NATIVE_LIBS/NATIVE_CMDS/CONFIG do);
// "resources" is this implementation's choice, alongside the named three,
// for where resource files co-located with classes end up.
var sectionDirs = map[modfile.SectionType]string{
	modfile.ResourcesSection:  "resources",
	modfile.NativeLibsSection: "lib",
	modfile.NativeCmdsSection: "bin",
	modfile.ConfigSection:     "etc",
}

// OpenLibrary opens (creating if absent) a library rooted at root. parent
// is the catalog consulted when a local lookup misses (pass nil for a
// root library with no parent).
func OpenLibrary(root string, parent catalog.Catalog) (*Library, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, IOError{Path: root, Cause: err}
	}
	headerPath := filepath.Join(root, "%jigsaw-library")
	if _, err := os.Stat(headerPath); os.IsNotExist(err) {
		if err := os.WriteFile(headerPath, modfile.WriteLibraryHeader(), 0o644); err != nil {
			return nil, IOError{Path: headerPath, Cause: err}
		}
	} else if err != nil {
		return nil, IOError{Path: headerPath, Cause: err}
	} else {
		data, err := os.ReadFile(headerPath)
		if err != nil {
			return nil, IOError{Path: headerPath, Cause: err}
		}
		if err := modfile.ReadLibraryHeader(data); err != nil {
			return nil, err
		}
	}
	return &Library{root: root, parent: parent, locker: NewLocker(root)}, nil
}

func (l *Library) moduleDir(id modid.Id) string {
	return filepath.Join(l.root, id.Name, id.Version.String())
}

// scan rereads every installed module's "info" file fresh: readers may
// proceed lock-free since updates are atomic.
func (l *Library) scan() ([]*modinfo.ModuleInfo, error) {
	matches, err := doublestar.Glob(os.DirFS(l.root), "*/*/info")
	if err != nil {
		return nil, IOError{Path: l.root, Cause: err}
	}
	sort.Strings(matches)
	infos := make([]*modinfo.ModuleInfo, 0, len(matches))
	for _, m := range matches {
		data, err := os.ReadFile(filepath.Join(l.root, m))
		if err != nil {
			return nil, IOError{Path: m, Cause: err}
		}
		info, err := modinfo.Decode(data)
		if err != nil {
			return nil, StaleCatalogError{Path: m, Reason: err.Error()}
		}
		classes, err := l.scanClasses(info.Id())
		if err != nil {
			return nil, err
		}
		infos = append(infos, info.WithClasses(classes))
	}
	return infos, nil
}

func (l *Library) scanClasses(id modid.Id) (collections.Set[string], error) {
	classesDir := filepath.Join(l.moduleDir(id), "classes")
	if _, err := os.Stat(classesDir); os.IsNotExist(err) {
		return collections.Set[string]{}, nil
	}
	matches, err := doublestar.Glob(os.DirFS(classesDir), "**/*.class")
	if err != nil {
		return nil, IOError{Path: classesDir, Cause: err}
	}
	classes := collections.Set[string]{}
	for _, m := range matches {
		name := strings.TrimSuffix(m, ".class")
		classes[strings.ReplaceAll(name, "/", ".")] = struct{}{}
	}
	return classes, nil
}

func (l *Library) GatherLocalModuleIds(name string) ([]modid.Id, error) {
	infos, err := l.scan()
	if err != nil {
		return nil, err
	}
	var ids []modid.Id
	for _, info := range infos {
		for _, v := range info.Views() {
			if name == "" || v.Id.Name == name {
				ids = append(ids, v.Id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids, nil
}

func (l *Library) GatherLocalDeclaringModuleIds() ([]modid.Id, error) {
	infos, err := l.scan()
	if err != nil {
		return nil, err
	}
	ids := make([]modid.Id, 0, len(infos))
	for _, info := range infos {
		ids = append(ids, info.Id())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids, nil
}

// ReadLocalModuleInfo matches id against every view of every installed
// module, not only declared ids, since an alternate view's id is a
// first-class identity for the same underlying module.
func (l *Library) ReadLocalModuleInfo(id modid.Id) (*modinfo.ModuleInfo, error) {
	infos, err := l.scan()
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		for _, v := range info.Views() {
			if v.Id.Equal(id) {
				return info, nil
			}
		}
	}
	return nil, catalog.ModuleNotFoundError{Query: id.String()}
}

func (l *Library) Parent() (catalog.Catalog, bool) {
	if l.parent == nil {
		return nil, false
	}
	return l.parent, true
}

// InstallModuleFile parses content as a module file, validates its
// descriptor declares id, and atomically publishes its expanded tree
// (info/classes/lib/bin/etc/resources) under the library root.
func (l *Library) InstallModuleFile(id modid.Id, content io.Reader) error {
	release, err := l.locker.Acquire(context.Background())
	if err != nil {
		return err
	}
	defer release()

	data, err := io.ReadAll(content)
	if err != nil {
		return IOError{Path: l.moduleDir(id), Cause: err}
	}
	_, extracted, err := walkModuleFile(data, true)
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

	finalDir := l.moduleDir(id)
	if err := os.MkdirAll(filepath.Dir(finalDir), 0o755); err != nil {
		return IOError{Path: finalDir, Cause: err}
	}
	tmpDir := finalDir + ".tmp-" + uuid.NewString()
	if err := writeLibraryModuleTree(tmpDir, extracted); err != nil {
		_ = os.RemoveAll(tmpDir)
		return err
	}
	_ = os.RemoveAll(finalDir)
	if err := os.Rename(tmpDir, finalDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return IOError{Path: finalDir, Cause: err}
	}
	return nil
}

// RemoveModule deletes an installed module's on-disk artifacts.
func (l *Library) RemoveModule(id modid.Id) error {
	release, err := l.locker.Acquire(context.Background())
	if err != nil {
		return err
	}
	defer release()

	dir := l.moduleDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return catalog.ModuleNotFoundError{Query: id.String()}
	}
	if err := os.RemoveAll(dir); err != nil {
		return IOError{Path: dir, Cause: err}
	}
	return nil
}

func writeLibraryModuleTree(dir string, extracted *extractedModule) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return IOError{Path: dir, Cause: err}
	}
	if err := os.WriteFile(filepath.Join(dir, "info"), extracted.Descriptor, 0o644); err != nil {
		return IOError{Path: dir, Cause: err}
	}
	for _, entry := range extracted.Classes {
		relPath := strings.ReplaceAll(entry.Path, ".", string(filepath.Separator)) + ".class"
		if err := writeFileDeep(filepath.Join(dir, "classes", relPath), entry.Content); err != nil {
			return err
		}
	}
	for st, subdir := range sectionDirs {
		for path, content := range extracted.Files[st] {
			dest := filepath.Join(dir, subdir, filepath.FromSlash(path))
			if err := writeFileDeep(dest, content); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFileDeep(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return IOError{Path: path, Cause: err}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return IOError{Path: path, Cause: err}
	}
	return nil
}
