// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package repocatalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/opentofu-labs/modsys/internal/catalog"
	"github.com/opentofu-labs/modsys/internal/modfile"
	"github.com/opentofu-labs/modsys/internal/modid"
	"github.com/opentofu-labs/modsys/internal/modinfo"
)

func idStrings(ids []modid.Id) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func buildModuleFile(t *testing.T, name, version string, requires []modinfo.Dependence) []byte {
	t.Helper()
	id, err := modid.NewId(name, modid.MustParseVersion(version))
	if err != nil {
		t.Fatalf("NewId: %s", err)
	}
	view := modinfo.NewModuleView(id)
	view.Exports["pkg.a"] = struct{}{}
	info, err := modinfo.NewModuleInfo(id, []modinfo.ModuleView{view}, requires)
	if err != nil {
		t.Fatalf("NewModuleInfo: %s", err)
	}

	w := modfile.NewWriter(modfile.ModuleFileType)
	if err := w.AddModuleInfo(modinfo.Encode(info)); err != nil {
		t.Fatalf("AddModuleInfo: %s", err)
	}
	if err := w.AddClasses(map[string][]byte{
		"pkg.a.Main": []byte("main-class-bytes"),
	}); err != nil {
		t.Fatalf("AddClasses: %s", err)
	}
	data, err := w.WriteTo()
	if err != nil {
		t.Fatalf("WriteTo: %s", err)
	}
	return data
}

func TestLibraryInstallReadRemove(t *testing.T) {
	dir := t.TempDir()
	lib, err := OpenLibrary(dir, nil)
	if err != nil {
		t.Fatalf("OpenLibrary: %s", err)
	}

	id := modid.MustParseId("pkg@1.0")
	data := buildModuleFile(t, "pkg", "1.0", nil)

	if err := lib.InstallModuleFile(id, bytes.NewReader(data)); err != nil {
		t.Fatalf("InstallModuleFile: %s", err)
	}

	ids, err := lib.GatherLocalDeclaringModuleIds()
	if err != nil {
		t.Fatalf("GatherLocalDeclaringModuleIds: %s", err)
	}
	if len(ids) != 1 || !ids[0].Equal(id) {
		t.Fatalf("expected [%s], got %v", id, ids)
	}

	info, err := lib.ReadLocalModuleInfo(id)
	if err != nil {
		t.Fatalf("ReadLocalModuleInfo: %s", err)
	}
	if !info.Classes().Has("pkg.a.Main") {
		t.Fatalf("expected installed classes to include pkg.a.Main, got %v", info.Classes())
	}

	if err := lib.RemoveModule(id); err != nil {
		t.Fatalf("RemoveModule: %s", err)
	}
	if _, err := lib.ReadLocalModuleInfo(id); err == nil {
		t.Fatal("expected ModuleNotFoundError after removal")
	} else {
		var notFound catalog.ModuleNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected ModuleNotFoundError, got %T: %v", err, err)
		}
	}
}

func TestLibraryInstallRejectsIdMismatch(t *testing.T) {
	dir := t.TempDir()
	lib, err := OpenLibrary(dir, nil)
	if err != nil {
		t.Fatalf("OpenLibrary: %s", err)
	}
	data := buildModuleFile(t, "pkg", "1.0", nil)
	wrongId := modid.MustParseId("pkg@2.0")
	err = lib.InstallModuleFile(wrongId, bytes.NewReader(data))
	var mismatch ModuleIdMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected ModuleIdMismatchError, got %T: %v", err, err)
	}
}

func TestRepositoryPublishFetchValidateRemove(t *testing.T) {
	dir := t.TempDir()
	repo, err := OpenRepository(dir, nil)
	if err != nil {
		t.Fatalf("OpenRepository: %s", err)
	}

	id := modid.MustParseId("pkg@1.0")
	data := buildModuleFile(t, "pkg", "1.0", nil)

	if err := repo.PublishModuleFile(id, bytes.NewReader(data)); err != nil {
		t.Fatalf("PublishModuleFile: %s", err)
	}

	meta, err := repo.FetchMetaData(id)
	if err != nil {
		t.Fatalf("FetchMetaData: %s", err)
	}
	if meta.Kind != modfile.ModuleFileType.String() {
		t.Fatalf("unexpected kind %q", meta.Kind)
	}

	stream, err := repo.Fetch(id)
	if err != nil {
		t.Fatalf("Fetch: %s", err)
	}
	fetched, err := io.ReadAll(stream)
	_ = stream.Close()
	if err != nil {
		t.Fatalf("reading fetched stream: %s", err)
	}
	if !bytes.Equal(fetched, data) {
		t.Fatal("fetched bytes do not match published bytes")
	}

	extraOnDisk, extraInCatalog, err := repo.Validate()
	if err != nil {
		t.Fatalf("Validate: %s", err)
	}
	if len(extraOnDisk) != 0 || len(extraInCatalog) != 0 {
		t.Fatalf("expected a clean validate, got onDisk=%v inCatalog=%v", extraOnDisk, extraInCatalog)
	}

	info, err := repo.ReadLocalModuleInfo(id)
	if err != nil {
		t.Fatalf("ReadLocalModuleInfo: %s", err)
	}
	if !info.Id().Equal(id) {
		t.Fatalf("unexpected id %s", info.Id())
	}

	if err := repo.RemoveModuleFile(id); err != nil {
		t.Fatalf("RemoveModuleFile: %s", err)
	}
	if _, err := repo.FetchMetaData(id); err == nil {
		t.Fatal("expected ModuleNotFoundError after RemoveModuleFile")
	}
}

func TestRepositoryValidateDetectsOrphanAndDangling(t *testing.T) {
	dir := t.TempDir()
	repo, err := OpenRepository(dir, nil)
	if err != nil {
		t.Fatalf("OpenRepository: %s", err)
	}

	published := modid.MustParseId("pkg@1.0")
	data := buildModuleFile(t, "pkg", "1.0", nil)
	if err := repo.PublishModuleFile(published, bytes.NewReader(data)); err != nil {
		t.Fatalf("PublishModuleFile: %s", err)
	}

	orphanDir := filepath.Join(dir, "orphan")
	if err := os.MkdirAll(orphanDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %s", err)
	}
	orphanData := buildModuleFile(t, "orphan", "1.0", nil)
	if err := os.WriteFile(filepath.Join(orphanDir, "1.0.modfile"), orphanData, 0o644); err != nil {
		t.Fatalf("WriteFile: %s", err)
	}

	if err := os.Remove(filepath.Join(dir, published.Name, published.Version.String()+".modfile")); err != nil {
		t.Fatalf("Remove: %s", err)
	}

	extraOnDisk, extraInCatalog, err := repo.Validate()
	if err != nil {
		t.Fatalf("Validate: %s", err)
	}

	wantOnDisk := []string{modid.MustParseId("orphan@1.0").String()}
	if diff := cmp.Diff(wantOnDisk, idStrings(extraOnDisk)); diff != "" {
		t.Fatalf("extraOnDisk mismatch (-want +got):\n%s", diff)
	}
	wantInCatalog := []string{published.String()}
	if diff := cmp.Diff(wantInCatalog, idStrings(extraInCatalog)); diff != "" {
		t.Fatalf("extraInCatalog mismatch (-want +got):\n%s", diff)
	}

	err = ValidationError(extraOnDisk, extraInCatalog)
	var orphaned OrphanedModuleFileError
	var dangling DanglingCatalogEntryError
	if !errors.As(err, &orphaned) {
		t.Fatalf("expected ValidationError to wrap OrphanedModuleFileError, got %v", err)
	}
	if !errors.As(err, &dangling) {
		t.Fatalf("expected ValidationError to wrap DanglingCatalogEntryError, got %v", err)
	}
}

func TestLockerAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	locker := NewLocker(dir)
	release, err := locker.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %s", err)
	}
	if err := release(); err != nil {
		t.Fatalf("release: %s", err)
	}
}
