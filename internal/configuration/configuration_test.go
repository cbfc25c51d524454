// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package configuration

import (
	"testing"

	"github.com/opentofu-labs/modsys/internal/collections"
	"github.com/opentofu-labs/modsys/internal/linker"
	"github.com/opentofu-labs/modsys/internal/modcontext"
	"github.com/opentofu-labs/modsys/internal/modid"
	"github.com/opentofu-labs/modsys/internal/modinfo"
	"github.com/opentofu-labs/modsys/internal/resolver"
)

func testModule(t *testing.T, idStr string, classes []string, services map[string][]string, requires ...modinfo.Dependence) *modinfo.ModuleInfo {
	t.Helper()
	id := modid.MustParseId(idStr)
	view := modinfo.NewModuleView(id)
	for iface, providers := range services {
		view.Services[iface] = collections.NewSet(providers...)
	}
	info, err := modinfo.NewModuleInfo(id, []modinfo.ModuleView{view}, requires)
	if err != nil {
		t.Fatalf("testModule(%s): %s", idStr, err)
	}
	set := collections.Set[string]{}
	for _, c := range classes {
		set[c] = struct{}{}
	}
	return info.WithClasses(set)
}

func testDep(query string, mods modinfo.Modifier) modinfo.Dependence {
	return modinfo.NewDependence(modid.MustParseQuery(query), mods)
}

// buildConfiguration builds a Resolution by hand, then partitions, links,
// and assembles a Configuration for a small two-module graph: A (root) has a plain
// dependence on B, so A's context gets a remote supplier entry for B's
// package rather than a merged context.
func buildConfiguration(t *testing.T) (*Configuration, *resolver.Resolution) {
	t.Helper()
	a := testModule(t, "A@1", []string{"pkg.a.Main"}, nil, testDep("B", 0))
	b := testModule(t, "B@1", []string{"pkg.b.Lib"}, map[string][]string{"pkg.b.Svc": {"pkg.b.Impl"}})

	modules := map[modid.Id]*modinfo.ModuleInfo{a.Id(): a, b.Id(): b}
	owner := map[string]modid.Id{"A": a.Id(), "B": b.Id()}

	resolution := &resolver.Resolution{
		RootQueries:       []modid.Query{modid.MustParseQuery("A")},
		Modules:           modules,
		ModuleViewForName: map[string]modinfo.ModuleView{"A": a.MainView(), "B": b.MainView()},
		ViewOwner:         owner,
		LocationForName:   map[string]string{"A": "local", "B": "local"},
		DownloadRequired:  map[modid.Id]bool{},
	}

	contexts, err := modcontext.Build(modules, owner)
	if err != nil {
		t.Fatalf("modcontext.Build: %s", err)
	}
	if err := linker.Link(contexts, modules, owner); err != nil {
		t.Fatalf("linker.Link: %s", err)
	}

	cfg, err := Build(resolution, contexts)
	if err != nil {
		t.Fatalf("Build: %s", err)
	}
	return cfg, resolution
}

func TestFindContextForModuleName(t *testing.T) {
	cfg, _ := buildConfiguration(t)

	aCtx, ok := cfg.FindContextForModuleName("A")
	if !ok {
		t.Fatal("expected a context for A")
	}
	bCtx, ok := cfg.FindContextForModuleName("B")
	if !ok {
		t.Fatal("expected a context for B")
	}
	if aCtx.Name() == bCtx.Name() {
		t.Fatalf("A and B have no LOCAL dependence between them, expected separate contexts, both named %s", aCtx.Name())
	}

	if _, ok := cfg.FindContextForModuleName("nonexistent"); ok {
		t.Fatal("expected no context for an unbound name")
	}
}

func TestGetContextForClass(t *testing.T) {
	cfg, _ := buildConfiguration(t)

	ctx, ok := cfg.GetContextForClass("pkg.b.Lib")
	if !ok {
		t.Fatal("expected to find a context defining pkg.b.Lib")
	}
	if _, ok := ctx.LocalClassToModule()["pkg.b.Lib"]; !ok {
		t.Fatal("returned context does not actually define the class")
	}

	if _, ok := cfg.GetContextForClass("pkg.nonexistent.Class"); ok {
		t.Fatal("expected no context for an undefined class")
	}
}

func TestGetContextForRemotePackage(t *testing.T) {
	cfg, _ := buildConfiguration(t)

	aCtx, _ := cfg.FindContextForModuleName("A")
	supplier, ok := cfg.GetContextForRemotePackage(aCtx, "pkg.b")
	if !ok {
		t.Fatal("expected A's context to have a remote supplier for pkg.b")
	}
	bCtx, _ := cfg.FindContextForModuleName("B")
	if supplier != bCtx.Name() {
		t.Fatalf("expected supplier %s, got %s", bCtx.Name(), supplier)
	}
}

func TestServicesAggregatesAcrossContexts(t *testing.T) {
	cfg, _ := buildConfiguration(t)

	services := cfg.Services()
	providers, ok := services["pkg.b.Svc"]
	if !ok || !providers.Has("pkg.b.Impl") {
		t.Fatalf("expected pkg.b.Svc -> {pkg.b.Impl}, got %v", services)
	}
}

func TestRootIds(t *testing.T) {
	cfg, resolution := buildConfiguration(t)
	roots := cfg.RootIds()
	if len(roots) != 1 || !roots[0].Equal(resolution.ViewOwner["A"]) {
		t.Fatalf("expected root ids [%s], got %v", resolution.ViewOwner["A"], roots)
	}
}
