// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package linker

import (
	"errors"
	"testing"

	"github.com/opentofu-labs/modsys/internal/collections"
	"github.com/opentofu-labs/modsys/internal/modcontext"
	"github.com/opentofu-labs/modsys/internal/modid"
	"github.com/opentofu-labs/modsys/internal/modinfo"
)

func module(t *testing.T, idStr string, classes []string, requires ...modinfo.Dependence) *modinfo.ModuleInfo {
	t.Helper()
	id := modid.MustParseId(idStr)
	info, err := modinfo.NewModuleInfo(id, []modinfo.ModuleView{modinfo.NewModuleView(id)}, requires)
	if err != nil {
		t.Fatalf("module(%s): %s", idStr, err)
	}
	set := collections.Set[string]{}
	for _, c := range classes {
		set[c] = struct{}{}
	}
	return info.WithClasses(set)
}

func dep(query string, mods modinfo.Modifier) modinfo.Dependence {
	return modinfo.NewDependence(modid.MustParseQuery(query), mods)
}

// buildContexts runs modcontext.Build and returns the contexts, ready to
// feed into Link together with the caller's module map.
func buildContexts(t *testing.T, modules map[modid.Id]*modinfo.ModuleInfo, owner map[string]modid.Id) []*modcontext.Context {
	t.Helper()
	contexts, err := modcontext.Build(modules, owner)
	if err != nil {
		t.Fatalf("Build: %s", err)
	}
	return contexts
}

// TestLinkPropagatesRemotePackage covers a simple non-LOCAL, non-PUBLIC
// dependence: A's context should resolve pkg/b as remotely supplied by B's
// context, without re-exporting it onward.
func TestLinkPropagatesRemotePackage(t *testing.T) {
	a := module(t, "A@1", []string{"pkg.a.Main"}, dep("B", 0))
	b := module(t, "B@1", []string{"pkg.b.Lib"})

	modules := map[modid.Id]*modinfo.ModuleInfo{a.Id(): a, b.Id(): b}
	owner := map[string]modid.Id{"B": b.Id()}

	contexts := buildContexts(t, modules, owner)
	if len(contexts) != 2 {
		t.Fatalf("expected 2 contexts, got %d", len(contexts))
	}

	if err := Link(contexts, modules, owner); err != nil {
		t.Fatalf("Link: %s", err)
	}

	ctxA := contextContaining(t, contexts, a.Id())
	ctxB := contextContaining(t, contexts, b.Id())

	if got := ctxA.RemotePackageToContext()["pkg.b"]; got != ctxB.Name() {
		t.Fatalf("expected A's context to resolve pkg.b to B's context, got %q", got)
	}
	if ctxA.Exports().Has("pkg.b") {
		t.Fatal("expected A's context not to re-export pkg.b (dependence was not PUBLIC)")
	}
}

// TestLinkPublicReexportPropagatesTransitively covers the three-module chain
// A -> B (PUBLIC) -> C, where C's packages must reach A's consumers too.
func TestLinkPublicReexportPropagatesTransitively(t *testing.T) {
	a := module(t, "A@1", []string{"pkg.a.Main"}, dep("B", 0))
	b := module(t, "B@1", []string{"pkg.b.Lib"}, dep("C", modinfo.Public))
	c := module(t, "C@1", []string{"pkg.c.Core"})

	modules := map[modid.Id]*modinfo.ModuleInfo{a.Id(): a, b.Id(): b, c.Id(): c}
	owner := map[string]modid.Id{"B": b.Id(), "C": c.Id()}

	contexts := buildContexts(t, modules, owner)
	if err := Link(contexts, modules, owner); err != nil {
		t.Fatalf("Link: %s", err)
	}

	ctxA := contextContaining(t, contexts, a.Id())
	ctxB := contextContaining(t, contexts, b.Id())
	ctxC := contextContaining(t, contexts, c.Id())

	if got := ctxB.RemotePackageToContext()["pkg.c"]; got != ctxC.Name() {
		t.Fatalf("expected B's context to resolve pkg.c to C's context, got %q", got)
	}
	if !ctxB.Exports().Has("pkg.c") {
		t.Fatal("expected B's context to re-export pkg.c (PUBLIC dependence on C)")
	}
	if got := ctxA.RemotePackageToContext()["pkg.c"]; got != ctxC.Name() {
		t.Fatalf("expected A's context to transitively resolve pkg.c to C's context, got %q", got)
	}
}

// TestLinkMultipleLocalDefinitionsFails covers two modules sharing a context
// (via a LOCAL edge) that define the same class.
func TestLinkMultipleLocalDefinitionsFails(t *testing.T) {
	a := module(t, "A@1", []string{"pkg.shared.Thing"}, dep("B", modinfo.Local))
	b := module(t, "B@1", []string{"pkg.shared.Thing"})

	modules := map[modid.Id]*modinfo.ModuleInfo{a.Id(): a, b.Id(): b}
	owner := map[string]modid.Id{"B": b.Id()}

	contexts := buildContexts(t, modules, owner)
	if len(contexts) != 1 {
		t.Fatalf("expected a single merged context, got %d", len(contexts))
	}

	err := Link(contexts, modules, owner)
	var mld MultipleLocalDefinitionsError
	if !errors.As(err, &mld) {
		t.Fatalf("expected MultipleLocalDefinitionsError, got %v", err)
	}
	if mld.Class != "pkg.shared.Thing" {
		t.Fatalf("unexpected class in error: %s", mld.Class)
	}
}

// TestLinkPackageConflictFails covers a context depending on two distinct
// suppliers that both define the same package.
func TestLinkPackageConflictFails(t *testing.T) {
	a := module(t, "A@1", []string{"pkg.a.Main"}, dep("B", 0), dep("C", 0))
	b := module(t, "B@1", []string{"pkg.shared.Thing"})
	c := module(t, "C@1", []string{"pkg.shared.Other"})

	modules := map[modid.Id]*modinfo.ModuleInfo{a.Id(): a, b.Id(): b, c.Id(): c}
	owner := map[string]modid.Id{"B": b.Id(), "C": c.Id()}

	contexts := buildContexts(t, modules, owner)
	if len(contexts) != 3 {
		t.Fatalf("expected 3 contexts, got %d", len(contexts))
	}

	err := Link(contexts, modules, owner)
	var pc PackageConflictError
	if !errors.As(err, &pc) {
		t.Fatalf("expected PackageConflictError, got %v", err)
	}
	if pc.Package != "pkg.shared" {
		t.Fatalf("unexpected package in error: %s", pc.Package)
	}
}

// TestLinkLocalDependenceDoesNotCountAsRemoteSupplier ensures a LOCAL
// dependence (already merged into the same context by the builder) is not
// also treated as a remote-supplier edge.
func TestLinkLocalDependenceDoesNotCountAsRemoteSupplier(t *testing.T) {
	a := module(t, "A@1", []string{"pkg.a.Main"}, dep("B", modinfo.Local))
	b := module(t, "B@1", []string{"pkg.b.Lib"})

	modules := map[modid.Id]*modinfo.ModuleInfo{a.Id(): a, b.Id(): b}
	owner := map[string]modid.Id{"B": b.Id()}

	contexts := buildContexts(t, modules, owner)
	if len(contexts) != 1 {
		t.Fatalf("expected a single merged context, got %d", len(contexts))
	}

	if err := Link(contexts, modules, owner); err != nil {
		t.Fatalf("Link: %s", err)
	}
	ctx := contexts[0]
	if len(ctx.RemotePackageToContext()) != 0 {
		t.Fatalf("expected no remote packages for a fully-local context, got %v", ctx.RemotePackageToContext())
	}
	if _, ok := ctx.LocalClassToModule()["pkg.a.Main"]; !ok {
		t.Fatal("expected pkg.a.Main in local class map")
	}
	if _, ok := ctx.LocalClassToModule()["pkg.b.Lib"]; !ok {
		t.Fatal("expected pkg.b.Lib in local class map")
	}
}

func contextContaining(t *testing.T, contexts []*modcontext.Context, id modid.Id) *modcontext.Context {
	t.Helper()
	for _, ctx := range contexts {
		if ctx.Contains(id) {
			return ctx
		}
	}
	t.Fatalf("no context contains %s", id)
	return nil
}
