// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modcontext

import (
	"testing"

	"github.com/opentofu-labs/modsys/internal/modid"
	"github.com/opentofu-labs/modsys/internal/modinfo"
)

func module(t *testing.T, idStr string, requires ...modinfo.Dependence) *modinfo.ModuleInfo {
	t.Helper()
	id := modid.MustParseId(idStr)
	info, err := modinfo.NewModuleInfo(id, []modinfo.ModuleView{modinfo.NewModuleView(id)}, requires)
	if err != nil {
		t.Fatalf("module(%s): %s", idStr, err)
	}
	return info
}

func dep(query string, mods modinfo.Modifier) modinfo.Dependence {
	return modinfo.NewDependence(modid.MustParseQuery(query), mods)
}

// TestBuildSimpleTransitiveSeparatesContexts covers the case where no
// LOCAL edges means every module gets its own context.
func TestBuildSimpleTransitiveSeparatesContexts(t *testing.T) {
	a := module(t, "A@1", dep("B", 0))
	b := module(t, "B@1", dep("C", 0))
	c := module(t, "C@1")

	modules := map[modid.Id]*modinfo.ModuleInfo{a.Id(): a, b.Id(): b, c.Id(): c}
	owner := map[string]modid.Id{"B": b.Id(), "C": c.Id()}

	contexts, err := Build(modules, owner)
	if err != nil {
		t.Fatalf("Build: %s", err)
	}
	if len(contexts) != 3 {
		t.Fatalf("expected 3 contexts, got %d", len(contexts))
	}

	ctxFor := func(id modid.Id) *Context {
		for _, ctx := range contexts {
			if ctx.Contains(id) {
				return ctx
			}
		}
		return nil
	}
	if ctxFor(a.Id()) == ctxFor(b.Id()) {
		t.Fatal("expected A and B in separate contexts (no LOCAL edge)")
	}
}

// TestBuildLocalMergesContexts covers a LOCAL dependence merging two
// modules into one context.
func TestBuildLocalMergesContexts(t *testing.T) {
	a := module(t, "A@1", dep("B", modinfo.Local))
	b := module(t, "B@1")

	modules := map[modid.Id]*modinfo.ModuleInfo{a.Id(): a, b.Id(): b}
	owner := map[string]modid.Id{"B": b.Id()}

	contexts, err := Build(modules, owner)
	if err != nil {
		t.Fatalf("Build: %s", err)
	}
	if len(contexts) != 1 {
		t.Fatalf("expected a single context, got %d", len(contexts))
	}
	if !contexts[0].Contains(a.Id()) || !contexts[0].Contains(b.Id()) {
		t.Fatalf("expected both A and B in the single context")
	}
}

func TestBuildDropsUnresolvedOptionalLocalEdge(t *testing.T) {
	a := module(t, "A@1", dep("Z", modinfo.Local|modinfo.Optional))
	modules := map[modid.Id]*modinfo.ModuleInfo{a.Id(): a}

	contexts, err := Build(modules, map[string]modid.Id{})
	if err != nil {
		t.Fatalf("Build: %s", err)
	}
	if len(contexts) != 1 {
		t.Fatalf("expected exactly 1 context, got %d", len(contexts))
	}
}

func TestContextNameAndHashStableAfterFreeze(t *testing.T) {
	ctx := New()
	id := modid.MustParseId("a.mod@1.0")
	if err := ctx.Add(id); err != nil {
		t.Fatalf("Add: %s", err)
	}
	if err := ctx.Freeze(); err != nil {
		t.Fatalf("Freeze: %s", err)
	}
	name := ctx.Name()
	hash := ctx.Hash()
	if name != ctx.Name() || hash != ctx.Hash() {
		t.Fatal("expected name/hash to be stable across repeated calls")
	}
	if err := ctx.Add(modid.MustParseId("b.mod@1.0")); err == nil {
		t.Fatal("expected Add to fail after Freeze")
	}
	if err := ctx.Freeze(); err == nil {
		t.Fatal("expected a second Freeze to fail")
	}
}
