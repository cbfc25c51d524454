// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"errors"
	"testing"

	"github.com/opentofu-labs/modsys/internal/catalog"
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

func TestResolveSimpleTransitive(t *testing.T) {
	cat := catalog.NewMapCatalog(nil)
	cat.Put(module(t, "A@1", dep("B", 0)))
	cat.Put(module(t, "B@1", dep("C", 0)))
	cat.Put(module(t, "C@1"))

	res, err := Resolve(cat, []modid.Query{modid.MustParseQuery("A=1")}, Options{})
	if err != nil {
		t.Fatalf("Resolve: %s", err)
	}
	if len(res.Modules) != 3 {
		t.Fatalf("expected 3 modules, got %d", len(res.Modules))
	}
	for _, want := range []string{"A@1", "B@1", "C@1"} {
		if _, ok := res.Modules[modid.MustParseId(want)]; !ok {
			t.Errorf("expected %s in resolution", want)
		}
	}
}

func TestResolveVersionPin(t *testing.T) {
	cat := catalog.NewMapCatalog(nil)
	cat.Put(module(t, "A@1", dep("B>=2", 0)))
	cat.Put(module(t, "B@1"))
	cat.Put(module(t, "B@2"))
	cat.Put(module(t, "B@3"))

	res, err := Resolve(cat, []modid.Query{modid.MustParseQuery("A=1")}, Options{})
	if err != nil {
		t.Fatalf("Resolve: %s", err)
	}
	view := res.ModuleViewForName["B"]
	if view.Id.Version.String() != "3" {
		t.Fatalf("expected B@3 chosen, got %s", view.Id)
	}

	cat.Put(module(t, "B@4"))
	res2, err := Resolve(cat, []modid.Query{modid.MustParseQuery("A=1")}, Options{})
	if err != nil {
		t.Fatalf("Resolve (with B@4): %s", err)
	}
	if got := res2.ModuleViewForName["B"].Id.Version.String(); got != "4" {
		t.Fatalf("expected B@4 chosen once available, got %s", got)
	}
}

func TestResolvePermitsFailure(t *testing.T) {
	cat := catalog.NewMapCatalog(nil)
	cat.Put(module(t, "A@1", dep("B", 0)))

	bID := modid.MustParseId("B@1")
	bView := modinfo.NewModuleView(bID)
	bView.Permits = map[string]struct{}{"X": {}}
	bInfo, err := modinfo.NewModuleInfo(bID, []modinfo.ModuleView{bView}, nil)
	if err != nil {
		t.Fatalf("NewModuleInfo: %s", err)
	}
	cat.Put(bInfo)

	_, err = Resolve(cat, []modid.Query{modid.MustParseQuery("A=1")}, Options{})
	if err == nil {
		t.Fatal("expected a permits failure")
	}
	var permErr PermitsError
	if !errors.As(err, &permErr) {
		t.Fatalf("error %v is not PermitsError", err)
	}
	if permErr.Requestor != "A" {
		t.Errorf("expected requestor A, got %s", permErr.Requestor)
	}
}

func TestResolveOptionalUnsatisfied(t *testing.T) {
	cat := catalog.NewMapCatalog(nil)
	cat.Put(module(t, "A@1", dep("Z", modinfo.Optional)))

	res, err := Resolve(cat, []modid.Query{modid.MustParseQuery("A=1")}, Options{})
	if err != nil {
		t.Fatalf("Resolve: %s", err)
	}
	if len(res.Modules) != 1 {
		t.Fatalf("expected only A resolved, got %d modules", len(res.Modules))
	}
}

func TestResolveCannotResolve(t *testing.T) {
	cat := catalog.NewMapCatalog(nil)
	cat.Put(module(t, "A@1", dep("Z", 0)))

	_, err := Resolve(cat, []modid.Query{modid.MustParseQuery("A=1")}, Options{})
	if err == nil {
		t.Fatal("expected CannotResolveError")
	}
	var cannotResolve CannotResolveError
	if !errors.As(err, &cannotResolve) {
		t.Fatalf("error %v is not CannotResolveError", err)
	}
}

func TestResolveDeterministic(t *testing.T) {
	cat := catalog.NewMapCatalog(nil)
	cat.Put(module(t, "A@1", dep("B", 0), dep("C", 0)))
	cat.Put(module(t, "B@1"))
	cat.Put(module(t, "C@1"))

	res1, err := Resolve(cat, []modid.Query{modid.MustParseQuery("A=1")}, Options{})
	if err != nil {
		t.Fatalf("Resolve: %s", err)
	}
	res2, err := Resolve(cat, []modid.Query{modid.MustParseQuery("A=1")}, Options{})
	if err != nil {
		t.Fatalf("Resolve: %s", err)
	}
	if len(res1.ModulesNeeded()) != len(res2.ModulesNeeded()) {
		t.Fatal("expected identical module counts across runs")
	}
	for i, id := range res1.ModulesNeeded() {
		if !id.Equal(res2.ModulesNeeded()[i]) {
			t.Fatalf("non-deterministic ordering at index %d: %s vs %s", i, id, res2.ModulesNeeded()[i])
		}
	}
}
