// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modinfo

import (
	"errors"
	"testing"

	"github.com/opentofu-labs/modsys/internal/modid"
)

func TestNewModuleInfoRequiresDeclaredIdAmongViews(t *testing.T) {
	declared := modid.MustParseId("a.mod@1.0")
	other := modid.MustParseId("a.mod.alias@1.0")

	_, err := NewModuleInfo(declared, []ModuleView{NewModuleView(other)}, nil)
	if err == nil {
		t.Fatal("expected error when declared id is absent from views")
	}
	var invalid InvalidModuleInfoError
	if !errors.As(err, &invalid) {
		t.Fatalf("error %v is not InvalidModuleInfoError", err)
	}
}

func TestNewModuleInfoRejectsDuplicateViewIds(t *testing.T) {
	declared := modid.MustParseId("a.mod@1.0")
	_, err := NewModuleInfo(declared, []ModuleView{
		NewModuleView(declared),
		NewModuleView(declared),
	}, nil)
	if err == nil {
		t.Fatal("expected error for duplicate view ids")
	}
}

func TestAddSyntheticPlatformDependenceOnce(t *testing.T) {
	declared := modid.MustParseId("a.mod@1.0")
	mi, err := NewModuleInfo(declared, []ModuleView{NewModuleView(declared)}, nil)
	if err != nil {
		t.Fatalf("NewModuleInfo: %s", err)
	}
	platform := modid.MustParseQuery("platform.base")

	if err := mi.AddSyntheticPlatformDependence(platform); err != nil {
		t.Fatalf("first call: %s", err)
	}
	if len(mi.Requires()) != 1 {
		t.Fatalf("expected one synthetic dependence, got %d", len(mi.Requires()))
	}
	if !mi.Requires()[0].Modifiers.Has(Synthetic) {
		t.Fatal("expected synthetic modifier on the added dependence")
	}

	if err := mi.AddSyntheticPlatformDependence(platform); err == nil {
		t.Fatal("expected AlreadyFrozenError on second call")
	}
}

func TestAddSyntheticPlatformDependenceSkipsExisting(t *testing.T) {
	declared := modid.MustParseId("a.mod@1.0")
	existing := NewDependence(modid.MustParseQuery("platform.base>=1.0"), 0)
	mi, err := NewModuleInfo(declared, []ModuleView{NewModuleView(declared)}, []Dependence{existing})
	if err != nil {
		t.Fatalf("NewModuleInfo: %s", err)
	}
	if err := mi.AddSyntheticPlatformDependence(modid.MustParseQuery("platform.base")); err != nil {
		t.Fatalf("AddSyntheticPlatformDependence: %s", err)
	}
	if len(mi.Requires()) != 1 {
		t.Fatalf("expected the existing dependence to be left alone, got %d requires", len(mi.Requires()))
	}
}
