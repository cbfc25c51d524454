// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"testing"

	"github.com/opentofu-labs/modsys/internal/modcontext"
	"github.com/opentofu-labs/modsys/internal/modid"
)

type stubConfiguration struct {
	remote map[string]string // "contextName.pn" -> supplier context name
	byName map[string]*modcontext.Context
}

func (s stubConfiguration) GetContextForClass(string) (*modcontext.Context, bool) { return nil, false }

func (s stubConfiguration) GetContextForRemotePackage(cx *modcontext.Context, pn string) (string, bool) {
	name, ok := s.remote[cx.Name()+"."+pn]
	return name, ok
}

func (s stubConfiguration) ContextByName(name string) (*modcontext.Context, bool) {
	ctx, ok := s.byName[name]
	return ctx, ok
}

func buildFrozenContext(t *testing.T, idStr string, localClasses map[string]modid.Id) *modcontext.Context {
	t.Helper()
	ctx := modcontext.New()
	id := modid.MustParseId(idStr)
	if err := ctx.Add(id); err != nil {
		t.Fatalf("Add: %s", err)
	}
	if err := ctx.Freeze(); err != nil {
		t.Fatalf("Freeze: %s", err)
	}
	if err := ctx.SetLinkResult(localClasses, map[string]string{}, nil, nil); err != nil {
		t.Fatalf("SetLinkResult: %s", err)
	}
	return ctx
}

func TestResolveLocalClassHit(t *testing.T) {
	callerId := modid.MustParseId("A@1")
	caller := buildFrozenContext(t, "A@1", map[string]modid.Id{"pkg.a.Main": callerId})
	cfg := stubConfiguration{remote: map[string]string{}, byName: map[string]*modcontext.Context{}}

	r := NewResolver(nil)
	res, ok := r.Resolve(caller, "pkg.a.Main", cfg)
	if !ok {
		t.Fatal("expected a resolution")
	}
	if res.DefiningContext != caller || res.Remote {
		t.Fatalf("expected a local hit on caller, got %+v", res)
	}
}

func TestResolveRemoteFallback(t *testing.T) {
	caller := buildFrozenContext(t, "A@1", map[string]modid.Id{})
	supplierId := modid.MustParseId("B@1")
	supplier := buildFrozenContext(t, "B@1", map[string]modid.Id{"pkg.b.Lib": supplierId})

	cfg := stubConfiguration{
		remote: map[string]string{caller.Name() + ".pkg.b": supplier.Name()},
		byName: map[string]*modcontext.Context{supplier.Name(): supplier},
	}

	r := NewResolver(nil)
	res, ok := r.Resolve(caller, "pkg.b.Lib", cfg)
	if !ok {
		t.Fatal("expected a resolution")
	}
	if res.DefiningContext != supplier || !res.Remote {
		t.Fatalf("expected a remote hit on supplier, got %+v", res)
	}
}

func TestResolvePlatformShortCircuit(t *testing.T) {
	caller := buildFrozenContext(t, "A@1", map[string]modid.Id{})
	cfg := stubConfiguration{remote: map[string]string{}, byName: map[string]*modcontext.Context{}}

	r := NewResolver(PrefixPlatform{"java.lang"})
	res, ok := r.Resolve(caller, "java.lang.Object", cfg)
	if !ok {
		t.Fatal("expected platform lookup to report handled")
	}
	if res.DefiningContext != nil {
		t.Fatalf("expected no defining context for a platform class, got %+v", res)
	}
}

func TestResolveMiss(t *testing.T) {
	caller := buildFrozenContext(t, "A@1", map[string]modid.Id{})
	cfg := stubConfiguration{remote: map[string]string{}, byName: map[string]*modcontext.Context{}}

	r := NewResolver(nil)
	if _, ok := r.Resolve(caller, "pkg.unknown.Class", cfg); ok {
		t.Fatal("expected no resolution for an unsuppliable class")
	}
}
