// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

// Package loader describes the classloader boundary this design hands off
// to: given a caller's context and a class name, find the context that
// should define it. The loader implementation itself (bytecode loading,
// defineClass, parent delegation to an actual JVM bootstrap loader) is
// explicitly out of scope; only the lookup contract and the delegation/
// bootstrap rules it must honor live here.
package loader

import (
	"github.com/opentofu-labs/modsys/internal/modcontext"
	"github.com/opentofu-labs/modsys/internal/modinfo"
)

// Resolution is the outcome of looking up a class from a caller's context:
// which context actually defines it, and whether the lookup had to cross a
// context boundary via a remote-package supplier to get there.
type Resolution struct {
	DefiningContext *modcontext.Context
	Remote          bool
}

// Platform reports whether class belongs to a bootstrap/platform package,
// in which case lookup must short-circuit to the runtime's own built-in
// loader instead of consulting any Configuration. The predicate tests a
// fixed set of package prefixes, configured once for a Resolver's
// lifetime.
type Platform interface {
	IsPlatformClass(class string) bool
}

// PrefixPlatform is a Platform that matches classes by package-name
// prefix, the representation this design's bootstrap/platform predicate
// is specified as.
type PrefixPlatform []string

// IsPlatformClass reports whether class falls under any of p's package
// prefixes.
func (p PrefixPlatform) IsPlatformClass(class string) bool {
	for _, prefix := range p {
		if hasPackagePrefix(class, prefix) {
			return true
		}
	}
	return false
}

func hasPackagePrefix(class, prefix string) bool {
	if prefix == "" {
		return true
	}
	if len(class) < len(prefix) {
		return false
	}
	if class[:len(prefix)] != prefix {
		return false
	}
	return len(class) == len(prefix) || class[len(prefix)] == '.'
}

// Configuration is the subset of configuration.Configuration the Resolver
// depends on, kept narrow so this package doesn't need to import the
// configuration package back (configuration has no reason to depend on
// loader, and this keeps the dependency one-directional).
type Configuration interface {
	GetContextForClass(class string) (*modcontext.Context, bool)
	GetContextForRemotePackage(cx *modcontext.Context, pn string) (string, bool)
	ContextByName(name string) (*modcontext.Context, bool)
}

// Resolver implements the classloader boundary contract: given a caller's
// context, a class name, and a Configuration, find the context that
// defines the class. Local lookup (the caller's own context) is tried
// first; a miss falls back to the remote-package map the linker computed
// for the caller's context, exactly matching the child-before-parent
// delegation rule an actual classloader built on this design must honor.
type Resolver struct {
	Platform Platform
}

// NewResolver returns a Resolver using platform to short-circuit
// bootstrap/platform classes. platform may be nil, in which case no class
// is ever treated as a platform class.
func NewResolver(platform Platform) *Resolver {
	return &Resolver{Platform: platform}
}

// Resolve looks up class as seen from caller's context.
//
// Bootstrap/platform classes short-circuit immediately with a Resolution
// whose DefiningContext is nil and Remote is false: the caller is expected
// to hand such a lookup to the runtime's own built-in loader rather than
// to anything derived from a Configuration.
//
// Otherwise, lookup first checks whether caller's own context already
// defines the class. Failing that, it consults caller's remote-package
// supplier map for the class's package; a hit there names the context one
// loader instance up the delegation chain should actually define the
// class in.
func (r *Resolver) Resolve(caller *modcontext.Context, class string, cfg Configuration) (Resolution, bool) {
	if r.Platform != nil && r.Platform.IsPlatformClass(class) {
		return Resolution{}, true
	}
	if _, ok := caller.LocalClassToModule()[class]; ok {
		return Resolution{DefiningContext: caller, Remote: false}, true
	}
	pn := modinfo.PackageOf(class)
	supplierName, ok := cfg.GetContextForRemotePackage(caller, pn)
	if !ok {
		return Resolution{}, false
	}
	supplier, ok := cfg.ContextByName(supplierName)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{DefiningContext: supplier, Remote: true}, true
}
