// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

// Package modcontext implements the Context type and the context-builder
// partitioning algorithm.
package modcontext

import (
	"hash/fnv"
	"sort"
	"strings"

	"github.com/opentofu-labs/modsys/internal/collections"
	"github.com/opentofu-labs/modsys/internal/modid"
)

// Context is a non-empty set of module ids whose classes share
// package-private visibility. It passes through a mutable -> frozen
// lifecycle: during the build phase modules are added to it; Freeze then
// computes its canonical name and locks the module set. A later, separate
// step (the linker) attaches the local-class and remote-package maps via
// SetLinkResult; once set, those too are permanently locked.
//
// Context deliberately holds no pointer to other Contexts: cross-context
// references go through interned context names, since the context graph
// can be cyclic via PUBLIC re-exports and a flat, index-addressed
// collection avoids any need to walk cycles directly.
type Context struct {
	moduleSet map[modid.Id]bool
	frozen    bool
	name      string

	linked                 bool
	localClassToModule     map[string]modid.Id
	remotePackageToContext map[string]string
	services               map[string]collections.Set[string]
	exports                collections.Set[string]
}

// New starts a new, empty, mutable Context.
func New() *Context {
	return &Context{moduleSet: make(map[modid.Id]bool)}
}

// Add places id into the context. It is an error to call Add after Freeze.
func (c *Context) Add(id modid.Id) error {
	if c.frozen {
		return AlreadyFrozenError{Operation: "Add"}
	}
	c.moduleSet[id] = true
	return nil
}

// Contains reports whether id is a member of the context.
func (c *Context) Contains(id modid.Id) bool {
	return c.moduleSet[id]
}

// Len returns the number of modules in the context.
func (c *Context) Len() int {
	return len(c.moduleSet)
}

// ModuleIds returns the context's module ids in the same stable sort order
// used to compute Name, so iteration is deterministic.
func (c *Context) ModuleIds() []modid.Id {
	ids := make([]modid.Id, 0, len(c.moduleSet))
	for id := range c.moduleSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids
}

// Freeze computes the context's canonical name ("+m1+m2+…" with module ids
// in sort order) and locks the module set. Name and Hash are stable for
// the rest of the Context's lifetime after this call.
func (c *Context) Freeze() error {
	if c.frozen {
		return AlreadyFrozenError{Operation: "Freeze"}
	}
	ids := c.ModuleIds()
	var b strings.Builder
	for _, id := range ids {
		b.WriteByte('+')
		b.WriteString(id.String())
	}
	c.name = b.String()
	c.frozen = true
	return nil
}

// Name returns the canonical, interned context name. It is the empty
// string before Freeze.
func (c *Context) Name() string {
	return c.name
}

// Hash derives a stable hash solely from the frozen module-id set,
// matching Name's stability guarantee.
func (c *Context) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(c.name))
	return h.Sum64()
}

// IsFrozen reports whether Freeze has already run.
func (c *Context) IsFrozen() bool { return c.frozen }

// IsLinked reports whether SetLinkResult has already run.
func (c *Context) IsLinked() bool { return c.linked }

// SetLinkResult attaches the linker's output to the context: the
// unique local class-to-module map, the remote package-to-context-name
// map, the aggregated service-provider map, and the set of packages this
// context re-exports to its own consumers. It requires the context to
// already be frozen, and may itself run only once.
func (c *Context) SetLinkResult(localClassToModule map[string]modid.Id, remotePackageToContext map[string]string, services map[string]collections.Set[string], exports collections.Set[string]) error {
	if !c.frozen {
		return NotFrozenError{Operation: "SetLinkResult"}
	}
	if c.linked {
		return AlreadyFrozenError{Operation: "SetLinkResult"}
	}
	c.localClassToModule = localClassToModule
	c.remotePackageToContext = remotePackageToContext
	c.services = services
	c.exports = exports
	c.linked = true
	return nil
}

// LocalClassToModule returns the frozen map from a fully-qualified class
// name to the module within this context that defines it.
func (c *Context) LocalClassToModule() map[string]modid.Id {
	return c.localClassToModule
}

// RemotePackageToContext returns the frozen map from an imported package
// name to the name of the context that supplies it.
func (c *Context) RemotePackageToContext() map[string]string {
	return c.remotePackageToContext
}

// Services returns the context's aggregated service-provider map.
func (c *Context) Services() map[string]collections.Set[string] {
	return c.services
}

// Exports returns the set of packages this context re-exports.
func (c *Context) Exports() collections.Set[string] {
	return c.exports
}
