// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

// Package configuration assembles a resolved, context-built, linked module
// set into the single frozen, queryable object consumers actually use: a
// Configuration. It is the one component downstream code (a classloader,
// a build tool, a CLI inspector) ever needs to hold onto once resolution
// has finished.
package configuration

import (
	"sort"

	"github.com/opentofu-labs/modsys/internal/collections"
	"github.com/opentofu-labs/modsys/internal/modcontext"
	"github.com/opentofu-labs/modsys/internal/modid"
	"github.com/opentofu-labs/modsys/internal/resolver"
)

// Configuration is the immutable result of resolving one set of root
// queries, partitioning the result into contexts, and linking them. It is
// safe to share and query concurrently: nothing about it changes after
// Build returns.
type Configuration struct {
	rootIds              []modid.Id
	nameToOwner          map[string]modid.Id
	contextForModule     map[modid.Id]*modcontext.Context
	contextNameToContext map[string]*modcontext.Context
	traversalOrder       []*modcontext.Context
}

// Build assembles a Configuration from a resolver.Resolution and the
// contexts modcontext.Build/linker.Link produced from it. Every context
// passed in must already be frozen and linked.
func Build(resolution *resolver.Resolution, contexts []*modcontext.Context) (*Configuration, error) {
	contextForModule := make(map[modid.Id]*modcontext.Context, len(resolution.Modules))
	contextNameToContext := make(map[string]*modcontext.Context, len(contexts))
	for _, ctx := range contexts {
		contextNameToContext[ctx.Name()] = ctx
		for _, id := range ctx.ModuleIds() {
			contextForModule[id] = ctx
		}
	}
	for id := range resolution.Modules {
		if _, ok := contextForModule[id]; !ok {
			return nil, OrphanModuleError{Module: id.String()}
		}
	}

	rootIds := make([]modid.Id, 0, len(resolution.RootQueries))
	rootContexts := make([]*modcontext.Context, 0, len(resolution.RootQueries))
	seenRootContext := make(map[string]bool, len(resolution.RootQueries))
	for _, q := range resolution.RootQueries {
		ownerId, ok := resolution.ViewOwner[q.Name]
		if !ok {
			return nil, UnknownRootError{Query: q.String()}
		}
		rootIds = append(rootIds, ownerId)
		ctx := contextForModule[ownerId]
		if !seenRootContext[ctx.Name()] {
			seenRootContext[ctx.Name()] = true
			rootContexts = append(rootContexts, ctx)
		}
	}

	nameToOwner := make(map[string]modid.Id, len(resolution.ViewOwner))
	for name, ownerId := range resolution.ViewOwner {
		nameToOwner[name] = ownerId
	}

	return &Configuration{
		rootIds:              rootIds,
		nameToOwner:          nameToOwner,
		contextForModule:     contextForModule,
		contextNameToContext: contextNameToContext,
		traversalOrder:       classpathOrder(rootContexts, contextNameToContext),
	}, nil
}

// classpathOrder computes the depth-first, classpath-style visitation order
// used by GetContextForClass: starting from each root context in turn, it
// follows that context's remote-package suppliers before moving to the
// next root, so a class visible through an earlier root's dependency chain
// always wins over one only reachable through a later root. The context
// graph can contain cycles (a PUBLIC re-export can point back at an
// ancestor), so visited contexts are never revisited.
func classpathOrder(rootContexts []*modcontext.Context, byName map[string]*modcontext.Context) []*modcontext.Context {
	visited := make(map[string]bool, len(byName))
	var order []*modcontext.Context
	var visit func(ctx *modcontext.Context)
	visit = func(ctx *modcontext.Context) {
		if visited[ctx.Name()] {
			return
		}
		visited[ctx.Name()] = true
		order = append(order, ctx)

		suppliers := make(map[string]bool)
		for _, supplierName := range ctx.RemotePackageToContext() {
			suppliers[supplierName] = true
		}
		names := make([]string, 0, len(suppliers))
		for name := range suppliers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if next, ok := byName[name]; ok {
				visit(next)
			}
		}
	}
	for _, ctx := range rootContexts {
		visit(ctx)
	}
	// Any context unreachable from a root (possible if a query resolved a
	// module whose context no root directly or transitively depends on)
	// still needs to be queryable; append the stragglers in name order.
	var stragglers []*modcontext.Context
	for name, ctx := range byName {
		if !visited[name] {
			stragglers = append(stragglers, ctx)
		}
	}
	sort.Slice(stragglers, func(i, j int) bool { return stragglers[i].Name() < stragglers[j].Name() })
	return append(order, stragglers...)
}

// RootIds returns the module ids that satisfied the original root queries,
// in the same order those queries were given.
func (c *Configuration) RootIds() []modid.Id {
	return c.rootIds
}

// Contexts returns every context in this configuration, in classpath
// traversal order.
func (c *Configuration) Contexts() []*modcontext.Context {
	return c.traversalOrder
}

// FindContextForModuleName returns the context that contains the module
// bound to name (a root, view, or alias name resolved against this
// configuration's Resolution), or false if name wasn't bound.
func (c *Configuration) FindContextForModuleName(name string) (*modcontext.Context, bool) {
	ownerId, ok := c.nameToOwner[name]
	if !ok {
		return nil, false
	}
	ctx, ok := c.contextForModule[ownerId]
	return ctx, ok
}

// GetContextForClass searches every context for class's defining module in
// classpath order, returning the first context whose local class map
// contains it. Per this component's classpath-style resolution, a class
// reachable through more than one context resolves to the first one
// encountered in traversal order.
func (c *Configuration) GetContextForClass(class string) (*modcontext.Context, bool) {
	for _, ctx := range c.traversalOrder {
		if _, ok := ctx.LocalClassToModule()[class]; ok {
			return ctx, true
		}
	}
	return nil, false
}

// GetContextForRemotePackage returns the name of the context that supplies
// package pn to cx, as computed by the linker, or false if cx has no
// recorded remote supplier for pn.
func (c *Configuration) GetContextForRemotePackage(cx *modcontext.Context, pn string) (string, bool) {
	name, ok := cx.RemotePackageToContext()[pn]
	return name, ok
}

// ContextByName looks up a context by its canonical name.
func (c *Configuration) ContextByName(name string) (*modcontext.Context, bool) {
	ctx, ok := c.contextNameToContext[name]
	return ctx, ok
}

// Services returns the union, across every context, of each service
// interface's provider set.
func (c *Configuration) Services() map[string]collections.Set[string] {
	out := map[string]collections.Set[string]{}
	for _, ctx := range c.traversalOrder {
		for iface, providers := range ctx.Services() {
			out[iface] = out[iface].Union(providers)
		}
	}
	return out
}
