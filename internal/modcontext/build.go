// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modcontext

import (
	"sort"

	"github.com/opentofu-labs/modsys/internal/modid"
	"github.com/opentofu-labs/modsys/internal/modinfo"
)

// Build partitions a resolved module set into Contexts: the connected
// components of the undirected graph whose vertices are modules and whose
// edges are the LOCAL dependences in either direction.
//
// modules is the resolution's bound module set, keyed by declared id.
// viewOwner maps each name a dependence can target (a module's own name or
// one of its view/alias names) to the declared id of the ModuleInfo that
// owns that view; it is exactly resolver.Resolution.ViewOwner. A LOCAL
// dependence whose target name has no entry in viewOwner is an unresolved
// OPTIONAL dependence (any non-optional miss would already have failed
// resolution) and its edge is simply dropped.
func Build(modules map[modid.Id]*modinfo.ModuleInfo, viewOwner map[string]modid.Id) ([]*Context, error) {
	adjacency := buildLocalAdjacency(modules, viewOwner)

	ids := sortedModuleIds(modules)
	assigned := make(map[modid.Id]bool, len(ids))
	var contexts []*Context

	for _, id := range ids {
		if assigned[id] {
			continue
		}
		ctx := New()
		assigned[id] = true
		stack := []modid.Id{id}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if err := ctx.Add(cur); err != nil {
				return nil, err
			}
			neighbors := adjacency[cur]
			sortedNeighbors := make([]modid.Id, 0, len(neighbors))
			for n := range neighbors {
				sortedNeighbors = append(sortedNeighbors, n)
			}
			sort.Slice(sortedNeighbors, func(i, j int) bool { return sortedNeighbors[i].Compare(sortedNeighbors[j]) < 0 })
			for _, n := range sortedNeighbors {
				if !assigned[n] {
					assigned[n] = true
					stack = append(stack, n)
				}
			}
		}
		if err := ctx.Freeze(); err != nil {
			return nil, err
		}
		contexts = append(contexts, ctx)
	}
	return contexts, nil
}

func buildLocalAdjacency(modules map[modid.Id]*modinfo.ModuleInfo, viewOwner map[string]modid.Id) map[modid.Id]map[modid.Id]bool {
	adjacency := make(map[modid.Id]map[modid.Id]bool)
	addEdge := func(a, b modid.Id) {
		if adjacency[a] == nil {
			adjacency[a] = make(map[modid.Id]bool)
		}
		adjacency[a][b] = true
		if adjacency[b] == nil {
			adjacency[b] = make(map[modid.Id]bool)
		}
		adjacency[b][a] = true
	}

	for id, info := range modules {
		for _, dep := range info.Requires() {
			if !dep.Modifiers.Has(modinfo.Local) {
				continue
			}
			target, ok := viewOwner[dep.Query.Name]
			if !ok {
				continue // unresolved OPTIONAL LOCAL dependence: no edge.
			}
			if target == id {
				continue
			}
			addEdge(id, target)
		}
	}
	return adjacency
}

func sortedModuleIds(modules map[modid.Id]*modinfo.ModuleInfo) []modid.Id {
	ids := make([]modid.Id, 0, len(modules))
	for id := range modules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids
}
