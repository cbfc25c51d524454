// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

// Package resolver implements the depth-first version-selection algorithm:
// given a root query set and a Catalog, it produces a consistent,
// version-pinned Resolution.
package resolver

import (
	"sort"

	"github.com/opentofu-labs/modsys/internal/modid"
	"github.com/opentofu-labs/modsys/internal/modinfo"
)

// Resolution is the resolver's output: the bound module set plus the
// bookkeeping the installer/context-builder need next.
type Resolution struct {
	RootQueries []modid.Query

	// Modules holds every ModuleInfo bound during resolution, keyed by its
	// declared id.
	Modules map[modid.Id]*modinfo.ModuleInfo

	// ModuleViewForName maps each required name (a module's own name or
	// one of its view/alias names) to the specific ModuleView that
	// satisfied it.
	ModuleViewForName map[string]modinfo.ModuleView

	// ViewOwner maps each name in ModuleViewForName to the declared id of
	// the ModuleInfo that owns the bound view (which may differ from the
	// view's own id when the name was satisfied through an alias). The
	// context builder (package modcontext) uses this to turn a LOCAL
	// dependence's target name into a module-graph edge.
	ViewOwner map[string]modid.Id

	// LocationForName records which catalog supplied each bound name:
	// "local" for the installed catalog chain, "remote" for the optional
	// repository path.
	LocationForName map[string]string

	// DownloadRequired is the set of ids that were only available from the
	// remote repository and so must be fetched before the configuration
	// can be used.
	DownloadRequired map[modid.Id]bool

	// SpaceRequired is the total uncompressed byte count the pending
	// downloads in DownloadRequired will need once fetched.
	SpaceRequired uint64
}

// ModulesNeeded returns the bound ids in the stable total id order
// (repeated calls against the same Resolution always produce the same
// order).
func (r *Resolution) ModulesNeeded() []modid.Id {
	ids := make([]modid.Id, 0, len(r.Modules))
	for id := range r.Modules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids
}
