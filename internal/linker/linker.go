// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

// Package linker implements the two-phase linking algorithm: local-supplier
// conflict detection within each context, followed by a fixed-point
// propagation of remote-package suppliers and re-exports across contexts.
package linker

import (
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/opentofu-labs/modsys/internal/collections"
	"github.com/opentofu-labs/modsys/internal/modcontext"
	"github.com/opentofu-labs/modsys/internal/modid"
	"github.com/opentofu-labs/modsys/internal/modinfo"
)

// Link runs both linker phases over the given, already-frozen contexts and
// attaches each context's link result via Context.SetLinkResult.
//
// modules is the resolution's full bound module set, keyed by declared id.
// viewOwner maps a dependence's target name to the declared id of the
// ModuleInfo owning the bound view, exactly as produced by the resolver and
// consumed by modcontext.Build.
func Link(contexts []*modcontext.Context, modules map[modid.Id]*modinfo.ModuleInfo, viewOwner map[string]modid.Id) error {
	contextOf := make(map[modid.Id]*modcontext.Context, len(modules))
	for _, ctx := range contexts {
		for _, id := range ctx.ModuleIds() {
			contextOf[id] = ctx
		}
	}

	works, err := buildLocalSuppliers(contexts, modules, contextOf)
	if err != nil {
		return err
	}

	initRemoteSupplierState(works, modules, viewOwner, contextOf)

	if err := propagateRemoteSuppliers(works); err != nil {
		return err
	}

	for _, w := range works {
		if err := w.ctx.SetLinkResult(w.localClassToModule, w.remotePackageToContext, w.services, setFromBoolMap(w.exports)); err != nil {
			return err
		}
	}
	return nil
}

// working holds one context's linker-phase scratch state: the fixed point
// mutates packages/exports/remotePackageToContext repeatedly, so these
// live outside the (otherwise append-only-once) Context type until both
// phases have completed.
type working struct {
	ctx                    *modcontext.Context
	packages               map[string]bool
	exports                map[string]bool
	suppliers              map[string]bool // context names
	reExportedSuppliers    map[string]bool // context names
	remotePackageToContext map[string]string
	localClassToModule     map[string]modid.Id
	services               map[string]collections.Set[string]
}

func setFromBoolMap(m map[string]bool) collections.Set[string] {
	out := make(collections.Set[string], len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

// buildLocalSuppliers is linking phase 1: for every class defined by any
// module in a context, compute the unique defining module, recording a
// MultipleLocalDefinitionsError for any duplicate. Every context is walked
// to completion regardless of earlier conflicts, so a single pass reports
// every local-definition clash in the whole resolution rather than making
// the caller fix one and rerun to find the next. It also aggregates each
// context's defined-packages set and service-provider map, since those are
// derived from the same per-module walk.
func buildLocalSuppliers(contexts []*modcontext.Context, modules map[modid.Id]*modinfo.ModuleInfo, contextOf map[modid.Id]*modcontext.Context) (map[string]*working, error) {
	works := make(map[string]*working, len(contexts))
	var errs *multierror.Error
	for _, ctx := range contexts {
		w := &working{
			ctx:                    ctx,
			packages:               map[string]bool{},
			exports:                map[string]bool{},
			suppliers:              map[string]bool{},
			reExportedSuppliers:    map[string]bool{},
			remotePackageToContext: map[string]string{},
			localClassToModule:     map[string]modid.Id{},
			services:               map[string]collections.Set[string]{},
		}
		for _, id := range ctx.ModuleIds() {
			info := modules[id]
			for class := range info.Classes() {
				if existing, ok := w.localClassToModule[class]; ok && existing != id {
					first, second := existing, id
					if second.Compare(first) < 0 {
						first, second = second, first
					}
					errs = multierror.Append(errs, MultipleLocalDefinitionsError{
						Context: ctx.Name(),
						Class:   class,
						First:   first.String(),
						Second:  second.String(),
					})
					continue
				}
				w.localClassToModule[class] = id
				w.packages[modinfo.PackageOf(class)] = true
			}
			for iface, providers := range info.MainView().Services {
				w.services[iface] = w.services[iface].Union(providers)
			}
		}
		for pn := range w.packages {
			w.exports[pn] = true
		}
		works[ctx.Name()] = w
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return works, nil
}

// initRemoteSupplierState seeds each context's suppliers and
// reExportedSuppliers sets from every non-LOCAL dependence in its member
// modules, ahead of the remote-suppliers fixed point.
func initRemoteSupplierState(works map[string]*working, modules map[modid.Id]*modinfo.ModuleInfo, viewOwner map[string]modid.Id, contextOf map[modid.Id]*modcontext.Context) {
	for _, w := range works {
		for _, id := range w.ctx.ModuleIds() {
			info := modules[id]
			for _, dep := range info.Requires() {
				if dep.Modifiers.Has(modinfo.Local) {
					continue
				}
				ownerId, ok := viewOwner[dep.Query.Name]
				if !ok {
					continue // unresolved OPTIONAL dependence
				}
				supplierCtx, ok := contextOf[ownerId]
				if !ok || supplierCtx == w.ctx {
					continue
				}
				w.suppliers[supplierCtx.Name()] = true
				if dep.Modifiers.Has(modinfo.Public) {
					w.reExportedSuppliers[supplierCtx.Name()] = true
				}
			}
		}
	}
}

// propagateRemoteSuppliers runs the remote-supplier fixed point to
// completion: full passes over every (Cx, Scx, pn) triple until a pass
// makes no change. Termination is guaranteed because each iteration only
// adds entries to a finite (Cx, pn) space or fails outright.
func propagateRemoteSuppliers(works map[string]*working) error {
	names := make([]string, 0, len(works))
	for name := range works {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic pass order

	for {
		changed := false
		for _, cxName := range names {
			cx := works[cxName]
			suppliers := make([]string, 0, len(cx.suppliers))
			for s := range cx.suppliers {
				suppliers = append(suppliers, s)
			}
			sort.Strings(suppliers)

			for _, scxName := range suppliers {
				scx := works[scxName]
				pkgs := make([]string, 0, len(scx.exports))
				for pn := range scx.exports {
					pkgs = append(pkgs, pn)
				}
				sort.Strings(pkgs)

				for _, pn := range pkgs {
					didChange, err := applyPackageSupply(cx, scx, pn)
					if err != nil {
						return err
					}
					if didChange {
						changed = true
					}
				}
			}
		}
		if !changed {
			return nil
		}
	}
}

// applyPackageSupply applies one (Cx, Scx, pn) step of the fixed point.
func applyPackageSupply(cx, scx *working, pn string) (changed bool, err error) {
	if cx.packages[pn] {
		return false, PackageConflictError{Package: pn, First: cx.ctx.Name(), Second: scx.ctx.Name()}
	}

	dcxName, has := cx.remotePackageToContext[pn]
	if !has {
		if scx.packages[pn] {
			cx.remotePackageToContext[pn] = scx.ctx.Name()
		} else if next, ok := scx.remotePackageToContext[pn]; ok {
			cx.remotePackageToContext[pn] = next
		} else {
			// Scx claims to export pn (pn is in scx.exports) but has
			// neither a local definition nor a resolved upstream supplier
			// for it yet; nothing to propagate this pass.
			return false, nil
		}
		if cx.reExportedSuppliers[scx.ctx.Name()] {
			if !cx.exports[pn] {
				cx.exports[pn] = true
			}
		}
		return true, nil
	}

	if dcxName != scx.ctx.Name() && dcxName != scx.remotePackageToContext[pn] {
		return false, PackageConflictError{Package: pn, First: scx.ctx.Name(), Second: dcxName}
	}
	return false, nil
}
