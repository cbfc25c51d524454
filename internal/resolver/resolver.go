// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/opentofu-labs/modsys/internal/catalog"
	"github.com/opentofu-labs/modsys/internal/modid"
	"github.com/opentofu-labs/modsys/internal/modinfo"
)

// Options configures a single Resolve call.
type Options struct {
	// PlatformQuery, if Name is non-empty, is added as a SYNTHETIC
	// dependence to any bound ModuleInfo that doesn't already depend on
	// that platform name, unless SuppressPlatformDefault is set.
	PlatformQuery           modid.Query
	SuppressPlatformDefault bool

	// Remote, if set, is consulted for candidates whenever
	// no candidate from the local catalog chain leads to a successful
	// resolution of a dependence. Any
	// accepted remote candidate contributes to the returned Resolution's
	// DownloadRequired and SpaceRequired.
	Remote catalog.Repository

	Logger hclog.Logger
}

func (o Options) logger() hclog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return hclog.NewNullLogger()
}

// pendingChoice is a node of the resolver's private choice stack: a
// singly linked list so that the deepest node is rooted in the
// recursive call's own stack frame and the whole chain is owned
// exclusively by the in-flight Resolve call.
type pendingChoice struct {
	hasRequestor  bool
	requestorName string
	dep           modinfo.Dependence
	next          *pendingChoice
}

// state is the side-channel bookkeeping the resolver keeps transactional:
// every success-path addition must be rolled back on backtrack.
type state struct {
	moduleForName    map[string]*modinfo.ModuleInfo
	viewForName      map[string]modinfo.ModuleView
	viewOwner        map[string]modid.Id
	locationForName  map[string]string
	modules          map[modid.Id]*modinfo.ModuleInfo
	downloadRequired map[modid.Id]bool
	spaceRequired    uint64
}

func newState() *state {
	return &state{
		moduleForName:    make(map[string]*modinfo.ModuleInfo),
		viewForName:      make(map[string]modinfo.ModuleView),
		viewOwner:        make(map[string]modid.Id),
		locationForName:  make(map[string]string),
		modules:          make(map[modid.Id]*modinfo.ModuleInfo),
		downloadRequired: make(map[modid.Id]bool),
	}
}

// Resolve runs the depth-first version-selection algorithm over cat for
// the given root queries, returning the consistent version-pinned
// Resolution or a structured error.
func Resolve(cat catalog.Catalog, roots []modid.Query, opts Options) (*Resolution, error) {
	log := opts.logger()
	log.Debug("starting resolution", "roots", roots)

	st := newState()

	var head *pendingChoice
	for i := len(roots) - 1; i >= 0; i-- {
		head = &pendingChoice{dep: modinfo.NewDependence(roots[i], 0), next: head}
	}

	if err := resolveStep(cat, opts, st, head, nil); err != nil {
		log.Debug("resolution failed", "error", err)
		return nil, err
	}

	log.Debug("resolution succeeded", "modules", len(st.modules))
	return &Resolution{
		RootQueries:       roots,
		Modules:           st.modules,
		ModuleViewForName: st.viewForName,
		ViewOwner:         st.viewOwner,
		LocationForName:   st.locationForName,
		DownloadRequired:  st.downloadRequired,
		SpaceRequired:     st.spaceRequired,
	}, nil
}

// resolveStep implements one iteration of the depth-first backtracking
// algorithm: pop the top of the stack, bind it if unbound, or check
// consistency if a binding already exists, and recurse into the rest of
// the stack.
func resolveStep(cat catalog.Catalog, opts Options, st *state, stack *pendingChoice, chain []string) error {
	if stack == nil {
		return nil // empty stack: every dependence has been bound
	}
	top, rest := stack, stack.next
	name := top.dep.Query.Name

	if view, bound := st.viewForName[name]; bound {
		// already bound: check the existing binding against this dependence.
		if !top.dep.Query.Matches(view.Id) {
			if top.dep.Modifiers.Has(modinfo.Optional) {
				return resolveStep(cat, opts, st, rest, chain)
			}
			return CannotResolveError{Dependence: top.dep, RequestorChain: chain}
		}
		if !permits(top.hasRequestor, top.requestorName, top.dep, view) {
			return PermitsError{Requestor: top.requestorName, Supplier: view.Id}
		}
		return resolveStep(cat, opts, st, rest, chain)
	}

	ok, lastErr, err := tryCandidates(cat, "local", opts, st, top, rest, chain)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	if opts.Remote != nil {
		ok, remoteErr, err := tryCandidates(opts.Remote, "remote", opts, st, top, rest, chain)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if remoteErr != nil {
			lastErr = remoteErr
		}
	}

	// no candidate matched, locally or remotely.
	if top.dep.Modifiers.Has(modinfo.Optional) {
		return resolveStep(cat, opts, st, rest, chain)
	}
	if permitsErr, ok := lastErr.(PermitsError); ok {
		return permitsErr
	}
	return CannotResolveError{Dependence: top.dep, RequestorChain: chain}
}

// tryCandidates tries every candidate against a single catalog (the
// local chain or, separately, the remote repository): list candidates
// newest-first, and for each matching and permitted one, bind it, push its
// requires, and recurse. On success it returns ok=true; on exhaustion it
// returns the last non-fatal error observed (e.g. a PermitsError) so the
// caller can decide what to report if every avenue fails.
func tryCandidates(cat catalog.Catalog, location string, opts Options, st *state, top *pendingChoice, rest *pendingChoice, chain []string) (ok bool, lastErr error, fatalErr error) {
	name := top.dep.Query.Name
	candidates, err := candidatesForName(cat, name)
	if err != nil {
		return false, nil, err
	}

	for _, c := range candidates {
		if !top.dep.Query.Matches(c.id) {
			continue
		}
		if !permits(top.hasRequestor, top.requestorName, top.dep, c.view) {
			lastErr = PermitsError{Requestor: top.requestorName, Supplier: c.id}
			continue
		}

		undo, fatal := bindCandidate(cat, location, opts, st, name, c)
		if fatal != nil {
			return false, nil, fatal
		}

		newStack := pushRequires(rest, c.info)
		newChain := append(append([]string{}, chain...), c.info.Name())

		if err := resolveStep(cat, opts, st, newStack, newChain); err == nil {
			return true, nil, nil
		} else {
			lastErr = err
		}
		undo()
	}
	return false, lastErr, nil
}

// bindCandidate binds c under name and, for a remote candidate, contributes
// to the download/space accumulators. It returns an undo closure that
// exactly reverses every side-channel addition it made.
func bindCandidate(cat catalog.Catalog, location string, opts Options, st *state, name string, c candidate) (undo func(), fatalErr error) {
	st.viewForName[name] = c.view
	st.viewOwner[name] = c.info.Id()
	st.locationForName[name] = location
	st.moduleForName[name] = c.info

	addedModule := false
	if _, exists := st.modules[c.info.Id()]; !exists {
		if opts.PlatformQuery.Name != "" && !opts.SuppressPlatformDefault {
			_ = c.info.AddSyntheticPlatformDependence(opts.PlatformQuery)
		}
		st.modules[c.info.Id()] = c.info
		addedModule = true
	}

	addedDownload := false
	var addedSpace uint64
	if location == "remote" && !st.downloadRequired[c.id] {
		if repo, ok := cat.(catalog.Repository); ok {
			meta, err := repo.FetchMetaData(c.id)
			if err == nil {
				st.downloadRequired[c.id] = true
				st.spaceRequired += meta.UncompressedSize
				addedDownload = true
				addedSpace = meta.UncompressedSize
			}
		}
	}

	return func() {
		delete(st.viewForName, name)
		delete(st.viewOwner, name)
		delete(st.locationForName, name)
		delete(st.moduleForName, name)
		if addedModule {
			delete(st.modules, c.info.Id())
		}
		if addedDownload {
			delete(st.downloadRequired, c.id)
			st.spaceRequired -= addedSpace
		}
	}, nil
}

// pushRequires pushes info's declared dependences onto rest in reverse
// list order, so that the first-declared dependence ends up on top of
// the stack and is explored first.
func pushRequires(rest *pendingChoice, info *modinfo.ModuleInfo) *pendingChoice {
	requires := info.Requires()
	stack := rest
	for i := len(requires) - 1; i >= 0; i-- {
		stack = &pendingChoice{
			hasRequestor:  true,
			requestorName: info.Name(),
			dep:           requires[i],
			next:          stack,
		}
	}
	return stack
}

// permits implements the permit rule: the root has no requestor and is
// always permitted; otherwise a non-empty supplier permits set must name
// the requestor, and an empty one allows any non-LOCAL dependence.
func permits(hasRequestor bool, requestorName string, dep modinfo.Dependence, supplier modinfo.ModuleView) bool {
	if !hasRequestor {
		return true
	}
	if len(supplier.Permits) > 0 {
		return supplier.Permits.Has(requestorName)
	}
	return !dep.Modifiers.Has(modinfo.Local)
}

// candidate is one (view-id, owning ModuleInfo, view) triple discovered by
// scanning a catalog for a required name: the view.Id may be the module's
// own declared id, or one of its alias/additional-view ids.
type candidate struct {
	id   modid.Id
	info *modinfo.ModuleInfo
	view modinfo.ModuleView
}

// candidatesForName lists, newest-version-first with ties broken by total
// id order, every view across cat's chain whose id has the given name.
// This ordering makes resolution deterministic: repeated calls against an
// unchanged catalog chain always try candidates in the same sequence.
func candidatesForName(cat catalog.Catalog, name string) ([]candidate, error) {
	declaring, err := catalog.GatherDeclaringModuleIds(cat)
	if err != nil {
		return nil, err
	}

	var out []candidate
	seen := make(map[modid.Id]bool)
	for _, did := range declaring {
		if seen[did] {
			continue
		}
		seen[did] = true
		info, err := catalog.ReadModuleInfo(cat, did)
		if err != nil {
			return nil, err
		}
		for _, v := range info.Views() {
			if v.Id.Name == name {
				out = append(out, candidate{id: v.Id, info: info, view: v})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return modid.CompareNewestFirst(out[i].id, out[j].id) < 0
	})
	return out, nil
}
