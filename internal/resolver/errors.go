// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"fmt"
	"strings"

	"github.com/opentofu-labs/modsys/internal/modid"
	"github.com/opentofu-labs/modsys/internal/modinfo"
)

// ModuleNotFoundError indicates that no candidate in the catalog chain (or,
// if configured, the remote repository) satisfies query at all.
type ModuleNotFoundError struct {
	Query modid.Query
}

func (e ModuleNotFoundError) Error() string {
	return fmt.Sprintf("no module satisfies %s", e.Query)
}

// CannotResolveError is the top-level resolution failure: a dependence
// that could not be satisfied by any candidate, along with the chain of
// requestor module names that led to it, root first.
type CannotResolveError struct {
	Dependence     modinfo.Dependence
	RequestorChain []string // root first; empty when the dependence itself is a root query
}

func (e CannotResolveError) Error() string {
	if len(e.RequestorChain) == 0 {
		return fmt.Sprintf("cannot resolve root query %s", e.Dependence.Query)
	}
	return fmt.Sprintf("cannot resolve %s required by %s", e.Dependence.Query, strings.Join(e.RequestorChain, " -> "))
}

// PermitsError indicates that a candidate supplier's permits set excludes
// the requesting module.
type PermitsError struct {
	Requestor string
	Supplier  modid.Id
}

func (e PermitsError) Error() string {
	return fmt.Sprintf("module %s does not permit %s to depend on it", e.Supplier, e.Requestor)
}
