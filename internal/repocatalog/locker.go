// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package repocatalog

import (
	"context"
	"os"
	"path/filepath"
)

// Locker guards a library or repository root's sibling `%lock` file: every
// mutating operation acquires it for the duration of the operation, while
// readers proceed lock-free since catalog updates are published atomically
// via temp-then-rename.
type Locker struct {
	path string
}

// NewLocker returns a Locker for the `%lock` file under root.
func NewLocker(root string) *Locker {
	return &Locker{path: filepath.Join(root, "%lock")}
}

// Acquire blocks (respecting ctx) until the lock is held, returning a
// release function the caller must defer on every exit path so the lock is
// never left held past a failure.
func (l *Locker) Acquire(ctx context.Context) (release func() error, err error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, IOError{Path: l.path, Cause: err}
	}
	if err := lockExclusiveBlocking(ctx, f); err != nil {
		_ = f.Close()
		return nil, LockedError{Path: l.path}
	}
	return func() error {
		uerr := unlockFile(f)
		cerr := f.Close()
		if uerr != nil {
			return IOError{Path: l.path, Cause: uerr}
		}
		if cerr != nil {
			return IOError{Path: l.path, Cause: cerr}
		}
		return nil
	}, nil
}
