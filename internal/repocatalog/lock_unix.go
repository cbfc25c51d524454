// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package repocatalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"
)

// lockExclusiveBlocking takes an exclusive, whole-file fcntl lock on f,
// waiting until it becomes available or ctx is cancelled. fcntl locks are
// the most portable choice across the filesystems a library or repository
// root might live on (including NFS/CIFS mounts).
func lockExclusiveBlocking(ctx context.Context, f *os.File) error {
	spec := &syscall.Flock_t{
		Type:   syscall.F_RDLCK | syscall.F_WRLCK,
		Whence: int16(io.SeekStart),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		for {
			err := syscall.FcntlFlock(f.Fd(), syscall.F_SETLKW, spec)
			if err == syscall.EINTR {
				if ctxErr := ctx.Err(); ctxErr != nil {
					err = ctxErr
				} else {
					continue
				}
			}
			result <- err
			return
		}
	}()

	for {
		select {
		case err := <-result:
			return err
		case <-ctx.Done():
			// fcntl's blocking wait only wakes on a signal, so nudge our
			// own goroutine with one to honor the cancellation promptly.
			// A lost race (signal arrives before FcntlFlock starts
			// waiting) just sends us back here to retry.
			if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
				return fmt.Errorf("cancelling lock wait: %w", err)
			}
		}
	}
}

func unlockFile(f *os.File) error {
	spec := &syscall.Flock_t{
		Type:   syscall.F_UNLCK,
		Whence: int16(io.SeekStart),
	}
	return syscall.FcntlFlock(f.Fd(), syscall.F_SETLK, spec)
}
