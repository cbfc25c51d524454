// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

//go:build windows

package repocatalog

import (
	"context"
	"errors"
	"log"
	"math"
	"os"
	"syscall"
	"time"
	"unsafe"
)

var (
	modkernel32      = syscall.NewLazyDLL("kernel32.dll")
	procLockFileEx   = modkernel32.NewProc("LockFileEx")
	procCreateEventW = modkernel32.NewProc("CreateEventW")
)

const (
	lockfileFailImmediately = 1
	lockfileExclusiveLock   = 2
	errorLockViolation      = 33
)

// lockExclusiveBlocking polls LockFileEx for an exclusive lock on f until it
// succeeds or ctx is cancelled. Windows doesn't offer a cancellable blocking
// lock wait, so a short poll interval stands in for one.
func lockExclusiveBlocking(ctx context.Context, f *os.File) error {
	for {
		err := tryLockExclusive(f)
		if err == nil {
			return nil
		}
		var errno syscall.Errno
		if !errors.As(err, &errno) || errno != errorLockViolation {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func tryLockExclusive(f *os.File) error {
	ol, err := newOverlapped()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := syscall.CloseHandle(ol.HEvent); cerr != nil {
			log.Printf("[WARN] closing lock wait handle: %v", cerr)
		}
	}()
	return lockFileEx(syscall.Handle(f.Fd()), lockfileExclusiveLock|lockfileFailImmediately, 0, 0, math.MaxUint32, ol)
}

func unlockFile(*os.File) error {
	// Released implicitly when the file handle is closed.
	return nil
}

func lockFileEx(h syscall.Handle, flags, reserved, lockLow, lockHigh uint32, ol *syscall.Overlapped) error {
	r1, _, errno := syscall.SyscallN(
		procLockFileEx.Addr(),
		uintptr(h),
		uintptr(flags),
		uintptr(reserved),
		uintptr(lockLow),
		uintptr(lockHigh),
		uintptr(unsafe.Pointer(ol)),
	)
	if r1 == 0 {
		if errno != 0 {
			return error(errno)
		}
		return syscall.EINVAL
	}
	return nil
}

func newOverlapped() (*syscall.Overlapped, error) {
	event, err := createEvent(true, false)
	if err != nil {
		return nil, err
	}
	return &syscall.Overlapped{HEvent: event}, nil
}

func createEvent(manualReset, initialState bool) (syscall.Handle, error) {
	var reset, initial uint32
	if manualReset {
		reset = 1
	}
	if initialState {
		initial = 1
	}
	r0, _, errno := syscall.SyscallN(procCreateEventW.Addr(), 0, uintptr(reset), uintptr(initial), 0, 0, 0)
	handle := syscall.Handle(r0)
	if handle == syscall.InvalidHandle {
		if errno != 0 {
			return 0, error(errno)
		}
		return 0, syscall.EINVAL
	}
	return handle, nil
}
