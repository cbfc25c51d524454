// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
)

// Exit codes follow the resolved error kind: 0 ok, 1 usage, 2
// resolution/linker failure, 3 I/O failure, 4 codec/format failure, 5
// hash/signature failure.
const (
	exitOK              = 0
	exitUsage           = 1
	exitResolutionError = 2
	exitIOError         = 3
	exitFormatError     = 4
	exitHashError       = 5
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "modsys:", err)
		os.Exit(exitCodeFor(err))
	}
}
