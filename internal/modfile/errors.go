// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modfile

import "fmt"

// FormatError indicates any malformed magic, unknown section kind, illegal
// compressor/type pair, oversized allocation, or premature EOF (a
// subsection path escape is reported separately as PathEscapeError). Field and Offset name the offending header field and its byte
// offset within the stream so a caller can report exactly where the file
// diverged from the format.
type FormatError struct {
	Field  string
	Offset int64
	Reason string
}

func (e FormatError) Error() string {
	return fmt.Sprintf("module file format error at %s (offset %d): %s", e.Field, e.Offset, e.Reason)
}

// HashMismatchError indicates a recomputed hash (whole-file or one
// section's) did not match the hash recorded in the corresponding header.
type HashMismatchError struct {
	// Section is the section type name, or "file" for the whole-file hash.
	Section  string
	Expected []byte
	Actual   []byte
}

func (e HashMismatchError) Error() string {
	return fmt.Sprintf("hash mismatch in %s: expected %x, got %x", e.Section, e.Expected, e.Actual)
}

// UnsupportedHashAlgorithmError indicates a file header or section header
// named a HashType this package does not implement.
type UnsupportedHashAlgorithmError struct {
	HashType HashType
}

func (e UnsupportedHashAlgorithmError) Error() string {
	return fmt.Sprintf("unsupported hash algorithm %d", e.HashType)
}

// PathEscapeError indicates a subsection's path field would resolve
// outside the configured extraction root.
type PathEscapeError struct {
	Path string
}

func (e PathEscapeError) Error() string {
	return fmt.Sprintf("subsection path escapes extraction root: %q", e.Path)
}

// StateError indicates a reader or writer method was called in a state
// that does not permit it (e.g. requesting content outside
// START_SECTION/START_SUBSECTION, or writing a second MODULE_INFO
// section).
type StateError struct {
	Operation string
	State     string
}

func (e StateError) Error() string {
	return fmt.Sprintf("%s is not valid in state %s", e.Operation, e.State)
}
