// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modfile

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/mod/sumdb/dirhash"
)

// hashBytes computes the default (SHA-256) content hash of a single blob,
// used for the MODULE_INFO, CLASSES and SIGNATURE sections, each of which
// carries exactly one logical content stream.
func hashBytes(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// hashSubsectionSet computes a section's content hash from the set of
// (path, content) pairs it carries, for sections with subsections
// (RESOURCES, NATIVE_LIBS, NATIVE_CMDS, CONFIG). It reuses
// golang.org/x/mod/sumdb/dirhash's manifest-hash scheme (as opentofu's own
// internal/getproviders/hash.go does for package directory hashes): every
// file's content is hashed individually, then a sorted "<hash>  <path>\n"
// manifest of those digests is itself hashed, so the result depends only on
// the (path, content) set and not on storage order or compression choice.
func hashSubsectionSet(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	open := func(name string) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(files[name])), nil
	}

	h1, err := dirhash.Hash1(names, open)
	if err != nil {
		return nil, fmt.Errorf("hashing subsection set: %w", err)
	}
	encoded, ok := strings.CutPrefix(h1, "h1:")
	if !ok {
		return nil, fmt.Errorf("unexpected dirhash output %q", h1)
	}
	return base64.StdEncoding.DecodeString(encoded)
}

// constantTimeEqual reports whether two hashes are equal. Readers must
// recompute both and compare constant-time rather than using a
// short-circuiting byte comparison.
func constantTimeEqual(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}
