// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modfile

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"
)

// buildClassesArchive packs a module's class files into a single jar-style
// zip archive: the CLASSES section's logical content before this package's
// PACK200_GZIP-as-gzip wrapping (compress.go) is applied. A real pack200
// transform additionally re-encodes the bytecode itself for better
// compression; this package does not reproduce that transform (there is no
// Go implementation of it in the ecosystem), but representing the packed
// jar as a genuine zip keeps per-class iteration (GetClasses) real rather
// than simulated.
func buildClassesArchive(classes map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("packing class %s: %w", name, err)
		}
		if _, err := w.Write(classes[name]); err != nil {
			return nil, fmt.Errorf("packing class %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing classes archive: %w", err)
	}
	return buf.Bytes(), nil
}

// ClassEntry is one (class-path, content) pair yielded while consuming a
// CLASSES section.
type ClassEntry struct {
	Path    string
	Content []byte
}

// readClassesArchive unpacks a CLASSES section's decompressed content back
// into its individual class entries, sorted by path for deterministic
// iteration.
func readClassesArchive(data []byte) ([]ClassEntry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("reading classes archive: %w", err)
	}
	entries := make([]ClassEntry, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("reading class %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading class %s: %w", f.Name, err)
		}
		entries = append(entries, ClassEntry{Path: f.Name, Content: content})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}
