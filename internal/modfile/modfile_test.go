// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modfile

import (
	"bytes"
	"errors"
	"sort"
	"testing"
)

func buildSampleFile(t *testing.T) []byte {
	t.Helper()
	w := NewWriter(ModuleFileType)
	if err := w.AddModuleInfo([]byte("module-descriptor-bytes")); err != nil {
		t.Fatalf("AddModuleInfo: %s", err)
	}
	if err := w.AddClasses(map[string][]byte{
		"pkg.a.Main": []byte("main-class-bytes"),
		"pkg.a.Util": []byte("util-class-bytes"),
	}); err != nil {
		t.Fatalf("AddClasses: %s", err)
	}
	if err := w.AddFileSection(ResourcesSection, Gzip, map[string][]byte{
		"res/one.txt": []byte("one"),
		"res/two.txt": []byte("two"),
		"res/sub/three.txt": []byte("three"),
	}); err != nil {
		t.Fatalf("AddFileSection: %s", err)
	}
	data, err := w.WriteTo()
	if err != nil {
		t.Fatalf("WriteTo: %s", err)
	}
	return data
}

// TestRoundTripAllEventsAndHashes builds a file with MODULE_INFO + CLASSES
// + RESOURCES and expects every event/hash to check out.
func TestRoundTripAllEventsAndHashes(t *testing.T) {
	data := buildSampleFile(t)

	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader: %s", err)
	}
	if r.Header.Type != ModuleFileType {
		t.Fatalf("unexpected file type %s", r.Header.Type)
	}

	var gotSectionTypes []SectionType
	var gotResourcePaths []string
	var classEntries []ClassEntry

	ev := r.State()
	if ev != EventStartFile {
		t.Fatalf("expected START_FILE, got %s", ev)
	}
	for ev != EventEndFile {
		ev, err = r.Next()
		if err != nil {
			t.Fatalf("Next: %s", err)
		}
		switch ev {
		case EventStartSection:
			st, err := r.CurrentSectionType()
			if err != nil {
				t.Fatalf("CurrentSectionType: %s", err)
			}
			gotSectionTypes = append(gotSectionTypes, st)
			if st == ModuleInfoSection {
				content, err := r.GetContentStream()
				if err != nil {
					t.Fatalf("GetContentStream(MODULE_INFO): %s", err)
				}
				if string(content) != "module-descriptor-bytes" {
					t.Fatalf("unexpected MODULE_INFO content: %q", content)
				}
			}
			if st == ClassesSection {
				classEntries, err = r.GetClasses()
				if err != nil {
					t.Fatalf("GetClasses: %s", err)
				}
			}
		case EventStartSubsection:
			path, err := r.CurrentSubsectionPath()
			if err != nil {
				t.Fatalf("CurrentSubsectionPath: %s", err)
			}
			gotResourcePaths = append(gotResourcePaths, path)
			content, err := r.GetContentStream()
			if err != nil {
				t.Fatalf("GetContentStream(subsection): %s", err)
			}
			if len(content) == 0 {
				t.Fatalf("expected non-empty content for %s", path)
			}
		}
	}

	wantSections := []SectionType{ModuleInfoSection, ClassesSection, ResourcesSection}
	if len(gotSectionTypes) != len(wantSections) {
		t.Fatalf("expected sections %v, got %v", wantSections, gotSectionTypes)
	}
	for i, st := range wantSections {
		if gotSectionTypes[i] != st {
			t.Fatalf("section %d: expected %s, got %s", i, st, gotSectionTypes[i])
		}
	}

	sort.Strings(gotResourcePaths)
	wantPaths := []string{"res/one.txt", "res/sub/three.txt", "res/two.txt"}
	if len(gotResourcePaths) != len(wantPaths) {
		t.Fatalf("expected resource paths %v, got %v", wantPaths, gotResourcePaths)
	}
	for i, p := range wantPaths {
		if gotResourcePaths[i] != p {
			t.Fatalf("resource %d: expected %s, got %s", i, p, gotResourcePaths[i])
		}
	}

	if len(classEntries) != 2 {
		t.Fatalf("expected 2 class entries, got %d", len(classEntries))
	}
	if classEntries[0].Path != "pkg.a.Main" || string(classEntries[0].Content) != "main-class-bytes" {
		t.Fatalf("unexpected first class entry: %+v", classEntries[0])
	}
}

// TestCorruptedClassesPayloadFailsHashMismatch covers the corruption case
// where flipping a byte in the CLASSES payload must fail with a
// HashMismatchError for the CLASSES section.
func TestCorruptedClassesPayloadFailsHashMismatch(t *testing.T) {
	data := buildSampleFile(t)

	// Flip a byte roughly in the middle of the file, which (given the
	// section order MODULE_INFO, CLASSES, RESOURCES) lands inside the
	// CLASSES section's compressed payload for this fixture's sizes.
	corrupted := append([]byte(nil), data...)
	idx := len(corrupted) / 2
	corrupted[idx] ^= 0xFF

	_, err := NewReader(corrupted)
	if err == nil {
		t.Fatal("expected an error reading a corrupted file")
	}
	var hashErr HashMismatchError
	var formatErr FormatError
	if !errors.As(err, &hashErr) && !errors.As(err, &formatErr) {
		t.Fatalf("expected HashMismatchError or FormatError, got %T: %v", err, err)
	}
}

// TestCorruptedFileHeaderHashFailsAtEndFile corrupts the file header's own
// hash field; NewReader should surface a HashMismatchError for "file" once
// the reader walks through to END_FILE.
func TestCorruptedFileHeaderHashFailsAtEndFile(t *testing.T) {
	data := buildSampleFile(t)
	corrupted := append([]byte(nil), data...)
	// The file header's hash bytes are the final bytes of the fixed
	// header, immediately before the body; flip one.
	corrupted[fileHeaderFixedLen] ^= 0xFF

	r, err := NewReader(corrupted)
	if err != nil {
		t.Fatalf("NewReader should succeed parsing structurally valid (but hash-mismatched) bytes: %s", err)
	}

	var lastErr error
	ev := r.State()
	for ev != EventEndFile {
		ev, lastErr = r.Next()
		if lastErr != nil {
			break
		}
	}
	if lastErr == nil {
		t.Fatal("expected a HashMismatchError once END_FILE is reached")
	}
	var hashErr HashMismatchError
	if !errors.As(lastErr, &hashErr) || hashErr.Section != "file" {
		t.Fatalf("expected file HashMismatchError, got %v", lastErr)
	}
}

// TestWriterRejectsSecondModuleInfo covers the "MODULE_INFO: exactly one"
// typing rule.
func TestWriterRejectsSecondModuleInfo(t *testing.T) {
	w := NewWriter(ModuleFileType)
	if err := w.AddModuleInfo([]byte("one")); err != nil {
		t.Fatalf("AddModuleInfo: %s", err)
	}
	if err := w.AddModuleInfo([]byte("two")); err == nil {
		t.Fatal("expected an error adding a second MODULE_INFO section")
	}
}

// TestWriterRejectsClassesWrongCompressor covers the CLASSES typing rule
// (compressor must be PACK200_GZIP).
func TestWriterRejectsClassesWrongCompressor(t *testing.T) {
	w := NewWriter(ModuleFileType)
	if err := w.AddModuleInfo([]byte("info")); err != nil {
		t.Fatalf("AddModuleInfo: %s", err)
	}
	w.sections = append(w.sections, pendingSection{
		sectionType: ClassesSection,
		compressor:  NoCompression,
		content:     []byte("zip-bytes"),
	})
	if _, err := w.WriteTo(); err == nil {
		t.Fatal("expected an error from an illegal compressor/type pairing")
	}
}

// TestPathEscapeRejected covers the path traversal defense on write.
func TestPathEscapeRejected(t *testing.T) {
	w := NewWriter(ModuleFileType)
	if err := w.AddModuleInfo([]byte("info")); err != nil {
		t.Fatalf("AddModuleInfo: %s", err)
	}
	err := w.AddFileSection(ResourcesSection, Gzip, map[string][]byte{
		"../escape.txt": []byte("x"),
	})
	var pathErr PathEscapeError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected PathEscapeError, got %v", err)
	}
}

// TestResolveExtractionPathRejectsEscape covers the reader-facing
// extraction-path resolution helper.
func TestResolveExtractionPathRejectsEscape(t *testing.T) {
	if _, err := resolveExtractionPath("/out", "../../etc/passwd"); err == nil {
		t.Fatal("expected an error resolving an escaping path")
	}
	dest, err := resolveExtractionPath("/out", "a/b/c.txt")
	if err != nil {
		t.Fatalf("resolveExtractionPath: %s", err)
	}
	if !bytes.Contains([]byte(dest), []byte("a/b/c.txt")) && !bytes.Contains([]byte(dest), []byte(`a\b\c.txt`)) {
		t.Fatalf("unexpected resolved path: %s", dest)
	}
}
