// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modfile

import (
	"fmt"
	"sort"
)

// pendingSection is one section queued on a Writer before WriteTo encodes
// it. Exactly one of Content or Files is populated, matching the section's
// HasFiles() rule.
type pendingSection struct {
	sectionType SectionType
	compressor  Compressor
	content     []byte
	files       map[string][]byte
}

// Writer builds a module file in memory across two internal passes: the
// first encodes every section's bytes and
// computes each section's content hash, the second computes the whole-file
// hash over the assembled bytes (excluding the file header's own hash
// field and any SIGNATURE section) and produces the final header.
//
// A Writer is single-use: call the AddX methods in the order sections
// should appear, then WriteTo exactly once.
type Writer struct {
	fileType FileType
	hashType HashType
	sections []pendingSection
}

// NewWriter starts a Writer for a file of the given type; fileType is
// almost always ModuleFileType for this package's callers.
func NewWriter(fileType FileType) *Writer {
	return &Writer{fileType: fileType, hashType: SHA256}
}

// AddModuleInfo queues the single, mandatory, first MODULE_INFO section.
func (w *Writer) AddModuleInfo(descriptor []byte) error {
	return w.addBlobSection(ModuleInfoSection, NoCompression, descriptor)
}

// AddSignature queues the optional SIGNATURE section. It must
// immediately follow MODULE_INFO; WriteTo validates final placement.
func (w *Writer) AddSignature(signature []byte) error {
	return w.addBlobSection(SignatureSection, NoCompression, signature)
}

// AddClasses queues the single, optional CLASSES section, packing classes
// (fully-qualified class name -> class file bytes) into the jar-style
// archive described in classes.go before the PACK200_GZIP wrapping applies.
func (w *Writer) AddClasses(classes map[string][]byte) error {
	archive, err := buildClassesArchive(classes)
	if err != nil {
		return err
	}
	return w.addBlobSection(ClassesSection, Pack200Gzip, archive)
}

func (w *Writer) addBlobSection(t SectionType, c Compressor, content []byte) error {
	rule := sectionRules[t]
	if rule.maxCount > 0 && w.countOf(t) >= rule.maxCount {
		return FormatError{Field: t.String(), Reason: "section already present"}
	}
	w.sections = append(w.sections, pendingSection{sectionType: t, compressor: c, content: content})
	return nil
}

// AddFileSection queues a section carrying one or more files as
// subsections (RESOURCES, NATIVE_LIBS, NATIVE_CMDS or CONFIG). Every path
// in files must already satisfy validateRelativePath.
func (w *Writer) AddFileSection(t SectionType, c Compressor, files map[string][]byte) error {
	if !t.HasFiles() {
		return FormatError{Field: t.String(), Reason: "section type does not carry subsections"}
	}
	if len(files) == 0 {
		return FormatError{Field: t.String(), Reason: "file section requires at least one subsection"}
	}
	for p := range files {
		if err := validateRelativePath(p); err != nil {
			return err
		}
	}
	w.sections = append(w.sections, pendingSection{sectionType: t, compressor: c, files: files})
	return nil
}

func (w *Writer) countOf(t SectionType) int {
	n := 0
	for _, s := range w.sections {
		if s.sectionType == t {
			n++
		}
	}
	return n
}

// validateOrdering enforces the placement rules: MODULE_INFO first,
// SIGNATURE immediately after it if present, and each type's max-count rule.
func (w *Writer) validateOrdering() error {
	types := make([]SectionType, len(w.sections))
	for i, s := range w.sections {
		types[i] = s.sectionType
	}
	return validateSectionOrdering(types)
}

// encodedSection is one section's fully-serialized form, produced by the
// writer's first pass.
type encodedSection struct {
	sectionType SectionType
	isSignature bool
	header      []byte // section header bytes, hash field included
	payload     []byte // section payload bytes (subsection headers + content, or the single blob)
	uncompressedSize uint64
}

// WriteTo serializes the queued sections into the bit-exact container
// format and returns the complete file bytes.
func (w *Writer) WriteTo() ([]byte, error) {
	if err := w.validateOrdering(); err != nil {
		return nil, err
	}

	encoded := make([]encodedSection, 0, len(w.sections))
	var totalUncompressed uint64
	for _, s := range w.sections {
		e, err := w.encodeSection(s)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, e)
		totalUncompressed += e.uncompressedSize
	}

	var body []byte
	var signatureStart, signatureEnd int
	for _, e := range encoded {
		start := len(body)
		body = append(body, e.header...)
		body = append(body, e.payload...)
		if e.isSignature {
			signatureStart, signatureEnd = start, len(body)
		}
	}

	hashLength := sha256HashLength
	headerLen := fileHeaderFixedLen + hashLength
	header := make([]byte, 0, headerLen)
	header = writeUint32(header, Magic)
	header = writeUint16(header, uint16(w.fileType))
	header = writeUint16(header, MajorVersion)
	header = writeUint16(header, MinorVersion)
	header = writeUint64(header, uint64(len(body)))
	header = writeUint64(header, totalUncompressed)
	header = writeUint16(header, uint16(w.hashType))
	header = writeUint16(header, uint16(hashLength))
	hashFieldOffset := len(header)
	header = append(header, make([]byte, hashLength)...) // placeholder, filled below

	fileHash := computeWholeFileHash(header, hashFieldOffset, hashLength, body, signatureStart, signatureEnd)
	copy(header[hashFieldOffset:hashFieldOffset+hashLength], fileHash)

	return append(header, body...), nil
}

func (w *Writer) encodeSection(s pendingSection) (encodedSection, error) {
	rule := sectionRules[s.sectionType]
	if !compressorAllowed(rule, s.compressor) {
		return encodedSection{}, FormatError{Field: s.sectionType.String(), Reason: fmt.Sprintf("compressor %s not allowed for this section type", s.compressor)}
	}

	var payload []byte
	var sectionHash []byte
	var uncompressedSize uint64
	var subsectionCount int

	if s.sectionType.HasFiles() {
		names := make([]string, 0, len(s.files))
		for name := range s.files {
			names = append(names, name)
		}
		sort.Strings(names)
		subsectionCount = len(names)

		for _, name := range names {
			content := s.files[name]
			uncompressedSize += uint64(len(content))
			compressed, err := compress(s.compressor, content)
			if err != nil {
				return encodedSection{}, err
			}
			payload = writeUint16(payload, uint16(FileSubsection))
			payload = writeUint32(payload, uint32(len(compressed)))
			var err2 error
			payload, err2 = writeUTF(payload, name)
			if err2 != nil {
				return encodedSection{}, err2
			}
			payload = append(payload, compressed...)
		}
		h, err := hashSubsectionSet(s.files)
		if err != nil {
			return encodedSection{}, err
		}
		sectionHash = h
	} else {
		uncompressedSize = uint64(len(s.content))
		compressed, err := compress(s.compressor, s.content)
		if err != nil {
			return encodedSection{}, err
		}
		payload = compressed
		sectionHash = hashBytes(s.content)
	}

	header := make([]byte, 0, 12+len(sectionHash))
	header = writeUint16(header, uint16(s.sectionType))
	header = writeUint16(header, uint16(s.compressor))
	header = writeUint32(header, uint32(len(payload)))
	header = writeUint16(header, uint16(subsectionCount))
	header = writeUint16(header, uint16(len(sectionHash)))
	header = append(header, sectionHash...)

	return encodedSection{
		sectionType:      s.sectionType,
		isSignature:      s.sectionType == SignatureSection,
		header:           header,
		payload:          payload,
		uncompressedSize: uncompressedSize,
	}, nil
}

const (
	fileHeaderFixedLen = 4 + 2 + 2 + 2 + 8 + 8 + 2 + 2 // every fixed field before the hash bytes
	sha256HashLength    = 32
)

// computeWholeFileHash implements the whole-file hash rule: every byte of
// the file except the header's own hash field and any SIGNATURE section
// (header and content).
func computeWholeFileHash(header []byte, hashFieldOffset, _ int, body []byte, signatureStart, signatureEnd int) []byte {
	hashable := make([]byte, 0, hashFieldOffset+len(body))
	hashable = append(hashable, header[:hashFieldOffset]...)
	if signatureEnd > signatureStart {
		hashable = append(hashable, body[:signatureStart]...)
		hashable = append(hashable, body[signatureEnd:]...)
	} else {
		hashable = append(hashable, body...)
	}
	return hashBytes(hashable)
}
