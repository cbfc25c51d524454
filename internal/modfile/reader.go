// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modfile

import "fmt"

// Event is one of the reader's pull-based state-machine events.
type Event int

const (
	EventStartFile Event = iota
	EventStartSection
	EventStartSubsection
	EventEndSubsection
	EventEndSection
	EventEndFile
)

func (e Event) String() string {
	switch e {
	case EventStartFile:
		return "START_FILE"
	case EventStartSection:
		return "START_SECTION"
	case EventStartSubsection:
		return "START_SUBSECTION"
	case EventEndSubsection:
		return "END_SUBSECTION"
	case EventEndSection:
		return "END_SECTION"
	case EventEndFile:
		return "END_FILE"
	default:
		return "UNKNOWN_EVENT"
	}
}

// FileHeader is the parsed, validated file header, available from
// START_FILE onward.
type FileHeader struct {
	Type         FileType
	MajorVersion uint16
	MinorVersion uint16
	CSize        uint64
	USize        uint64
	HashType     HashType
	Hash         []byte
}

type parsedSubsection struct {
	path    string
	payload []byte // stored (compressed) bytes
}

type parsedSection struct {
	sectionType SectionType
	compressor  Compressor
	hash        []byte
	subsections []parsedSubsection
	blob        []byte // stored (compressed) bytes, for sections with no subsections
}

// Reader implements a pull-based reader. The whole file is buffered in
// memory up front (see wire.go's byteReader doc comment), which lets both
// section hashes and the whole-file hash (excluding the SIGNATURE section)
// be verified against byte ranges computed once at construction, while
// still surfacing content access and mismatches through the same
// event-at-a-time API a streaming implementation would expose.
type Reader struct {
	Header FileHeader

	sections []parsedSection

	state         Event
	sectionIdx    int // index of the section the current/most-recent event refers to
	subsectionIdx int // index within sections[sectionIdx].subsections

	fileHashErr error // non-nil if the whole-file hash did not verify
}

// NewReader parses and validates data as a module file: the header, every
// section and subsection header, the section typing rules, and every
// section's content hash. The whole-file hash is also verified
// up front but its error, if any, is only returned once the caller's
// Next() calls reach EventEndFile, matching the state machine's documented
// invariant ("after END_FILE the file hash matches").
func NewReader(data []byte) (*Reader, error) {
	br := &byteReader{data: data}
	header, hashFieldOffset, err := parseFileHeader(br)
	if err != nil {
		return nil, err
	}
	if header.HashType != SHA256 {
		return nil, UnsupportedHashAlgorithmError{HashType: header.HashType}
	}

	body := data[br.offset():]
	if uint64(len(body)) != header.CSize {
		return nil, FormatError{Field: "csize", Offset: br.offset(), Reason: fmt.Sprintf("header declares %d bytes but %d remain", header.CSize, len(body))}
	}

	sections, err := parseSections(body)
	if err != nil {
		return nil, err
	}
	if err := validateParsedOrdering(sections); err != nil {
		return nil, err
	}
	if err := verifySectionHashes(sections); err != nil {
		return nil, err
	}

	sigStart, sigEnd := signatureByteRange(body, sections)
	fileHeaderBytes := data[:hashFieldOffset]
	expected := computeWholeFileHash(fileHeaderBytes, hashFieldOffset, 0, body, sigStart, sigEnd)
	var fileHashErr error
	if !constantTimeEqual(expected, header.Hash) {
		fileHashErr = HashMismatchError{Section: "file", Expected: header.Hash, Actual: expected}
	}

	return &Reader{
		Header:        header,
		sections:      sections,
		state:         EventStartFile,
		sectionIdx:    -1,
		subsectionIdx: -1,
		fileHashErr:   fileHashErr,
	}, nil
}

func parseFileHeader(br *byteReader) (FileHeader, int64, error) {
	magic, err := br.readUint32("magic")
	if err != nil {
		return FileHeader{}, 0, err
	}
	if magic != Magic {
		return FileHeader{}, 0, FormatError{Field: "magic", Offset: 0, Reason: fmt.Sprintf("expected %#x, got %#x", Magic, magic)}
	}
	typ, err := br.readUint16("type")
	if err != nil {
		return FileHeader{}, 0, err
	}
	major, err := br.readUint16("majorVersion")
	if err != nil {
		return FileHeader{}, 0, err
	}
	minor, err := br.readUint16("minorVersion")
	if err != nil {
		return FileHeader{}, 0, err
	}
	csize, err := br.readUint64("csize")
	if err != nil {
		return FileHeader{}, 0, err
	}
	usize, err := br.readUint64("usize")
	if err != nil {
		return FileHeader{}, 0, err
	}
	hashType, err := br.readUint16("hashType")
	if err != nil {
		return FileHeader{}, 0, err
	}
	hashLength, err := br.readUint16("hashLength")
	if err != nil {
		return FileHeader{}, 0, err
	}
	hashFieldOffset := br.offset()
	hash, err := br.readN("hash", int(hashLength))
	if err != nil {
		return FileHeader{}, 0, err
	}
	hashCopy := append([]byte(nil), hash...)
	return FileHeader{
		Type:         FileType(typ),
		MajorVersion: major,
		MinorVersion: minor,
		CSize:        csize,
		USize:        usize,
		HashType:     HashType(hashType),
		Hash:         hashCopy,
	}, hashFieldOffset, nil
}

func parseSections(body []byte) ([]parsedSection, error) {
	br := &byteReader{data: body}
	var sections []parsedSection
	for br.remaining() > 0 {
		sectionTypeRaw, err := br.readUint16("section.type")
		if err != nil {
			return nil, err
		}
		st := SectionType(sectionTypeRaw)
		rule, ok := sectionRules[st]
		if !ok {
			return nil, FormatError{Field: "section.type", Offset: br.offset(), Reason: fmt.Sprintf("unknown section type %d", sectionTypeRaw)}
		}

		compressorRaw, err := br.readUint16("section.compressor")
		if err != nil {
			return nil, err
		}
		compressor := Compressor(compressorRaw)
		if !compressorAllowed(rule, compressor) {
			return nil, FormatError{Field: "section.compressor", Offset: br.offset(), Reason: fmt.Sprintf("compressor %s not allowed for %s", compressor, st)}
		}

		csize, err := br.readUint32("section.csize")
		if err != nil {
			return nil, err
		}
		subsectionCount, err := br.readUint16("section.subsections")
		if err != nil {
			return nil, err
		}
		if rule.requiresNoSubsections && subsectionCount != 0 {
			return nil, FormatError{Field: "section.subsections", Offset: br.offset(), Reason: fmt.Sprintf("%s must have no subsections", st)}
		}
		if st.HasFiles() && subsectionCount == 0 {
			return nil, FormatError{Field: "section.subsections", Offset: br.offset(), Reason: fmt.Sprintf("%s requires at least one subsection", st)}
		}

		hashLength, err := br.readUint16("section.hashLength")
		if err != nil {
			return nil, err
		}
		hash, err := br.readN("section.hash", int(hashLength))
		if err != nil {
			return nil, err
		}
		hashCopy := append([]byte(nil), hash...)

		payloadStart := br.offset()
		var subs []parsedSubsection
		if subsectionCount > 0 {
			for i := 0; i < int(subsectionCount); i++ {
				kind, err := br.readUint16("subsection.kind")
				if err != nil {
					return nil, err
				}
				if SubsectionKind(kind) != FileSubsection {
					return nil, FormatError{Field: "subsection.kind", Offset: br.offset(), Reason: fmt.Sprintf("unknown subsection kind %d", kind)}
				}
				subCsize, err := br.readUint32("subsection.csize")
				if err != nil {
					return nil, err
				}
				path, err := br.readUTF("subsection.path")
				if err != nil {
					return nil, err
				}
				if err := validateRelativePath(path); err != nil {
					return nil, err
				}
				payload, err := br.readN("subsection.content", int(subCsize))
				if err != nil {
					return nil, err
				}
				subs = append(subs, parsedSubsection{path: path, payload: append([]byte(nil), payload...)})
			}
			if br.offset()-payloadStart != int64(csize) {
				return nil, FormatError{Field: "section.csize", Offset: payloadStart, Reason: "declared size does not match encoded subsections"}
			}
		} else {
			payload, err := br.readN("section.content", int(csize))
			if err != nil {
				return nil, err
			}
			subs = nil
			sections = append(sections, parsedSection{
				sectionType: st,
				compressor:  compressor,
				hash:        hashCopy,
				blob:        append([]byte(nil), payload...),
			})
			continue
		}

		sections = append(sections, parsedSection{
			sectionType: st,
			compressor:  compressor,
			hash:        hashCopy,
			subsections: subs,
		})
	}
	return sections, nil
}

func validateParsedOrdering(sections []parsedSection) error {
	types := make([]SectionType, len(sections))
	for i, s := range sections {
		types[i] = s.sectionType
	}
	return validateSectionOrdering(types)
}

func verifySectionHashes(sections []parsedSection) error {
	for _, s := range sections {
		var actual []byte
		var err error
		if len(s.subsections) > 0 {
			files := make(map[string][]byte, len(s.subsections))
			for _, sub := range s.subsections {
				content, derr := decompress(s.compressor, sub.payload)
				if derr != nil {
					// stored bytes that no longer decompress cannot match the recorded hash
					return HashMismatchError{Section: s.sectionType.String(), Expected: s.hash}
				}
				files[sub.path] = content
			}
			actual, err = hashSubsectionSet(files)
			if err != nil {
				return err
			}
		} else {
			content, derr := decompress(s.compressor, s.blob)
			if derr != nil {
				return HashMismatchError{Section: s.sectionType.String(), Expected: s.hash}
			}
			actual = hashBytes(content)
		}
		if !constantTimeEqual(actual, s.hash) {
			return HashMismatchError{Section: s.sectionType.String(), Expected: s.hash, Actual: actual}
		}
	}
	return nil
}

// signatureByteRange returns the byte offsets, within body, of the
// SIGNATURE section (header + payload) if present, for exclusion from the
// whole-file hash. Offsets are recomputed by replaying the same fixed
// section-header layout parseSections used, since parsedSection does not
// itself retain byte ranges.
func signatureByteRange(body []byte, sections []parsedSection) (start, end int) {
	br := &byteReader{data: body}
	for _, s := range sections {
		sectionStart := br.offset()
		_, _ = br.readUint16("section.type")
		_, _ = br.readUint16("section.compressor")
		csize, _ := br.readUint32("section.csize")
		_, _ = br.readUint16("section.subsections")
		hashLength, _ := br.readUint16("section.hashLength")
		_, _ = br.readN("section.hash", int(hashLength))
		_, _ = br.readN("section.payload", int(csize))
		sectionEnd := br.offset()
		if s.sectionType == SignatureSection {
			return int(sectionStart), int(sectionEnd)
		}
	}
	return 0, 0
}

// Next advances the reader to its next event, returning io.EOF-equivalent
// behavior by simply staying at EventEndFile once reached (callers should
// stop calling Next after it returns EventEndFile). It returns an error if
// an invariant tied to the event just reached (a section or file hash) did
// not hold.
func (r *Reader) Next() (Event, error) {
	switch r.state {
	case EventStartFile:
		if len(r.sections) == 0 {
			r.state = EventEndFile
			return r.state, r.fileHashErrOrNil()
		}
		r.sectionIdx = 0
		r.subsectionIdx = -1
		r.state = EventStartSection
		return r.state, nil

	case EventStartSection:
		if len(r.currentSection().subsections) > 0 {
			r.subsectionIdx = 0
			r.state = EventStartSubsection
			return r.state, nil
		}
		r.state = EventEndSection
		return r.state, nil

	case EventStartSubsection:
		r.state = EventEndSubsection
		return r.state, nil

	case EventEndSubsection:
		if r.subsectionIdx+1 < len(r.currentSection().subsections) {
			r.subsectionIdx++
			r.state = EventStartSubsection
			return r.state, nil
		}
		r.state = EventEndSection
		return r.state, nil

	case EventEndSection:
		if r.sectionIdx+1 < len(r.sections) {
			r.sectionIdx++
			r.subsectionIdx = -1
			r.state = EventStartSection
			return r.state, nil
		}
		r.state = EventEndFile
		return r.state, r.fileHashErrOrNil()

	case EventEndFile:
		return r.state, nil

	default:
		return r.state, StateError{Operation: "Next", State: r.state.String()}
	}
}

func (r *Reader) fileHashErrOrNil() error { return r.fileHashErr }

func (r *Reader) currentSection() parsedSection {
	return r.sections[r.sectionIdx]
}

// State returns the reader's current event.
func (r *Reader) State() Event { return r.state }

// CurrentSectionType returns the type of the section the reader is
// currently positioned at or just finished (valid from START_SECTION
// through END_SECTION).
func (r *Reader) CurrentSectionType() (SectionType, error) {
	if r.sectionIdx < 0 {
		return 0, StateError{Operation: "CurrentSectionType", State: r.state.String()}
	}
	return r.currentSection().sectionType, nil
}

// CurrentSubsectionPath returns the path of the subsection the reader is
// currently positioned at (valid at START_SUBSECTION/END_SUBSECTION).
func (r *Reader) CurrentSubsectionPath() (string, error) {
	if r.subsectionIdx < 0 || r.subsectionIdx >= len(r.currentSection().subsections) {
		return "", StateError{Operation: "CurrentSubsectionPath", State: r.state.String()}
	}
	return r.currentSection().subsections[r.subsectionIdx].path, nil
}

// GetContentStream returns the current section's (at START_SECTION) or
// current subsection's (at START_SUBSECTION) decompressed content. It is
// invalid at any other state.
func (r *Reader) GetContentStream() ([]byte, error) {
	switch r.state {
	case EventStartSection:
		sec := r.currentSection()
		if len(sec.subsections) > 0 {
			return nil, StateError{Operation: "GetContentStream", State: "section has subsections, read per-subsection instead"}
		}
		return decompress(sec.compressor, sec.blob)
	case EventStartSubsection:
		sec := r.currentSection()
		sub := sec.subsections[r.subsectionIdx]
		return decompress(sec.compressor, sub.payload)
	default:
		return nil, StateError{Operation: "GetContentStream", State: r.state.String()}
	}
}

// GetClasses returns the CLASSES section's individual (path, content)
// entries. Valid only at START_SECTION when CurrentSectionType is
// ClassesSection.
func (r *Reader) GetClasses() ([]ClassEntry, error) {
	if r.state != EventStartSection {
		return nil, StateError{Operation: "GetClasses", State: r.state.String()}
	}
	sec := r.currentSection()
	if sec.sectionType != ClassesSection {
		return nil, StateError{Operation: "GetClasses", State: "current section is not CLASSES"}
	}
	content, err := decompress(sec.compressor, sec.blob)
	if err != nil {
		return nil, err
	}
	return readClassesArchive(content)
}

// SkipToNextStartSection advances past the remainder of the current
// section (and any unread subsections) directly to the next
// START_SECTION, or to END_FILE if none remain.
func (r *Reader) SkipToNextStartSection() (Event, error) {
	for {
		ev, err := r.Next()
		if err != nil {
			return ev, err
		}
		if ev == EventStartSection || ev == EventEndFile {
			return ev, nil
		}
	}
}

// SkipToNextStartSubsection advances to the next START_SUBSECTION within
// the current section, or to END_SECTION if none remain.
func (r *Reader) SkipToNextStartSubsection() (Event, error) {
	for {
		ev, err := r.Next()
		if err != nil {
			return ev, err
		}
		if ev == EventStartSubsection || ev == EventEndSection {
			return ev, nil
		}
	}
}
