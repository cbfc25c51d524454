// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

// Package modfile implements the binary module-file container format: a
// streaming, hash-validating reader and a two-pass writer, with typed
// sections, subsections and multiple compressors.
package modfile

// Magic is the fixed 32-bit value every file header (and the separate
// library header) begins with.
const Magic uint32 = 0xCAFE00FA

// MajorVersion and MinorVersion are the format versions this package reads
// and writes.
const (
	MajorVersion uint16 = 0
	MinorVersion uint16 = 0
)

// FileType identifies the kind of file a header describes: module files
// and library/catalog artifacts share the same magic and header shape,
// distinguished by this field.
type FileType uint16

const (
	LibraryHeaderFile      FileType = 0
	LibraryModuleIndexFile FileType = 1
	LibraryModuleConfigFile FileType = 2
	ModuleFileType         FileType = 3
	StreamCatalogFile      FileType = 4
	RemoteRepoMetaFile     FileType = 5
	RemoteRepoListFile     FileType = 6
)

func (t FileType) String() string {
	switch t {
	case LibraryHeaderFile:
		return "LIBRARY_HEADER"
	case LibraryModuleIndexFile:
		return "LIBRARY_MODULE_INDEX"
	case LibraryModuleConfigFile:
		return "LIBRARY_MODULE_CONFIG"
	case ModuleFileType:
		return "MODULE_FILE"
	case StreamCatalogFile:
		return "STREAM_CATALOG"
	case RemoteRepoMetaFile:
		return "REMOTE_REPO_META"
	case RemoteRepoListFile:
		return "REMOTE_REPO_LIST"
	default:
		return "UNKNOWN_FILE_TYPE"
	}
}

// SectionType identifies the kind of content a section header introduces.
type SectionType uint16

const (
	ModuleInfoSection SectionType = 0
	ClassesSection     SectionType = 1
	ResourcesSection   SectionType = 2
	NativeLibsSection  SectionType = 3
	NativeCmdsSection  SectionType = 4
	ConfigSection      SectionType = 5
	SignatureSection   SectionType = 6
)

func (t SectionType) String() string {
	switch t {
	case ModuleInfoSection:
		return "MODULE_INFO"
	case ClassesSection:
		return "CLASSES"
	case ResourcesSection:
		return "RESOURCES"
	case NativeLibsSection:
		return "NATIVE_LIBS"
	case NativeCmdsSection:
		return "NATIVE_CMDS"
	case ConfigSection:
		return "CONFIG"
	case SignatureSection:
		return "SIGNATURE"
	default:
		return "UNKNOWN_SECTION_TYPE"
	}
}

// HasFiles reports whether sections of this type carry a nonzero
// subsection count.
func (t SectionType) HasFiles() bool {
	switch t {
	case ResourcesSection, NativeLibsSection, NativeCmdsSection, ConfigSection:
		return true
	default:
		return false
	}
}

// Compressor identifies how a section's content bytes are stored on disk.
type Compressor uint16

const (
	NoCompression Compressor = 0
	Gzip          Compressor = 1
	Pack200Gzip   Compressor = 2
)

func (c Compressor) String() string {
	switch c {
	case NoCompression:
		return "NONE"
	case Gzip:
		return "GZIP"
	case Pack200Gzip:
		return "PACK200_GZIP"
	default:
		return "UNKNOWN_COMPRESSOR"
	}
}

// HashType identifies the hash algorithm used for both the file header and
// every section header. SHA256 is the only implemented algorithm; the
// default hash is SHA-256, chosen per file.
type HashType uint16

const (
	SHA256 HashType = 0
)

func (h HashType) String() string {
	switch h {
	case SHA256:
		return "SHA-256"
	default:
		return "UNKNOWN_HASH_TYPE"
	}
}

// SubsectionKind identifies the kind of a subsection header. FILE is
// currently the only kind.
type SubsectionKind uint16

const (
	FileSubsection SubsectionKind = 0
)

// sectionTypingRule enforces the section typing rules for one section
// type: how many are allowed, which compressors it may use, and whether
// it carries subsections.
type sectionTypingRule struct {
	maxCount           int // 0 means unbounded
	allowedCompressors []Compressor
	requiresNoSubsections bool
}

var sectionRules = map[SectionType]sectionTypingRule{
	ModuleInfoSection: {maxCount: 1, allowedCompressors: []Compressor{NoCompression}, requiresNoSubsections: true},
	ClassesSection:    {maxCount: 1, allowedCompressors: []Compressor{Pack200Gzip}, requiresNoSubsections: true},
	ResourcesSection:  {maxCount: 0, allowedCompressors: []Compressor{Gzip, NoCompression}},
	NativeLibsSection: {maxCount: 0, allowedCompressors: []Compressor{Gzip, NoCompression}},
	NativeCmdsSection: {maxCount: 0, allowedCompressors: []Compressor{Gzip, NoCompression}},
	ConfigSection:     {maxCount: 0, allowedCompressors: []Compressor{Gzip, NoCompression}},
	SignatureSection:  {maxCount: 1, allowedCompressors: []Compressor{NoCompression, Gzip}, requiresNoSubsections: true},
}

func compressorAllowed(rule sectionTypingRule, c Compressor) bool {
	for _, allowed := range rule.allowedCompressors {
		if allowed == c {
			return true
		}
	}
	return false
}

// validateSectionOrdering enforces the placement rules against a plain
// list of section types, shared by the writer (validating what it is about
// to encode) and the reader (validating what it just parsed): MODULE_INFO
// is required, exactly once, first; SIGNATURE, if present, immediately
// follows it; every type respects its maxCount.
func validateSectionOrdering(types []SectionType) error {
	counts := map[SectionType]int{}
	for i, t := range types {
		counts[t]++
		rule := sectionRules[t]
		if rule.maxCount > 0 && counts[t] > rule.maxCount {
			return FormatError{Field: t.String(), Reason: "too many sections of this type"}
		}
		if t == ModuleInfoSection && i != 0 {
			return FormatError{Field: "MODULE_INFO", Reason: "must be the first section"}
		}
		if t == SignatureSection {
			expectAt := 1
			if counts[ModuleInfoSection] == 0 {
				expectAt = 0
			}
			if i != expectAt {
				return FormatError{Field: "SIGNATURE", Reason: "must immediately follow MODULE_INFO"}
			}
		}
	}
	if counts[ModuleInfoSection] != 1 {
		return FormatError{Field: "MODULE_INFO", Reason: "exactly one MODULE_INFO section is required"}
	}
	return nil
}
