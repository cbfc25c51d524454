// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modfile

// WriteWholeFile wraps body in the fixed file header used for file
// kinds that carry no section framing of their own (STREAM_CATALOG,
// LIBRARY_MODULE_INDEX, LIBRARY_MODULE_CONFIG): the same
// magic/type/version/csize/usize/hashtype/hash preamble as a module file,
// hashing body as a single blob rather than per-section.
func WriteWholeFile(fileType FileType, body []byte) []byte {
	hash := hashBytes(body)
	header := make([]byte, 0, fileHeaderFixedLen+len(hash)+len(body))
	header = writeUint32(header, Magic)
	header = writeUint16(header, uint16(fileType))
	header = writeUint16(header, MajorVersion)
	header = writeUint16(header, MinorVersion)
	header = writeUint64(header, uint64(len(body)))
	header = writeUint64(header, uint64(len(body)))
	header = writeUint16(header, uint16(SHA256))
	header = writeUint16(header, uint16(len(hash)))
	header = append(header, hash...)
	return append(header, body...)
}

// ReadWholeFile parses bytes written by WriteWholeFile, verifying the body
// hash, and returns the file's declared type and raw body.
func ReadWholeFile(data []byte) (FileType, []byte, error) {
	br := &byteReader{data: data}
	header, _, err := parseFileHeader(br)
	if err != nil {
		return 0, nil, err
	}
	if header.HashType != SHA256 {
		return 0, nil, UnsupportedHashAlgorithmError{HashType: header.HashType}
	}
	body := data[br.offset():]
	if uint64(len(body)) != header.CSize {
		return 0, nil, FormatError{Field: "csize", Offset: br.offset(), Reason: "declared size does not match remaining bytes"}
	}
	actual := hashBytes(body)
	if !constantTimeEqual(actual, header.Hash) {
		return 0, nil, HashMismatchError{Section: "file", Expected: header.Hash, Actual: actual}
	}
	return header.Type, body, nil
}

// WriteLibraryHeader produces the minimal %jigsaw-library header file:
// magic, type, major/minor only, with no body and no hash.
func WriteLibraryHeader() []byte {
	var buf []byte
	buf = writeUint32(buf, Magic)
	buf = writeUint16(buf, uint16(LibraryHeaderFile))
	buf = writeUint16(buf, MajorVersion)
	buf = writeUint16(buf, MinorVersion)
	return buf
}

// ReadLibraryHeader validates a %jigsaw-library header file's magic and
// type.
func ReadLibraryHeader(data []byte) error {
	br := &byteReader{data: data}
	magic, err := br.readUint32("magic")
	if err != nil {
		return err
	}
	if magic != Magic {
		return FormatError{Field: "magic", Reason: "not a jigsaw-library header"}
	}
	typ, err := br.readUint16("type")
	if err != nil {
		return err
	}
	if FileType(typ) != LibraryHeaderFile {
		return FormatError{Field: "type", Reason: "not a LIBRARY_HEADER file"}
	}
	if _, err := br.readUint16("majorVersion"); err != nil {
		return err
	}
	if _, err := br.readUint16("minorVersion"); err != nil {
		return err
	}
	return nil
}
