// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modfile

import (
	"encoding/binary"
	"fmt"
)

// writeUint16, writeUint32 and writeUint64 append a big-endian integer to
// buf.
func writeUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func writeUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func writeUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// writeUTF appends a length-prefixed path string: a u16 byte length
// followed by the string's bytes. Path fields are always ASCII-safe
// relative, '/'-separated paths, so a plain UTF-8 length prefix is
// equivalent to a "modified UTF-8" encoding for every path this package
// itself produces.
func writeUTF(buf []byte, s string) ([]byte, error) {
	if len(s) > 0xFFFF {
		return nil, fmt.Errorf("path too long: %d bytes", len(s))
	}
	buf = writeUint16(buf, uint16(len(s)))
	return append(buf, s...), nil
}

// byteReader is a small cursor over an in-memory buffer used by both the
// file-header parser and the section/subsection scanners. Every modfile
// stream is fully buffered in memory before parsing, giving the reader a
// positionable/random-access view without a separate seek abstraction.
type byteReader struct {
	data []byte
	pos  int64
}

func (r *byteReader) offset() int64 { return r.pos }

func (r *byteReader) remaining() int64 { return int64(len(r.data)) - r.pos }

func (r *byteReader) readN(field string, n int) ([]byte, error) {
	if n < 0 || r.remaining() < int64(n) {
		return nil, FormatError{Field: field, Offset: r.pos, Reason: "unexpected end of file"}
	}
	b := r.data[r.pos : r.pos+int64(n)]
	r.pos += int64(n)
	return b, nil
}

func (r *byteReader) readUint16(field string) (uint16, error) {
	b, err := r.readN(field, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *byteReader) readUint32(field string) (uint32, error) {
	b, err := r.readN(field, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *byteReader) readUint64(field string) (uint64, error) {
	b, err := r.readN(field, 8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *byteReader) readUTF(field string) (string, error) {
	n, err := r.readUint16(field)
	if err != nil {
		return "", err
	}
	b, err := r.readN(field, int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
