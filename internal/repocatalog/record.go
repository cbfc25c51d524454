// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package repocatalog

import (
	"encoding/binary"
	"fmt"

	"github.com/opentofu-labs/modsys/internal/modfile"
	"github.com/opentofu-labs/modsys/internal/modid"
)

// moduleRecord is one entry of the repository catalog's
// `{ ModuleId → (kind, compressed-size, uncompressed-size, hash-type,
// hash, module-info bytes) }` mapping.
type moduleRecord struct {
	Id               modid.Id
	Kind             string
	CompressedSize   uint64
	UncompressedSize uint64
	HashType         modfile.HashType
	Hash             []byte
	Descriptor       []byte
}

// aliasRecord is one entry of the repository catalog's
// `{ ViewId → ModuleId }` mapping.
type aliasRecord struct {
	ViewId   modid.Id
	ModuleId modid.Id
}

// encodeCatalog serializes the catalog body: module count, per-entry
// records, then alias count, then alias records. This is the
// payload handed to modfile.WriteWholeFile under the STREAM_CATALOG file
// type; it has its own compact framing rather than modfile's
// section/subsection structure, since a catalog entry is a flat record,
// not a file with independently-compressed parts.
func encodeCatalog(modules []moduleRecord, aliases []aliasRecord) []byte {
	var buf []byte
	buf = putUint32(buf, uint32(len(modules)))
	for _, m := range modules {
		buf = putString(buf, m.Id.String())
		buf = putString(buf, m.Kind)
		buf = putUint64(buf, m.CompressedSize)
		buf = putUint64(buf, m.UncompressedSize)
		buf = putUint16(buf, uint16(m.HashType))
		buf = putBytes(buf, m.Hash)
		buf = putBytes(buf, m.Descriptor)
	}
	buf = putUint32(buf, uint32(len(aliases)))
	for _, a := range aliases {
		buf = putString(buf, a.ViewId.String())
		buf = putString(buf, a.ModuleId.String())
	}
	return buf
}

func decodeCatalog(body []byte) ([]moduleRecord, []aliasRecord, error) {
	c := &cursor{data: body}

	moduleCount, err := c.uint32("moduleCount")
	if err != nil {
		return nil, nil, err
	}
	modules := make([]moduleRecord, 0, moduleCount)
	for i := 0; i < int(moduleCount); i++ {
		idStr, err := c.string("module.id")
		if err != nil {
			return nil, nil, err
		}
		id, err := modid.ParseId(idStr)
		if err != nil {
			return nil, nil, StaleCatalogError{Reason: err.Error()}
		}
		kind, err := c.string("module.kind")
		if err != nil {
			return nil, nil, err
		}
		csize, err := c.uint64("module.compressedSize")
		if err != nil {
			return nil, nil, err
		}
		usize, err := c.uint64("module.uncompressedSize")
		if err != nil {
			return nil, nil, err
		}
		hashType, err := c.uint16("module.hashType")
		if err != nil {
			return nil, nil, err
		}
		hash, err := c.bytes("module.hash")
		if err != nil {
			return nil, nil, err
		}
		descriptor, err := c.bytes("module.descriptor")
		if err != nil {
			return nil, nil, err
		}
		modules = append(modules, moduleRecord{
			Id:               id,
			Kind:             kind,
			CompressedSize:   csize,
			UncompressedSize: usize,
			HashType:         modfile.HashType(hashType),
			Hash:             hash,
			Descriptor:       descriptor,
		})
	}

	aliasCount, err := c.uint32("aliasCount")
	if err != nil {
		return nil, nil, err
	}
	aliases := make([]aliasRecord, 0, aliasCount)
	for i := 0; i < int(aliasCount); i++ {
		viewIdStr, err := c.string("alias.viewId")
		if err != nil {
			return nil, nil, err
		}
		viewId, err := modid.ParseId(viewIdStr)
		if err != nil {
			return nil, nil, StaleCatalogError{Reason: err.Error()}
		}
		moduleIdStr, err := c.string("alias.moduleId")
		if err != nil {
			return nil, nil, err
		}
		moduleId, err := modid.ParseId(moduleIdStr)
		if err != nil {
			return nil, nil, StaleCatalogError{Reason: err.Error()}
		}
		aliases = append(aliases, aliasRecord{ViewId: viewId, ModuleId: moduleId})
	}

	return modules, aliases, nil
}

func putUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putBytes(buf []byte, b []byte) []byte {
	buf = putUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func putString(buf []byte, s string) []byte {
	return putBytes(buf, []byte(s))
}

type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) need(n int, field string) error {
	if len(c.data)-c.pos < n {
		return StaleCatalogError{Reason: fmt.Sprintf("unexpected end of data at %s", field)}
	}
	return nil
}

func (c *cursor) uint16(field string) (uint16, error) {
	if err := c.need(2, field); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) uint32(field string) (uint32, error) {
	if err := c.need(4, field); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) uint64(field string) (uint64, error) {
	if err := c.need(8, field); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(c.data[c.pos:])
	c.pos += 8
	return v, nil
}

func (c *cursor) bytes(field string) ([]byte, error) {
	n, err := c.uint32(field)
	if err != nil {
		return nil, err
	}
	if err := c.need(int(n), field); err != nil {
		return nil, err
	}
	b := append([]byte(nil), c.data[c.pos:c.pos+int(n)]...)
	c.pos += int(n)
	return b, nil
}

func (c *cursor) string(field string) (string, error) {
	b, err := c.bytes(field)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
