// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modinfo

import (
	"encoding/binary"
	"fmt"

	"github.com/opentofu-labs/modsys/internal/collections"
	"github.com/opentofu-labs/modsys/internal/modid"
)

// Encode serializes mi into the module descriptor bytes carried by a
// module file's MODULE_INFO section: big-endian integers and
// u16-length-prefixed UTF-8 strings, mirroring the framing style package
// modfile uses for its container headers, so a module file's sections and
// its descriptor share one visual idiom.
func Encode(mi *ModuleInfo) []byte {
	var buf []byte
	buf = putString(buf, mi.id.String())
	buf = putUint16(buf, uint16(len(mi.views)))
	for _, v := range mi.views {
		buf = encodeView(buf, v)
	}
	buf = putUint16(buf, uint16(len(mi.requires)))
	for _, r := range mi.requires {
		buf = putString(buf, r.Query.String())
		buf = putUint16(buf, uint16(r.Modifiers))
	}
	return buf
}

func encodeView(buf []byte, v ModuleView) []byte {
	buf = putString(buf, v.Id.String())
	buf = putStringSet(buf, aliasStrings(v.Aliases))
	buf = putString(buf, v.MainClass)
	buf = putStringSet(buf, v.Permits)
	buf = putStringSet(buf, v.Exports)
	buf = putUint16(buf, uint16(len(v.Services)))
	for iface, providers := range v.Services {
		buf = putString(buf, iface)
		buf = putStringSet(buf, providers)
	}
	return buf
}

func aliasStrings(aliases collections.Set[modid.Id]) collections.Set[string] {
	out := collections.Set[string]{}
	for id := range aliases {
		out[id.String()] = struct{}{}
	}
	return out
}

// Decode parses bytes previously produced by Encode back into a
// ModuleInfo. The returned value's Classes set is empty; callers that also
// have a module file's CLASSES section should attach it with WithClasses.
func Decode(data []byte) (*ModuleInfo, error) {
	r := &decodeCursor{data: data}

	declaredIdStr, err := r.string("id")
	if err != nil {
		return nil, err
	}
	declaredId, err := modid.ParseId(declaredIdStr)
	if err != nil {
		return nil, InvalidModuleInfoError{Module: declaredIdStr, Message: err.Error()}
	}

	viewCount, err := r.uint16("viewCount")
	if err != nil {
		return nil, err
	}
	views := make([]ModuleView, 0, viewCount)
	for i := 0; i < int(viewCount); i++ {
		v, err := decodeView(r)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}

	requireCount, err := r.uint16("requireCount")
	if err != nil {
		return nil, err
	}
	requires := make([]Dependence, 0, requireCount)
	for i := 0; i < int(requireCount); i++ {
		queryStr, err := r.string("require.query")
		if err != nil {
			return nil, err
		}
		query, err := modid.ParseQuery(queryStr)
		if err != nil {
			return nil, InvalidModuleInfoError{Module: declaredIdStr, Message: err.Error()}
		}
		mods, err := r.uint16("require.modifiers")
		if err != nil {
			return nil, err
		}
		requires = append(requires, NewDependence(query, Modifier(mods)))
	}

	return NewModuleInfo(declaredId, views, requires)
}

func decodeView(r *decodeCursor) (ModuleView, error) {
	idStr, err := r.string("view.id")
	if err != nil {
		return ModuleView{}, err
	}
	id, err := modid.ParseId(idStr)
	if err != nil {
		return ModuleView{}, InvalidModuleInfoError{Module: idStr, Message: err.Error()}
	}
	aliasStrs, err := r.stringSet("view.aliases")
	if err != nil {
		return ModuleView{}, err
	}
	aliases := collections.Set[modid.Id]{}
	for s := range aliasStrs {
		aid, err := modid.ParseId(s)
		if err != nil {
			return ModuleView{}, InvalidModuleInfoError{Module: idStr, Message: err.Error()}
		}
		aliases[aid] = struct{}{}
	}
	mainClass, err := r.string("view.mainClass")
	if err != nil {
		return ModuleView{}, err
	}
	permits, err := r.stringSet("view.permits")
	if err != nil {
		return ModuleView{}, err
	}
	exports, err := r.stringSet("view.exports")
	if err != nil {
		return ModuleView{}, err
	}
	serviceCount, err := r.uint16("view.serviceCount")
	if err != nil {
		return ModuleView{}, err
	}
	services := make(map[string]collections.Set[string], serviceCount)
	for i := 0; i < int(serviceCount); i++ {
		iface, err := r.string("view.service.iface")
		if err != nil {
			return ModuleView{}, err
		}
		providers, err := r.stringSet("view.service.providers")
		if err != nil {
			return ModuleView{}, err
		}
		services[iface] = providers
	}
	return ModuleView{
		Id:        id,
		Aliases:   aliases,
		MainClass: mainClass,
		Permits:   permits,
		Exports:   exports,
		Services:  services,
	}, nil
}

func putUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putString(buf []byte, s string) []byte {
	buf = putUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func putStringSet(buf []byte, set collections.Set[string]) []byte {
	buf = putUint16(buf, uint16(len(set)))
	for s := range set {
		buf = putString(buf, s)
	}
	return buf
}

type decodeCursor struct {
	data []byte
	pos  int
}

func (c *decodeCursor) uint16(field string) (uint16, error) {
	if len(c.data)-c.pos < 2 {
		return 0, fmt.Errorf("decoding module descriptor: unexpected end of data at %s", field)
	}
	v := binary.BigEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *decodeCursor) string(field string) (string, error) {
	n, err := c.uint16(field)
	if err != nil {
		return "", err
	}
	if len(c.data)-c.pos < int(n) {
		return "", fmt.Errorf("decoding module descriptor: unexpected end of data at %s", field)
	}
	s := string(c.data[c.pos : c.pos+int(n)])
	c.pos += int(n)
	return s, nil
}

func (c *decodeCursor) stringSet(field string) (collections.Set[string], error) {
	n, err := c.uint16(field)
	if err != nil {
		return nil, err
	}
	set := collections.Set[string]{}
	for i := 0; i < int(n); i++ {
		s, err := c.string(field)
		if err != nil {
			return nil, err
		}
		set[s] = struct{}{}
	}
	return set, nil
}
