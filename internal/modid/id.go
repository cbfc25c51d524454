// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

// Package modid implements the module identifier and version algebra:
// parsing and comparing module-id and module-id-query strings of the
// form "name[@version]" and "name[<op>version]".
package modid

import "regexp"

// namePattern matches the module-id syntax for the Name component:
// [A-Za-z_][A-Za-z_0-9]*('.'[A-Za-z_][A-Za-z_0-9]*)*
var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z_0-9]*(\.[A-Za-z_][A-Za-z_0-9]*)*$`)

// Id is an immutable, hashable (name, version) pair. Ids compare in a
// stable total order that extends Version order within a Name.
type Id struct {
	Name    string
	Version Version
}

// ValidateName reports whether name satisfies the module-id-name grammar.
func ValidateName(name string) bool {
	return namePattern.MatchString(name)
}

// NewId validates name and version and constructs an Id.
func NewId(name string, version Version) (Id, error) {
	if !ValidateName(name) {
		return Id{}, InvalidIdError{Input: name, Message: "malformed module name"}
	}
	if version.IsZero() {
		return Id{}, InvalidIdError{Input: name, Message: "version must not be empty"}
	}
	return Id{Name: name, Version: version}, nil
}

// ParseId parses a "name@version" string.
func ParseId(s string) (Id, error) {
	name, versionStr, ok := splitNameVersion(s, '@')
	if !ok {
		return Id{}, InvalidIdError{Input: s, Message: "expected name@version"}
	}
	if !ValidateName(name) {
		return Id{}, InvalidIdError{Input: s, Message: "malformed module name"}
	}
	version, err := ParseVersion(versionStr)
	if err != nil {
		return Id{}, InvalidIdError{Input: s, Message: err.Error()}
	}
	return Id{Name: name, Version: version}, nil
}

// MustParseId is a wrapper around ParseId that panics on error.
func MustParseId(s string) Id {
	id, err := ParseId(s)
	if err != nil {
		panic(err.Error())
	}
	return id
}

func splitNameVersion(s string, sep byte) (name string, rest string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

// String renders the canonical "name@version" form.
func (id Id) String() string {
	return id.Name + "@" + id.Version.String()
}

// Equal reports whether id and other name the same module at the same
// version.
func (id Id) Equal(other Id) bool {
	return id.Name == other.Name && id.Version.Equal(other.Version)
}

// Compare gives a stable total order: by Name, then by Version.
func (id Id) Compare(other Id) int {
	if id.Name != other.Name {
		if id.Name < other.Name {
			return -1
		}
		return 1
	}
	return id.Version.Compare(other.Version)
}

// CompareNewestFirst orders candidate Ids for the same name newest-version
// first, ties broken by the total id order used during resolver candidate
// evaluation. It is meant for use with sort.Slice over a set of Ids that
// all share a Name; for different names it falls back to Compare.
func CompareNewestFirst(a, b Id) int {
	if a.Name == b.Name {
		return -a.Version.Compare(b.Version)
	}
	return a.Compare(b)
}
