// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modid

import "strings"

// Op is a version-relational operator for a Query.
type Op int

const (
	// OpAny matches any version; it is the operator of a bare-name query.
	OpAny Op = iota
	OpLess
	OpLessEqual
	OpEqual
	OpGreaterEqual
	OpGreater
)

func (op Op) String() string {
	switch op {
	case OpLess:
		return "<"
	case OpLessEqual:
		return "<="
	case OpEqual:
		return "="
	case OpGreaterEqual:
		return ">="
	case OpGreater:
		return ">"
	default:
		return ""
	}
}

// operatorsByLength lists the recognized relational operator tokens,
// longest first so that "<=" is matched before "<".
var operatorsByLength = []struct {
	token string
	op    Op
}{
	{"<=", OpLessEqual},
	{">=", OpGreaterEqual},
	{"<", OpLess},
	{">", OpGreater},
	{"=", OpEqual},
}

// Query is a (name, versionQuery) pair: versionQuery is one of
// { <v, <=v, =v, >=v, >v, any }.
type Query struct {
	Name    string
	Op      Op
	Version Version // zero value when Op == OpAny
}

// ParseQuery parses a "name", "name@version" (treated as "=version" for
// backward-compatible root-query convenience) or "name<op>version" string.
func ParseQuery(s string) (Query, error) {
	// A bare name with no operator and no '@' matches any version.
	for _, cand := range operatorsByLength {
		idx := strings.Index(s, cand.token)
		if idx <= 0 {
			continue
		}
		name := s[:idx]
		versionStr := s[idx+len(cand.token):]
		if !ValidateName(name) {
			return Query{}, InvalidQueryError{Input: s, Message: "malformed module name"}
		}
		version, err := ParseVersion(versionStr)
		if err != nil {
			return Query{}, InvalidQueryError{Input: s, Message: err.Error()}
		}
		return Query{Name: name, Op: cand.op, Version: version}, nil
	}
	if idx := strings.IndexByte(s, '@'); idx > 0 {
		name := s[:idx]
		if !ValidateName(name) {
			return Query{}, InvalidQueryError{Input: s, Message: "malformed module name"}
		}
		version, err := ParseVersion(s[idx+1:])
		if err != nil {
			return Query{}, InvalidQueryError{Input: s, Message: err.Error()}
		}
		return Query{Name: name, Op: OpEqual, Version: version}, nil
	}
	if !ValidateName(s) {
		return Query{}, InvalidQueryError{Input: s, Message: "malformed module name"}
	}
	return Query{Name: s, Op: OpAny}, nil
}

// MustParseQuery is a wrapper around ParseQuery that panics on error.
func MustParseQuery(s string) Query {
	q, err := ParseQuery(s)
	if err != nil {
		panic(err.Error())
	}
	return q
}

// Matches is the pure predicate q.Matches(id) = op(id.version, query.version).
func (q Query) Matches(id Id) bool {
	if id.Name != q.Name {
		return false
	}
	switch q.Op {
	case OpAny:
		return true
	case OpLess:
		return id.Version.LessThan(q.Version)
	case OpLessEqual:
		return id.Version.LessThan(q.Version) || id.Version.Equal(q.Version)
	case OpEqual:
		return id.Version.Equal(q.Version)
	case OpGreaterEqual:
		return id.Version.GreaterThan(q.Version) || id.Version.Equal(q.Version)
	case OpGreater:
		return id.Version.GreaterThan(q.Version)
	default:
		return false
	}
}

// String renders the canonical wire form of the query.
func (q Query) String() string {
	if q.Op == OpAny {
		return q.Name
	}
	return q.Name + q.Op.String() + q.Version.String()
}
