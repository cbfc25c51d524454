// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

package modid

import (
	"fmt"
	"strconv"
)

// Version is a totally ordered module version string. Unlike semver
// libraries such as github.com/hashicorp/go-version, comparison here is
// Debian-style: the string is split into alternating runs of digits and
// non-digits, numeric runs compare numerically and non-numeric runs compare
// lexicographically, and a shorter sequence of runs is "less than" a longer
// one that agrees with it on every shared run. This matches the wire format
// in the GLOSSARY ("Version: totally ordered ... lexicographic-numeric").
type Version struct {
	raw string
}

type run struct {
	text    string
	numeric bool
	num     int64 // valid only when numeric is true and the run fits in an int64
}

// splitRuns breaks s into alternating runs of digits and non-digits, in
// order; an empty s yields no runs.
func splitRuns(s string) []run {
	var runs []run
	i := 0
	for i < len(s) {
		start := i
		isDigit := isDigitByte(s[i])
		for i < len(s) && isDigitByte(s[i]) == isDigit {
			i++
		}
		text := s[start:i]
		r := run{text: text, numeric: isDigit}
		if isDigit {
			if n, err := strconv.ParseInt(text, 10, 64); err == nil {
				r.num = n
			} else {
				// Overflow: fall back to lexicographic comparison of the
				// digit string itself, which is still correct for
				// same-length numerals and good enough for implausibly
				// large version components.
				r.numeric = false
			}
		}
		runs = append(runs, r)
	}
	return runs
}

func isDigitByte(b byte) bool {
	return b >= '0' && b <= '9'
}

// ParseVersion parses a raw version string into a Version. An empty string
// is rejected; anything else is accepted, since the module-id-query syntax
// only further constrains the *dotted numeric + optional -suffix* shape,
// and comparison here is defined for any string.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return Version{}, fmt.Errorf("version must not be empty")
	}
	return Version{raw: s}, nil
}

// MustParseVersion is a wrapper around ParseVersion that panics on error.
// It exists for tests and for call sites working with compile-time-constant
// version literals.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err.Error())
	}
	return v
}

// String returns the original, unparsed version text.
func (v Version) String() string {
	return v.raw
}

// IsZero reports whether v is the zero Version (never a valid parsed value).
func (v Version) IsZero() bool {
	return v.raw == ""
}

// Compare returns -1, 0 or 1 according to whether v is less than, equal to,
// or greater than other.
func (v Version) Compare(other Version) int {
	if v.raw == other.raw {
		return 0
	}
	vRuns, otherRuns := splitRuns(v.raw), splitRuns(other.raw)
	for i := 0; ; i++ {
		if i >= len(vRuns) && i >= len(otherRuns) {
			return 0
		}
		if i >= len(vRuns) {
			return -1
		}
		if i >= len(otherRuns) {
			return 1
		}
		a, b := vRuns[i], otherRuns[i]
		if a.numeric && b.numeric {
			switch {
			case a.num < b.num:
				return -1
			case a.num > b.num:
				return 1
			}
			continue
		}
		if a.numeric != b.numeric {
			// A numeric run sorts before a non-numeric run at the same
			// position: digits are "earlier" than letters, matching the
			// Debian convention that "1.0" < "1.0-beta" < "1.0a".
			if a.numeric {
				return -1
			}
			return 1
		}
		if a.text != b.text {
			if a.text < b.text {
				return -1
			}
			return 1
		}
	}
}

// LessThan reports whether v sorts strictly before other.
func (v Version) LessThan(other Version) bool { return v.Compare(other) < 0 }

// Equal reports whether v and other compare equal.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

// GreaterThan reports whether v sorts strictly after other.
func (v Version) GreaterThan(other Version) bool { return v.Compare(other) > 0 }
