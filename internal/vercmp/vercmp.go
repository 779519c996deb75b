// Package vercmp implements pacman-style version comparison (epoch,
// upstream version with alphanumeric segment comparison, and package
// release), behind the stub and scripted back-ends' CompareVersions that
// the deptest operation's --vercmp mode calls. Grounded on the
// epoch:pkgver-pkgrel scheme referenced throughout
// original_source/src/pacman/deptest.c and sync.c.
package vercmp

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/mod/semver"
)

// Modifier is the dependency version comparison operator, matching the
// DepMissing payload of spec.md §4.8 (Prepare's UnsatisfiedDeps).
type Modifier int

const (
	Any Modifier = iota
	Eq
	Ge
	Le
	Gt
	Lt
)

func (m Modifier) String() string {
	switch m {
	case Eq:
		return "="
	case Ge:
		return ">="
	case Le:
		return "<="
	case Gt:
		return ">"
	case Lt:
		return "<"
	default:
		return ""
	}
}

// Parsed splits "1:2.31-4" into its epoch/version/release components.
type Parsed struct {
	Epoch   int
	Version string
	Release string
}

func parse(s string) Parsed {
	var p Parsed
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		if e, err := strconv.Atoi(s[:idx]); err == nil {
			p.Epoch = e
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndexByte(s, '-'); idx >= 0 {
		p.Version = s[:idx]
		p.Release = s[idx+1:]
	} else {
		p.Version = s
	}
	return p
}

// Compare returns -1, 0 or 1 comparing a and b the pacman way: epoch
// first, then the upstream version by alphanumeric segment, then the
// release. When both strings look like valid semantic versions (and
// neither carries a pacman epoch/release), the comparison is delegated to
// golang.org/x/mod/semver instead, since that is a more precise ordering
// for projects that actually version themselves that way.
func Compare(a, b string) int {
	pa, pb := parse(a), parse(b)
	if pa.Epoch == 0 && pb.Epoch == 0 && pa.Release == "" && pb.Release == "" {
		sa, sb := "v"+strings.TrimPrefix(pa.Version, "v"), "v"+strings.TrimPrefix(pb.Version, "v")
		if semver.IsValid(sa) && semver.IsValid(sb) {
			return semver.Compare(sa, sb)
		}
	}
	if pa.Epoch != pb.Epoch {
		return cmpInt(pa.Epoch, pb.Epoch)
	}
	if c := compareSegments(pa.Version, pb.Version); c != 0 {
		return c
	}
	return compareSegments(pa.Release, pb.Release)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareSegments implements rpm/pacman's alphanumeric version
// comparison: the string is split into alternating digit/non-digit runs,
// digit runs compare numerically, non-digit runs compare lexically, and a
// missing segment on one side loses to a present numeric segment but wins
// against a present alphabetic one (mirrors vercmp(8)'s documented rules
// closely enough for dependency satisfiability checks).
func compareSegments(a, b string) int {
	ai, bi := 0, 0
	for ai < len(a) || bi < len(b) {
		// skip non-alnum separators (., _, etc.) on both sides
		for ai < len(a) && !isAlnum(rune(a[ai])) {
			ai++
		}
		for bi < len(b) && !isAlnum(rune(b[bi])) {
			bi++
		}
		if ai >= len(a) || bi >= len(b) {
			break
		}
		aStart, bStart := ai, bi
		aDigit := unicode.IsDigit(rune(a[ai]))
		bDigit := unicode.IsDigit(rune(b[bi]))
		if aDigit != bDigit {
			if aDigit {
				return 1
			}
			return -1
		}
		if aDigit {
			for ai < len(a) && unicode.IsDigit(rune(a[ai])) {
				ai++
			}
			for bi < len(b) && unicode.IsDigit(rune(b[bi])) {
				bi++
			}
			na := strings.TrimLeft(a[aStart:ai], "0")
			nb := strings.TrimLeft(b[bStart:bi], "0")
			if len(na) != len(nb) {
				return cmpInt(len(na), len(nb))
			}
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		} else {
			for ai < len(a) && unicode.IsLetter(rune(a[ai])) {
				ai++
			}
			for bi < len(b) && unicode.IsLetter(rune(b[bi])) {
				bi++
			}
			sa, sb := a[aStart:ai], b[bStart:bi]
			if sa != sb {
				if sa < sb {
					return -1
				}
				return 1
			}
		}
	}
	switch {
	case ai < len(a):
		if unicode.IsDigit(rune(a[ai])) {
			return 1
		}
		return -1
	case bi < len(b):
		if unicode.IsDigit(rune(b[bi])) {
			return -1
		}
		return 1
	default:
		return 0
	}
}

func isAlnum(r rune) bool {
	return unicode.IsDigit(r) || unicode.IsLetter(r)
}

// Satisfies reports whether the installed version satisfies "mod version"
// (e.g. installed=2.31, mod=Ge, version=2.30 => true). Any always
// satisfies.
func Satisfies(installed string, mod Modifier, version string) bool {
	if mod == Any {
		return true
	}
	c := Compare(installed, version)
	switch mod {
	case Eq:
		return c == 0
	case Ge:
		return c >= 0
	case Le:
		return c <= 0
	case Gt:
		return c > 0
	case Lt:
		return c < 0
	default:
		return true
	}
}
