package ast

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// floatToSemver reinterprets a numeric literal as a version: the integer
// part becomes major, the fractional digits become minor, patch is always
// zero (5.4 → 5.4.0, 5 → 5.0.0). Negative values have no version form.
func floatToSemver(f float64) (*semver.Version, bool) {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	maj, min := s, "0"
	if i := strings.IndexByte(s, '.'); i >= 0 {
		maj, min = s[:i], s[i+1:]
	}
	major, err := strconv.ParseUint(maj, 10, 64)
	if err != nil {
		return nil, false
	}
	minor, err := strconv.ParseUint(min, 10, 64)
	if err != nil {
		return nil, false
	}
	return semver.New(major, minor, 0, "", ""), true
}

func intToSemver(n int64) (*semver.Version, bool) {
	if n < 0 {
		return nil, false
	}
	return semver.New(uint64(n), 0, 0, "", ""), true
}

// Equal reports structural equality with the documented cross-type
// allowances: a Variable used as a literal equals a same-text String,
// and versions equal numbers that decompose cleanly into major/minor.
func Equal(a, b Atom) bool {
	if a.kind == b.kind {
		switch a.kind {
		case KindString, KindVariable, KindRegex:
			return a.str == b.str
		case KindInt:
			return a.num == b.num
		case KindFloat:
			return a.flt == b.flt
		case KindBool:
			return a.b == b.b
		case KindDate, KindDateTime:
			return a.t.Equal(b.t)
		case KindSemver:
			return a.ver.Equal(b.ver)
		case KindList:
			if len(a.list) != len(b.list) {
				return false
			}
			for i := range a.list {
				if !Equal(a.list[i], b.list[i]) {
					return false
				}
			}
			return true
		}
		return false
	}

	switch {
	case a.kind == KindString && b.kind == KindVariable,
		a.kind == KindVariable && b.kind == KindString:
		return a.str == b.str
	}

	if v, other, ok := semverPair(a, b); ok {
		coerced, ok := coerceToSemver(other)
		return ok && v.Equal(coerced)
	}
	// Int and Float stay distinct under equality; only ordering treats
	// them as one numeric line. A midnight DateTime does equal its Date.
	if isTemporal(a) && isTemporal(b) {
		return a.t.Equal(b.t)
	}
	return false
}

// Ordering results for Compare.
const (
	Less    = -1
	EqualTo = 0
	Greater = 1
)

// Compare orders two atoms. The second result is false when the pair is
// incomparable; callers treat that as a failed condition, never an error.
func Compare(a, b Atom) (int, bool) {
	switch {
	case isNumeric(a) && isNumeric(b):
		x, y := numeric(a), numeric(b)
		switch {
		case x < y:
			return Less, true
		case x > y:
			return Greater, true
		}
		return EqualTo, true

	case isTemporal(a) && isTemporal(b):
		switch {
		case a.t.Before(b.t):
			return Less, true
		case a.t.After(b.t):
			return Greater, true
		}
		return EqualTo, true
	}

	if v, other, ok := semverPair(a, b); ok {
		coerced, cok := coerceToSemver(other)
		if !cok {
			return 0, false
		}
		cmp := v.Compare(coerced)
		if a.kind != KindSemver {
			cmp = -cmp
		}
		return cmp, true
	}
	return 0, false
}

func isNumeric(a Atom) bool { return a.kind == KindInt || a.kind == KindFloat }

func numeric(a Atom) float64 {
	if a.kind == KindInt {
		return float64(a.num)
	}
	return a.flt
}

// isTemporal covers Date and DateTime; a date carries midnight, so mixed
// comparisons fall out of plain time ordering.
func isTemporal(a Atom) bool { return a.kind == KindDate || a.kind == KindDateTime }

// semverPair picks out the version operand of a mixed pair. The returned
// version always belongs to atom a or b whose kind is KindSemver.
func semverPair(a, b Atom) (*semver.Version, Atom, bool) {
	if a.kind == KindSemver && b.kind != KindSemver {
		return a.ver, b, true
	}
	if b.kind == KindSemver && a.kind != KindSemver {
		return b.ver, a, true
	}
	return nil, Atom{}, false
}

func coerceToSemver(a Atom) (*semver.Version, bool) {
	switch a.kind {
	case KindFloat:
		return floatToSemver(a.flt)
	case KindInt:
		return intToSemver(a.num)
	}
	return nil, false
}
