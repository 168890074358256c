// Package ast defines the value and expression model for Flagfile rules.
// Atoms are the tagged values every literal and resolved context variable
// reduces to; Node is the expression tree the parser produces. Both are
// closed sets dispatched by switching on the kind tag, and both are
// immutable once constructed.
package ast

import (
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// AtomKind identifies the variant held by an Atom.
type AtomKind uint8

const (
	KindString AtomKind = iota
	KindInt
	KindFloat
	KindBool
	KindVariable
	KindDate
	KindDateTime
	KindSemver
	KindRegex
	KindList
)

func (k AtomKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindVariable:
		return "variable"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindSemver:
		return "semver"
	case KindRegex:
		return "regex"
	case KindList:
		return "list"
	}
	return "unknown"
}

// Atom is a tagged immutable value. Only the field matching the kind is
// meaningful; construct atoms through the typed constructors below.
type Atom struct {
	kind AtomKind
	str  string // String, Variable, Regex pattern
	num  int64
	flt  float64
	b    bool
	t    time.Time // Date (midnight), DateTime
	ver  *semver.Version
	list []Atom
}

func String(s string) Atom   { return Atom{kind: KindString, str: s} }
func Int(n int64) Atom       { return Atom{kind: KindInt, num: n} }
func Float(f float64) Atom   { return Atom{kind: KindFloat, flt: f} }
func Bool(b bool) Atom       { return Atom{kind: KindBool, b: b} }
func Variable(name string) Atom { return Atom{kind: KindVariable, str: name} }
func Regex(pattern string) Atom { return Atom{kind: KindRegex, str: pattern} }

// Date builds a date atom at midnight UTC.
func Date(year int, month time.Month, day int) Atom {
	return Atom{kind: KindDate, t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateTime builds a second-precision timestamp atom.
func DateTime(t time.Time) Atom {
	return Atom{kind: KindDateTime, t: t.Truncate(time.Second)}
}

// Semver builds a version atom from its three components.
func Semver(major, minor, patch uint64) Atom {
	return Atom{kind: KindSemver, ver: semver.New(major, minor, patch, "", "")}
}

// List builds a list atom. Lists only appear as membership test operands.
func List(items []Atom) Atom {
	return Atom{kind: KindList, list: items}
}

func (a Atom) Kind() AtomKind { return a.kind }

// Text returns the string payload of String, Variable and Regex atoms.
func (a Atom) Text() string { return a.str }

func (a Atom) Int64() int64              { return a.num }
func (a Atom) Float64() float64          { return a.flt }
func (a Atom) Bool() bool                { return a.b }
func (a Atom) Time() time.Time           { return a.t }
func (a Atom) Version() *semver.Version  { return a.ver }
func (a Atom) Items() []Atom             { return a.list }

func (a Atom) IsVariable() bool { return a.kind == KindVariable }

// String renders the canonical text form: the form match operators
// compare against and percentage bucketing hashes.
func (a Atom) String() string {
	switch a.kind {
	case KindString, KindVariable, KindRegex:
		return a.str
	case KindInt:
		return strconv.FormatInt(a.num, 10)
	case KindFloat:
		return strconv.FormatFloat(a.flt, 'f', -1, 64)
	case KindBool:
		if a.b {
			return "true"
		}
		return "false"
	case KindDate:
		return a.t.Format("2006-01-02")
	case KindDateTime:
		return a.t.Format("2006-01-02T15:04:05")
	case KindSemver:
		return a.ver.String()
	case KindList:
		parts := make([]string, len(a.list))
		for i, item := range a.list {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return ""
}
