// Package parse turns Flagfile source text into the ast model. Every
// production is a plain function from remaining input to (rest, value,
// ok): failure leaves the input unconsumed so alternatives can be tried
// in order, and nothing is signaled by panic or error until the
// top-level caller checks that the whole input was consumed.
package parse

import (
	"strconv"
	"strings"
	"time"

	"github.com/TimurManjosov/flagfile/ast"
)

// skipWS drops leading spaces, tabs and newlines.
func skipWS(i string) string {
	return strings.TrimLeft(i, " \t\r\n")
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }

// takeDigits consumes a run of decimal digits.
func takeDigits(i string) (string, string, bool) {
	n := 0
	for n < len(i) && isDigit(i[n]) {
		n++
	}
	if n == 0 {
		return i, "", false
	}
	return i[n:], i[:n], true
}

// takeIdent consumes an identifier: letter or underscore, then letters,
// digits and underscores.
func takeIdent(i string) (string, string, bool) {
	if len(i) == 0 || !isIdentStart(i[0]) {
		return i, "", false
	}
	n := 1
	for n < len(i) && isIdentChar(i[n]) {
		n++
	}
	return i[n:], i[:n], true
}

// tagCI consumes the keyword case-insensitively. It does not check word
// boundaries; use keywordCI for word-form operators.
func tagCI(i, keyword string) (string, bool) {
	if len(i) < len(keyword) {
		return i, false
	}
	if !strings.EqualFold(i[:len(keyword)], keyword) {
		return i, false
	}
	return i[len(keyword):], true
}

// keywordCI consumes the keyword case-insensitively and requires a word
// boundary after it, so "truex" is an identifier and not the literal
// true followed by garbage.
func keywordCI(i, keyword string) (string, bool) {
	rest, ok := tagCI(i, keyword)
	if !ok {
		return i, false
	}
	if len(rest) > 0 && isIdentChar(rest[0]) {
		return i, false
	}
	return rest, true
}

// parseDateTime consumes YYYY-MM-DDThh:mm:ss with an optional trailing Z.
func parseDateTime(i string) (string, ast.Atom, bool) {
	rest, t, ok := parseDateTimeParts(i)
	if !ok {
		return i, ast.Atom{}, false
	}
	return rest, ast.DateTime(t), true
}

func parseDateTimeParts(i string) (string, time.Time, bool) {
	rest, y, m, d, ok := parseDateParts(i)
	if !ok || len(rest) == 0 || rest[0] != 'T' {
		return i, time.Time{}, false
	}
	rest = rest[1:]
	var clock [3]int
	for n := 0; n < 3; n++ {
		if n > 0 {
			if len(rest) == 0 || rest[0] != ':' {
				return i, time.Time{}, false
			}
			rest = rest[1:]
		}
		if len(rest) < 2 || !isDigit(rest[0]) || !isDigit(rest[1]) {
			return i, time.Time{}, false
		}
		clock[n], _ = strconv.Atoi(rest[:2])
		rest = rest[2:]
	}
	if len(rest) > 0 && rest[0] == 'Z' {
		rest = rest[1:]
	}
	if clock[0] > 23 || clock[1] > 59 || clock[2] > 59 {
		return i, time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, clock[0], clock[1], clock[2], 0, time.UTC)
	return rest, t, true
}

// parseDateParts consumes YYYY-MM-DD and range-checks month 1-12 and
// day 1-31.
func parseDateParts(i string) (rest string, y, m, d int, ok bool) {
	rest = i
	var ys, ms, ds string
	if rest, ys, ok = takeDigits(rest); !ok || len(ys) != 4 {
		return i, 0, 0, 0, false
	}
	if len(rest) == 0 || rest[0] != '-' {
		return i, 0, 0, 0, false
	}
	if rest, ms, ok = takeDigits(rest[1:]); !ok || len(ms) != 2 {
		return i, 0, 0, 0, false
	}
	if len(rest) == 0 || rest[0] != '-' {
		return i, 0, 0, 0, false
	}
	if rest, ds, ok = takeDigits(rest[1:]); !ok || len(ds) != 2 {
		return i, 0, 0, 0, false
	}
	y, _ = strconv.Atoi(ys)
	m, _ = strconv.Atoi(ms)
	d, _ = strconv.Atoi(ds)
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return i, 0, 0, 0, false
	}
	return rest, y, m, d, true
}

func parseDate(i string) (string, ast.Atom, bool) {
	rest, y, m, d, ok := parseDateParts(i)
	if !ok {
		return i, ast.Atom{}, false
	}
	return rest, ast.Date(y, time.Month(m), d), true
}

// parseString consumes a quoted string. Both double and single quotes
// are accepted; the body runs to the next matching quote, no escapes.
func parseString(i string) (string, ast.Atom, bool) {
	if len(i) == 0 || (i[0] != '"' && i[0] != '\'') {
		return i, ast.Atom{}, false
	}
	quote := i[0]
	end := strings.IndexByte(i[1:], quote)
	if end < 0 {
		return i, ast.Atom{}, false
	}
	return i[end+2:], ast.String(i[1 : end+1]), true
}

func parseBoolean(i string) (string, ast.Atom, bool) {
	if rest, ok := keywordCI(i, "true"); ok {
		return rest, ast.Bool(true), true
	}
	if rest, ok := keywordCI(i, "false"); ok {
		return rest, ast.Bool(false), true
	}
	return i, ast.Atom{}, false
}

// parseSemver consumes N.N.N, three non-negative integer components.
func parseSemver(i string) (string, ast.Atom, bool) {
	rest := i
	var parts [3]string
	var ok bool
	for n := 0; n < 3; n++ {
		if n > 0 {
			if len(rest) == 0 || rest[0] != '.' {
				return i, ast.Atom{}, false
			}
			rest = rest[1:]
		}
		if rest, parts[n], ok = takeDigits(rest); !ok {
			return i, ast.Atom{}, false
		}
	}
	major, _ := strconv.ParseUint(parts[0], 10, 64)
	minor, _ := strconv.ParseUint(parts[1], 10, 64)
	patch, _ := strconv.ParseUint(parts[2], 10, 64)
	return rest, ast.Semver(major, minor, patch), true
}

// parseFloat consumes a signed decimal that must contain a dot, so plain
// integers stay integers.
func parseFloat(i string) (string, ast.Atom, bool) {
	rest := i
	if len(rest) > 0 && (rest[0] == '-' || rest[0] == '+') {
		rest = rest[1:]
	}
	rest, intPart, _ := takeDigits(rest)
	if len(rest) == 0 || rest[0] != '.' {
		return i, ast.Atom{}, false
	}
	rest, fracPart, _ := takeDigits(rest[1:])
	if intPart == "" && fracPart == "" {
		return i, ast.Atom{}, false
	}
	text := i[:len(i)-len(rest)]
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return i, ast.Atom{}, false
	}
	return rest, ast.Float(f), true
}

func parseInt(i string) (string, ast.Atom, bool) {
	rest := i
	if len(rest) > 0 && rest[0] == '-' {
		rest = rest[1:]
	}
	rest, _, ok := takeDigits(rest)
	if !ok {
		return i, ast.Atom{}, false
	}
	text := i[:len(i)-len(rest)]
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return i, ast.Atom{}, false
	}
	return rest, ast.Int(n), true
}

func parseVariable(i string) (string, ast.Atom, bool) {
	rest, name, ok := takeIdent(i)
	if !ok {
		return i, ast.Atom{}, false
	}
	return rest, ast.Variable(name), true
}

// parseAtom tries the literal grammars longest-match-first: a date-time
// before its date prefix, a date before a version, a version before a
// float, a float before its integer prefix. Bare identifiers end up as
// variables.
func parseAtom(i string) (string, ast.Atom, bool) {
	for _, p := range []func(string) (string, ast.Atom, bool){
		parseDateTime,
		parseDate,
		parseString,
		parseBoolean,
		parseSemver,
		parseFloat,
		parseInt,
		parseVariable,
	} {
		if rest, a, ok := p(i); ok {
			return rest, a, true
		}
	}
	return i, ast.Atom{}, false
}

// Atom interprets a raw string the way a literal would parse, falling
// back to a plain string. Callers use it to build evaluation contexts
// from untyped sources such as query parameters and test files.
func Atom(s string) ast.Atom {
	if rest, a, ok := parseAtom(s); ok && rest == "" {
		return a
	}
	return ast.String(s)
}
