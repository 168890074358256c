// Package testfile runs flag assertions of the form
//
//	FF-name(key=val, key=val) == EXPECTED
//
// against a parsed flag file. Assertions come from three places: a
// dedicated tests file, "// @test" comment lines inside the flag file,
// and @test metadata annotations attached to flags.
package testfile

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"github.com/TimurManjosov/flagfile/ast"
	"github.com/TimurManjosov/flagfile/eval"
	"github.com/TimurManjosov/flagfile/parse"
)

// Assertion is one parsed test line.
type Assertion struct {
	Flag     string
	Context  eval.Context
	Expected string
	Line     int // 1-based source line, 0 when unknown
	Source   string
}

// Outcome of running one assertion.
type Outcome struct {
	Assertion Assertion
	Passed    bool
	Detail    string // failure detail: "flag not found", "no rule matched", or empty
}

// Report summarizes a run.
type Report struct {
	Outcomes []Outcome
	Passed   int
	Failed   int
}

// ParseLine parses one assertion line. The context is optional:
// "FF-name == true" asserts with an empty context. Returns false for
// lines that are not assertions.
func ParseLine(line string) (Assertion, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Assertion{}, false
	}
	open := strings.IndexByte(line, '(')
	if open < 0 {
		eq := strings.Index(line, "==")
		if eq < 0 {
			return Assertion{}, false
		}
		return Assertion{
			Flag:     strings.TrimSpace(line[:eq]),
			Context:  eval.Context{},
			Expected: strings.TrimSpace(line[eq+2:]),
			Source:   line,
		}, true
	}
	end := matchingParen(line, open)
	if end < 0 {
		return Assertion{}, false
	}
	rest := line[end+1:]
	eq := strings.Index(rest, "==")
	if eq < 0 {
		return Assertion{}, false
	}
	ctx := eval.Context{}
	for _, kv := range splitParams(line[open+1 : end]) {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		ctx[strings.TrimSpace(key)] = contextAtom(strings.TrimSpace(value))
	}
	return Assertion{
		Flag:     line[:open],
		Context:  ctx,
		Expected: strings.TrimSpace(rest[eq+2:]),
		Source:   line,
	}, true
}

// matchingParen finds the ')' closing the '(' at open, treating quoted
// strings and bracketed lists as opaque.
func matchingParen(s string, open int) int {
	depth := 0
	inQuote := false
	brackets := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case '[':
			if !inQuote {
				brackets++
			}
		case ']':
			if !inQuote {
				brackets--
			}
		case '(':
			if !inQuote && brackets == 0 {
				depth++
			}
		case ')':
			if !inQuote && brackets == 0 {
				depth--
				if depth == 0 {
					return i
				}
			}
		}
	}
	return -1
}

// splitParams splits on commas outside quotes and brackets.
func splitParams(s string) []string {
	var parts []string
	inQuote := false
	brackets := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case '[':
			if !inQuote {
				brackets++
			}
		case ']':
			if !inQuote {
				brackets--
			}
		case ',':
			if !inQuote && brackets == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

// contextAtom interprets a raw context value: a bracketed list becomes a
// List atom, anything else parses the way a literal would.
func contextAtom(s string) ast.Atom {
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		var items []ast.Atom
		for _, part := range strings.Split(s[1:len(s)-1], ",") {
			items = append(items, contextAtom(strings.TrimSpace(part)))
		}
		return ast.List(items)
	}
	if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) && len(s) >= 2 {
		return ast.String(s[1 : len(s)-1])
	}
	return parse.Atom(s)
}

// Matches reports whether a resolved value satisfies the expected text.
// Booleans compare case-insensitively, strings may be quoted, JSON
// expectations compare structurally.
func Matches(value ast.FlagValue, expected string) bool {
	switch v := value.(type) {
	case ast.OnOff:
		switch strings.ToUpper(expected) {
		case "TRUE":
			return bool(v)
		case "FALSE":
			return !bool(v)
		}
		return false
	case ast.Integer:
		n, err := strconv.ParseInt(expected, 10, 64)
		return err == nil && n == int64(v)
	case ast.Str:
		if strings.HasPrefix(expected, `"`) && strings.HasSuffix(expected, `"`) && len(expected) >= 2 {
			expected = expected[1 : len(expected)-1]
		}
		return string(v) == expected
	case ast.JSON:
		var want any
		if err := json.Unmarshal([]byte(expected), &want); err != nil {
			return false
		}
		return reflect.DeepEqual(v.Value, want)
	}
	return false
}

// ParseFile parses a tests file into assertions, skipping blank lines
// and comments.
func ParseFile(src string) []Assertion {
	var out []Assertion
	for i, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		a, ok := ParseLine(line)
		if !ok {
			continue
		}
		a.Line = i + 1
		out = append(out, a)
	}
	return out
}

// InlineAnnotations extracts "// @test ..." assertion comments from flag
// file source.
func InlineAnnotations(src string) []Assertion {
	var out []Assertion
	for i, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		rest, ok := strings.CutPrefix(line, "// @test ")
		if !ok {
			continue
		}
		a, lineOK := ParseLine(rest)
		if !lineOK {
			continue
		}
		a.Line = i + 1
		out = append(out, a)
	}
	return out
}

// MetadataAnnotations collects the @test assertions attached to flag
// definitions, in flag order.
func MetadataAnnotations(f *ast.FlagFile) []Assertion {
	var out []Assertion
	for _, name := range f.Order {
		for _, assertion := range f.Flags[name].Metadata.Tests {
			if a, ok := ParseLine(assertion); ok {
				out = append(out, a)
			}
		}
	}
	return out
}

// Run evaluates assertions against the flag file.
func Run(f *ast.FlagFile, assertions []Assertion, env string) Report {
	var report Report
	for _, a := range assertions {
		outcome := Outcome{Assertion: a}
		if _, ok := f.Lookup(a.Flag); !ok {
			outcome.Detail = "flag not found"
			report.Failed++
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}
		res := eval.ResolveFlag(f, a.Flag, a.Context, env)
		switch {
		case !res.Found:
			outcome.Detail = "no rule matched"
			report.Failed++
		case Matches(res.Value, a.Expected):
			outcome.Passed = true
			report.Passed++
		default:
			report.Failed++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}
	return report
}
