package parse

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/TimurManjosov/flagfile/ast"
)

// Error is a parse failure with the position of the first byte the
// parser could not consume and a short excerpt of the remainder.
type Error struct {
	Line     int
	Column   int
	Offset   int
	Remained string
}

func (e *Error) Error() string {
	excerpt := e.Remained
	if idx := strings.IndexByte(excerpt, '\n'); idx >= 0 {
		excerpt = excerpt[:idx]
	}
	if len(excerpt) > 60 {
		excerpt = excerpt[:60] + "..."
	}
	return fmt.Sprintf("parse error at line %d, column %d: unexpected input %q", e.Line, e.Column, excerpt)
}

// errAt builds an Error for the unconsumed remainder rest of src.
func errAt(src, rest string) *Error {
	offset := len(src) - len(rest)
	consumed := src[:offset]
	line := 1 + strings.Count(consumed, "\n")
	column := offset - strings.LastIndexByte(consumed, '\n')
	return &Error{Line: line, Column: column, Offset: offset, Remained: rest}
}

// Expression parses a single rule expression. The whole input must be
// consumed; trailing text is a parse error.
func Expression(src string) (ast.Node, error) {
	rest, node, ok := parseExpr(skipWS(src))
	if !ok {
		return nil, errAt(src, src)
	}
	if rest = skipWS(rest); rest != "" {
		return nil, errAt(src, rest)
	}
	return node, nil
}

// skipInsignificant drops whitespace, //-to-end-of-line comments and
// /* */ block comments. Block comments do not nest; an unterminated one
// is left in place for the caller to report.
func skipInsignificant(i string) string {
	for {
		trimmed := skipWS(i)
		switch {
		case strings.HasPrefix(trimmed, "//"):
			if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
				i = trimmed[idx+1:]
			} else {
				i = ""
			}
		case strings.HasPrefix(trimmed, "/*"):
			idx := strings.Index(trimmed[2:], "*/")
			if idx < 0 {
				return trimmed
			}
			i = trimmed[2+idx+2:]
		default:
			return trimmed
		}
	}
}

// parseFlagName consumes an FF- or FF_ prefixed flag name.
func parseFlagName(i string) (string, string, bool) {
	if !strings.HasPrefix(i, "FF") {
		return i, "", false
	}
	if len(i) < 3 || (i[2] != '-' && i[2] != '_') {
		return i, "", false
	}
	n := 3
	for n < len(i) && (isIdentChar(i[n]) || i[n] == '-') {
		n++
	}
	return i[n:], i[:n], true
}

// scanJSONBody consumes a balanced {...} block, counting brace depth and
// treating quoted strings as opaque so braces inside them do not
// desynchronize the scan.
func scanJSONBody(i string) (string, string, bool) {
	if !strings.HasPrefix(i, "{") {
		return i, "", false
	}
	depth := 0
	inString := false
	for n := 0; n < len(i); n++ {
		c := i[n]
		if inString {
			switch c {
			case '\\':
				n++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i[n+1:], i[:n+1], true
			}
		}
	}
	return i, "", false
}

// parseReturnValue parses a rule consequent: boolean, json({...}),
// quoted string, or integer. An integer followed directly by a dot is
// rejected so floats are not half-consumed.
func parseReturnValue(i string) (string, ast.FlagValue, bool) {
	if rest, a, ok := parseBoolean(i); ok {
		return rest, ast.OnOff(a.Bool()), true
	}
	if rest, ok := keywordCI(i, "json"); ok {
		rest = skipWS(rest)
		if !strings.HasPrefix(rest, "(") {
			return i, nil, false
		}
		rest = skipWS(rest[1:])
		rest, body, bodyOK := scanJSONBody(rest)
		if !bodyOK {
			return i, nil, false
		}
		rest = skipWS(rest)
		if !strings.HasPrefix(rest, ")") {
			return i, nil, false
		}
		var decoded any
		if err := json.Unmarshal([]byte(body), &decoded); err != nil {
			return i, nil, false
		}
		return rest[1:], ast.JSON{Value: decoded}, true
	}
	if rest, a, ok := parseString(i); ok {
		return rest, ast.Str(a.Text()), true
	}
	if rest, a, ok := parseInt(i); ok {
		if strings.HasPrefix(rest, ".") {
			return i, nil, false
		}
		return rest, ast.Integer(a.Int64()), true
	}
	return i, nil, false
}

// parseArrow consumes "->" with optional surrounding whitespace already
// handled by the caller.
func parseArrow(i string) (string, bool) {
	if strings.HasPrefix(i, "->") {
		return i[2:], true
	}
	return i, false
}

// directive consumes "@name" only when the name ends at a non-ident
// boundary, so @environment never matches @env.
func directive(i, name string) (string, bool) {
	rest, ok := strings.CutPrefix(i, "@"+name)
	if !ok {
		return i, false
	}
	if len(rest) > 0 && isIdentChar(rest[0]) {
		return i, false
	}
	return rest, true
}

// parseRule parses one entry of a rule list: an @env rule, a guarded
// "expr -> value" rule, or a bare terminal value.
func parseRule(i string) (string, ast.Rule, bool) {
	if after, ok := directive(i, "env"); ok {
		rest := skipWS(after)
		rest, env, ok := takeIdent(rest)
		if !ok {
			return i, nil, false
		}
		rest = skipWS(rest)
		if r, ok := parseArrow(rest); ok {
			r = skipWS(r)
			r, v, vOK := parseReturnValue(r)
			if !vOK {
				return i, nil, false
			}
			return r, &ast.EnvRule{Env: env, Rules: []ast.Rule{&ast.ValueRule{Value: v}}}, true
		}
		if strings.HasPrefix(rest, "{") {
			r, rules, ok := parseRuleList(rest[1:])
			if !ok {
				return i, nil, false
			}
			return r, &ast.EnvRule{Env: env, Rules: rules}, true
		}
		return i, nil, false
	}

	if rest, expr, ok := parseExpr(i); ok {
		r := skipWS(rest)
		if r, arrowOK := parseArrow(r); arrowOK {
			r = skipWS(r)
			r, v, vOK := parseReturnValue(r)
			if vOK {
				return r, &ast.ExprRule{Expr: expr, Value: v}, true
			}
			return i, nil, false
		}
	}

	rest, v, ok := parseReturnValue(i)
	if !ok {
		return i, nil, false
	}
	return rest, &ast.ValueRule{Value: v}, true
}

// parseRuleList parses rules up to the closing brace. The opening brace
// has already been consumed.
func parseRuleList(i string) (string, []ast.Rule, bool) {
	var rules []ast.Rule
	rest := i
	for {
		rest = skipInsignificant(rest)
		if strings.HasPrefix(rest, "}") {
			return rest[1:], rules, true
		}
		if rest == "" {
			return i, nil, false
		}
		r, rule, ok := parseRule(rest)
		if !ok {
			return i, nil, false
		}
		rules = append(rules, rule)
		rest = r
	}
}

// parseSegmentDef parses @segment name { expr }.
func parseSegmentDef(i string) (rest, name string, expr ast.Node, ok bool) {
	after, ok := directive(i, "segment")
	if !ok {
		return i, "", nil, false
	}
	rest = skipWS(after)
	rest, name, ok = takeIdent(rest)
	if !ok {
		return i, "", nil, false
	}
	rest = skipWS(rest)
	if !strings.HasPrefix(rest, "{") {
		return i, "", nil, false
	}
	rest = skipWS(rest[1:])
	rest, expr, ok = parseExpr(rest)
	if !ok {
		return i, "", nil, false
	}
	rest = skipWS(rest)
	if !strings.HasPrefix(rest, "}") {
		return i, "", nil, false
	}
	return rest[1:], name, expr, true
}

// parseAnnotations consumes a run of metadata annotations ahead of a
// flag definition. @env and @segment are not metadata and stop the run.
func parseAnnotations(i string) (string, ast.FlagMetadata, bool) {
	var meta ast.FlagMetadata
	rest := i
	for {
		rest = skipInsignificant(rest)
		if _, isEnv := directive(rest, "env"); isEnv {
			return rest, meta, true
		}
		if _, isSeg := directive(rest, "segment"); isSeg {
			return rest, meta, true
		}
		if !strings.HasPrefix(rest, "@") {
			return rest, meta, true
		}
		r, keyword, ok := takeIdent(rest[1:])
		if !ok {
			return rest, meta, false
		}
		r = skipWS(r)
		switch keyword {
		case "owner", "ticket", "description", "deprecated", "type":
			var text string
			if r2, a, sOK := parseString(r); sOK {
				r, text = r2, a.Text()
			} else if keyword == "type" {
				var ident string
				if r, ident, ok = takeIdent(r); !ok {
					return rest, meta, false
				}
				text = ident
			} else {
				return rest, meta, false
			}
			switch keyword {
			case "owner":
				meta.Owner = text
			case "ticket":
				meta.Ticket = text
			case "description":
				meta.Description = text
			case "deprecated":
				meta.Deprecated = text
			case "type":
				meta.Type = text
			}
		case "expires":
			r2, y, m, d, dOK := parseDateParts(r)
			if !dOK {
				return rest, meta, false
			}
			t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
			meta.Expires = &t
			r = r2
		case "requires":
			r2, name, nOK := parseFlagName(r)
			if !nOK {
				return rest, meta, false
			}
			meta.Requires = append(meta.Requires, name)
			r = r2
		case "test":
			line := r
			if idx := strings.IndexByte(line, '\n'); idx >= 0 {
				line, r = line[:idx], r[idx+1:]
			} else {
				r = ""
			}
			meta.Tests = append(meta.Tests, strings.TrimSpace(line))
		default:
			return rest, meta, false
		}
		rest = r
	}
}

// parseFlag parses a short-form or block-form flag definition.
func parseFlag(i string, meta ast.FlagMetadata) (string, string, *ast.FlagDefinition, bool) {
	rest, name, ok := parseFlagName(i)
	if !ok {
		return i, "", nil, false
	}
	rest = skipWS(rest)
	if r, arrowOK := parseArrow(rest); arrowOK {
		r = skipWS(r)
		r, v, vOK := parseReturnValue(r)
		if !vOK {
			return i, "", nil, false
		}
		def := &ast.FlagDefinition{Rules: []ast.Rule{&ast.ValueRule{Value: v}}, Metadata: meta}
		return r, name, def, true
	}
	if strings.HasPrefix(rest, "{") {
		r, rules, rOK := parseRuleList(rest[1:])
		if !rOK {
			return i, "", nil, false
		}
		def := &ast.FlagDefinition{Rules: rules, Metadata: meta}
		return r, name, def, true
	}
	return i, "", nil, false
}

// File parses a complete Flagfile document into flag and segment tables.
// A flag defined twice keeps its last definition and the name is noted
// in Redefined for lint reporting.
func File(src string) (*ast.FlagFile, error) {
	ff := &ast.FlagFile{
		Flags:    make(map[string]*ast.FlagDefinition),
		Segments: make(map[string]ast.Node),
	}
	rest := src
	for {
		rest = skipInsignificant(rest)
		if rest == "" {
			return ff, nil
		}
		if r, name, expr, ok := parseSegmentDef(rest); ok {
			ff.Segments[name] = expr
			rest = r
			continue
		}
		r, meta, ok := parseAnnotations(rest)
		if !ok {
			return nil, errAt(src, r)
		}
		r, name, def, ok := parseFlag(r, meta)
		if !ok {
			return nil, errAt(src, r)
		}
		if _, exists := ff.Flags[name]; exists {
			ff.Redefined = append(ff.Redefined, name)
		} else {
			ff.Order = append(ff.Order, name)
		}
		ff.Flags[name] = def
		rest = r
	}
}
