package parse

import (
	"strconv"
	"strings"

	"github.com/TimurManjosov/flagfile/ast"
)

// parseExpr parses one full boolean expression: a leaf or parenthesized
// group, then any number of and/or combinations folded left to right.
// Both operators sit at the same precedence tier, so "a and b or c"
// groups as "(a and b) or c".
func parseExpr(i string) (string, ast.Node, bool) {
	rest, left, ok := parseTerm(i)
	if !ok {
		return i, nil, false
	}
	for {
		r := skipWS(rest)
		r, op, opOK := parseLogicOp(r)
		if !opOK {
			break
		}
		r = skipWS(r)
		r, right, rightOK := parseTerm(r)
		if !rightOK {
			break
		}
		left = &ast.LogicNode{Left: left, Op: op, Right: right}
		rest = r
	}
	return rest, left, true
}

// parseTerm is one operand of a logical combination: a (possibly
// negated) parenthesized group, a leaf condition, or a bare constant.
func parseTerm(i string) (string, ast.Node, bool) {
	if rest, n, ok := parseScope(i); ok {
		return rest, n, true
	}
	if rest, n, ok := parseLeaf(i); ok {
		return rest, n, true
	}
	return parseConstantNode(i)
}

func parseLogicOp(i string) (string, ast.LogicOp, bool) {
	if rest, ok := tagCI(i, "&&"); ok {
		return rest, ast.LogicAnd, true
	}
	if rest, ok := tagCI(i, "||"); ok {
		return rest, ast.LogicOr, true
	}
	if rest, ok := keywordCI(i, "and"); ok {
		return rest, ast.LogicAnd, true
	}
	if rest, ok := keywordCI(i, "or"); ok {
		return rest, ast.LogicOr, true
	}
	return i, 0, false
}

// parseScope parses "( expr )" with an optional leading "not" or "!".
func parseScope(i string) (string, ast.Node, bool) {
	rest := i
	negate := false
	if r, ok := keywordCI(rest, "not"); ok {
		rest, negate = skipWS(r), true
	} else if strings.HasPrefix(rest, "!") && !strings.HasPrefix(rest, "!~") && !strings.HasPrefix(rest, "!^~") {
		rest, negate = skipWS(rest[1:]), true
	}
	if !strings.HasPrefix(rest, "(") {
		return i, nil, false
	}
	rest = skipWS(rest[1:])
	rest, inner, ok := parseExpr(rest)
	if !ok {
		return i, nil, false
	}
	rest = skipWS(rest)
	if !strings.HasPrefix(rest, ")") {
		return i, nil, false
	}
	return rest[1:], &ast.Scope{Expr: inner, Negate: negate}, true
}

// parseLeaf parses a single atomic condition. Percentage and segment
// calls go first since their names would otherwise lex as variables.
func parseLeaf(i string) (string, ast.Node, bool) {
	if rest, n, ok := parsePercentage(i); ok {
		return rest, n, true
	}
	if rest, n, ok := parseSegmentRef(i); ok {
		return rest, n, true
	}
	if rest, n, ok := parseArray(i); ok {
		return rest, n, true
	}
	if rest, n, ok := parseCompare(i); ok {
		return rest, n, true
	}
	if rest, n, ok := parseMatch(i); ok {
		return rest, n, true
	}
	return i, nil, false
}

// parseConstantNode wraps a bare literal, including a bare identifier,
// as a Constant. A lone variable name evaluates as a boolean lookup.
func parseConstantNode(i string) (string, ast.Node, bool) {
	rest, a, ok := parseAtom(i)
	if !ok {
		return i, nil, false
	}
	return rest, &ast.Constant{Value: a}, true
}

// parseOperand parses the resolvable left side of an operator: a
// coalesce call, an upper/lower/now call, or a plain variable.
func parseOperand(i string) (string, ast.Node, bool) {
	if rest, n, ok := parseCoalesce(i); ok {
		return rest, n, true
	}
	if rest, n, ok := parseFunction(i); ok {
		return rest, n, true
	}
	rest, name, ok := takeIdent(i)
	if !ok {
		return i, nil, false
	}
	return rest, &ast.VariableNode{Name: name}, true
}

func parseFunction(i string) (string, ast.Node, bool) {
	for _, c := range []struct {
		word string
		fn   ast.FnName
	}{
		{"upper", ast.FnUpper},
		{"lower", ast.FnLower},
		{"now", ast.FnNow},
	} {
		rest, ok := keywordCI(i, c.word)
		if !ok {
			continue
		}
		rest = skipWS(rest)
		if !strings.HasPrefix(rest, "(") {
			continue
		}
		rest = skipWS(rest[1:])
		var arg ast.Node
		if c.fn != ast.FnNow {
			var argOK bool
			rest, arg, argOK = parseOperand(rest)
			if !argOK {
				continue
			}
			rest = skipWS(rest)
		}
		if !strings.HasPrefix(rest, ")") {
			continue
		}
		return rest[1:], &ast.Function{Fn: c.fn, Arg: arg}, true
	}
	return i, nil, false
}

// parseCoalesce parses coalesce(a, b, ...). Identifier arguments become
// variable lookups, anything else is a literal default.
func parseCoalesce(i string) (string, ast.Node, bool) {
	rest, ok := keywordCI(i, "coalesce")
	if !ok {
		return i, nil, false
	}
	rest = skipWS(rest)
	if !strings.HasPrefix(rest, "(") {
		return i, nil, false
	}
	rest = skipWS(rest[1:])
	var args []ast.Node
	for {
		r, a, aOK := parseAtom(rest)
		if !aOK {
			return i, nil, false
		}
		if a.IsVariable() {
			args = append(args, &ast.VariableNode{Name: a.Text()})
		} else {
			args = append(args, &ast.Constant{Value: a})
		}
		rest = skipWS(r)
		if strings.HasPrefix(rest, ",") {
			rest = skipWS(rest[1:])
			continue
		}
		break
	}
	if !strings.HasPrefix(rest, ")") {
		return i, nil, false
	}
	if len(args) == 0 {
		return i, nil, false
	}
	return rest[1:], &ast.Coalesce{Args: args}, true
}

func parseCompareOp(i string) (string, ast.CompareOp, bool) {
	for _, c := range []struct {
		tok string
		op  ast.CompareOp
	}{
		{"==", ast.OpEq},
		{"!=", ast.OpNotEq},
		{"<>", ast.OpNotEq},
		{"<=", ast.OpLessEq},
		{">=", ast.OpMoreEq},
		{"<", ast.OpLess},
		{">", ast.OpMore},
		{"=", ast.OpEq},
	} {
		if strings.HasPrefix(i, c.tok) {
			return i[len(c.tok):], c.op, true
		}
	}
	return i, 0, false
}

func parseCompare(i string) (string, ast.Node, bool) {
	rest, left, ok := parseOperand(i)
	if !ok {
		return i, nil, false
	}
	rest = skipWS(rest)
	rest, op, ok := parseCompareOp(rest)
	if !ok {
		return i, nil, false
	}
	rest = skipWS(rest)
	rest, right, ok := parseAtom(rest)
	if !ok {
		return i, nil, false
	}
	return rest, &ast.CompareNode{Left: left, Op: op, Right: &ast.Constant{Value: right}}, true
}

func parseMatchOp(i string) (string, ast.MatchOp, bool) {
	for _, c := range []struct {
		tok string
		op  ast.MatchOp
	}{
		{"!^~", ast.MatchNotStartsWith},
		{"!~$", ast.MatchNotEndsWith},
		{"!~", ast.MatchNotContains},
		{"^~", ast.MatchStartsWith},
		{"~$", ast.MatchEndsWith},
		{"~", ast.MatchContains},
	} {
		if strings.HasPrefix(i, c.tok) {
			return i[len(c.tok):], c.op, true
		}
	}
	return i, 0, false
}

// parseRegex parses /pattern/. The body runs to the next slash; regex
// literals only appear as the right operand of a match.
func parseRegex(i string) (string, ast.Atom, bool) {
	if !strings.HasPrefix(i, "/") {
		return i, ast.Atom{}, false
	}
	end := strings.IndexByte(i[1:], '/')
	if end < 0 {
		return i, ast.Atom{}, false
	}
	return i[end+2:], ast.Regex(i[1 : end+1]), true
}

func parseMatch(i string) (string, ast.Node, bool) {
	rest, left, ok := parseOperand(i)
	if !ok {
		return i, nil, false
	}
	rest = skipWS(rest)
	rest, op, ok := parseMatchOp(rest)
	if !ok {
		return i, nil, false
	}
	rest = skipWS(rest)
	if r, re, reOK := parseRegex(rest); reOK {
		return r, &ast.MatchNode{Left: left, Op: op, Right: &ast.Constant{Value: re}}, true
	}
	rest, right, ok := parseAtom(rest)
	if !ok {
		return i, nil, false
	}
	return rest, &ast.MatchNode{Left: left, Op: op, Right: &ast.Constant{Value: right}}, true
}

func parseArrayOp(i string) (string, ast.ArrayOp, bool) {
	if rest, ok := keywordCI(i, "not"); ok {
		rest = skipWS(rest)
		if rest, ok = keywordCI(rest, "in"); ok {
			return rest, ast.ArrayNotIn, true
		}
		return i, 0, false
	}
	if rest, ok := keywordCI(i, "in"); ok {
		return rest, ast.ArrayIn, true
	}
	return i, 0, false
}

// parseList parses (a, b, c), a parenthesized comma-separated run of
// literals.
func parseList(i string) (string, ast.Atom, bool) {
	if !strings.HasPrefix(i, "(") {
		return i, ast.Atom{}, false
	}
	rest := skipWS(i[1:])
	var items []ast.Atom
	for {
		r, a, ok := parseAtom(rest)
		if !ok {
			return i, ast.Atom{}, false
		}
		items = append(items, a)
		rest = skipWS(r)
		if strings.HasPrefix(rest, ",") {
			rest = skipWS(rest[1:])
			continue
		}
		break
	}
	if !strings.HasPrefix(rest, ")") {
		return i, ast.Atom{}, false
	}
	return rest[1:], ast.List(items), true
}

// parseArray parses membership tests. The left side may be a resolvable
// operand or a plain literal, the right side a literal list or a context
// variable holding one.
func parseArray(i string) (string, ast.Node, bool) {
	rest, left, ok := parseOperand(i)
	if !ok {
		var a ast.Atom
		rest, a, ok = parseAtom(i)
		if !ok || a.IsVariable() {
			return i, nil, false
		}
		left = &ast.Constant{Value: a}
	}
	rest = skipWS(rest)
	rest, op, ok := parseArrayOp(rest)
	if !ok {
		return i, nil, false
	}
	rest = skipWS(rest)
	if r, list, listOK := parseList(rest); listOK {
		return r, &ast.ArrayNode{Left: left, Op: op, Right: &ast.Constant{Value: list}}, true
	}
	rest, name, ok := takeIdent(rest)
	if !ok {
		return i, nil, false
	}
	return rest, &ast.ArrayNode{Left: left, Op: op, Right: &ast.VariableNode{Name: name}}, true
}

func parseSegmentRef(i string) (string, ast.Node, bool) {
	rest, ok := keywordCI(i, "segment")
	if !ok {
		return i, nil, false
	}
	rest = skipWS(rest)
	if !strings.HasPrefix(rest, "(") {
		return i, nil, false
	}
	rest = skipWS(rest[1:])
	rest, name, ok := takeIdent(rest)
	if !ok {
		return i, nil, false
	}
	rest = skipWS(rest)
	if !strings.HasPrefix(rest, ")") {
		return i, nil, false
	}
	return rest[1:], &ast.SegmentRef{Name: name}, true
}

// parseRate parses the N% or N.N% rate of a percentage call.
func parseRate(i string) (string, float64, bool) {
	rest, digits, ok := takeDigits(i)
	if !ok {
		return i, 0, false
	}
	text := digits
	if strings.HasPrefix(rest, ".") {
		r, frac, fracOK := takeDigits(rest[1:])
		if fracOK {
			text, rest = text+"."+frac, r
		}
	}
	rate, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return i, 0, false
	}
	return rest, rate, true
}

// parseSalt parses the optional third percentage argument, either a
// quoted string or a bare token of letters, digits, dashes and
// underscores.
func parseSalt(i string) (string, string, bool) {
	if rest, a, ok := parseString(i); ok {
		return rest, a.Text(), true
	}
	n := 0
	for n < len(i) && (isIdentChar(i[n]) || i[n] == '-') {
		n++
	}
	if n == 0 {
		return i, "", false
	}
	return i[n:], i[:n], true
}

// parsePercentage parses percentage(rate%, field[, salt]).
func parsePercentage(i string) (string, ast.Node, bool) {
	rest, ok := keywordCI(i, "percentage")
	if !ok {
		return i, nil, false
	}
	rest = skipWS(rest)
	if !strings.HasPrefix(rest, "(") {
		return i, nil, false
	}
	rest = skipWS(rest[1:])
	rest, rate, ok := parseRate(rest)
	if !ok {
		return i, nil, false
	}
	rest = skipWS(rest)
	if !strings.HasPrefix(rest, "%") {
		return i, nil, false
	}
	rest = skipWS(rest[1:])
	if !strings.HasPrefix(rest, ",") {
		return i, nil, false
	}
	rest = skipWS(rest[1:])
	rest, field, ok := parseOperand(rest)
	if !ok {
		return i, nil, false
	}
	rest = skipWS(rest)
	salt := ""
	if strings.HasPrefix(rest, ",") {
		r := skipWS(rest[1:])
		r, s, saltOK := parseSalt(r)
		if !saltOK {
			return i, nil, false
		}
		salt, rest = s, skipWS(r)
	}
	if !strings.HasPrefix(rest, ")") {
		return i, nil, false
	}
	return rest[1:], &ast.Percentage{Rate: rate, Field: field, Salt: salt}, true
}
