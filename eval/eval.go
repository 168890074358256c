// Package eval walks rule expressions against a caller-supplied context
// and resolves flags to their values. Evaluation never fails: missing
// context fields, unknown segments, invalid patterns and incomparable
// type pairs all read as "condition is false". The only error surface is
// parse time; by the time an expression reaches this package it either
// matches or it does not.
package eval

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/TimurManjosov/flagfile/ast"
	"github.com/TimurManjosov/flagfile/rollout"
)

// Context maps field names to the atoms rules resolve variables against.
type Context map[string]ast.Atom

// regexCache holds compiled match patterns keyed by source text.
// Patterns come from flag files, which are small and static per load,
// so the cache is never evicted.
var regexCache sync.Map

func compilePattern(pattern string) (*regexp.Regexp, bool) {
	if cached, ok := regexCache.Load(pattern); ok {
		re, _ := cached.(*regexp.Regexp)
		return re, re != nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		// Cache the failure too; a bad pattern stays bad.
		regexCache.Store(pattern, (*regexp.Regexp)(nil))
		return nil, false
	}
	regexCache.Store(pattern, re)
	return re, true
}

type evaluator struct {
	ctx      Context
	flagName string
	segments map[string]ast.Node
}

// Eval reports whether the expression holds for the given context.
// flagName feeds percentage bucketing, segments resolves segment()
// references; both may be zero values for expressions that use neither.
func Eval(node ast.Node, ctx Context, flagName string, segments map[string]ast.Node) bool {
	e := &evaluator{ctx: ctx, flagName: flagName, segments: segments}
	return e.eval(node)
}

// resolve reduces an operand node to an atom. The second result is
// false when a variable is absent from the context.
func (e *evaluator) resolve(node ast.Node) (ast.Atom, bool) {
	switch n := node.(type) {
	case *ast.VariableNode:
		a, ok := e.ctx[n.Name]
		return a, ok
	case *ast.Constant:
		if n.Value.IsVariable() {
			a, ok := e.ctx[n.Value.Text()]
			return a, ok
		}
		return n.Value, true
	case *ast.Function:
		switch n.Fn {
		case ast.FnNow:
			return ast.DateTime(time.Now().UTC()), true
		case ast.FnUpper:
			a, ok := e.resolve(n.Arg)
			if !ok {
				return ast.Atom{}, false
			}
			return ast.String(strings.ToUpper(a.String())), true
		case ast.FnLower:
			a, ok := e.resolve(n.Arg)
			if !ok {
				return ast.Atom{}, false
			}
			return ast.String(strings.ToLower(a.String())), true
		}
		return ast.Atom{}, false
	case *ast.Coalesce:
		for _, arg := range n.Args {
			switch v := arg.(type) {
			case *ast.VariableNode:
				if a, ok := e.ctx[v.Name]; ok {
					return a, true
				}
			case *ast.Constant:
				return v.Value, true
			}
		}
		return ast.Atom{}, false
	}
	return ast.Atom{}, false
}

func (e *evaluator) eval(node ast.Node) bool {
	switch n := node.(type) {
	case *ast.Constant:
		a, ok := e.resolve(n)
		if !ok {
			return false
		}
		return a.Kind() == ast.KindBool && a.Bool()
	case *ast.VariableNode:
		a, ok := e.resolve(n)
		if !ok {
			return false
		}
		return a.Kind() == ast.KindBool && a.Bool()
	case *ast.CompareNode:
		return e.evalCompare(n)
	case *ast.MatchNode:
		return e.evalMatch(n)
	case *ast.ArrayNode:
		return e.evalArray(n)
	case *ast.LogicNode:
		if n.Op == ast.LogicAnd {
			return e.eval(n.Left) && e.eval(n.Right)
		}
		return e.eval(n.Left) || e.eval(n.Right)
	case *ast.Scope:
		return e.eval(n.Expr) != n.Negate
	case *ast.SegmentRef:
		expr, ok := e.segments[n.Name]
		if !ok {
			return false
		}
		return e.eval(expr)
	case *ast.Percentage:
		key, ok := e.resolve(n.Field)
		if !ok {
			return false
		}
		return rollout.Enabled(n.Rate, e.flagName, n.Salt, key.String())
	case *ast.Function, *ast.Coalesce:
		a, ok := e.resolve(n)
		if !ok {
			return false
		}
		return a.Kind() == ast.KindBool && a.Bool()
	}
	return false
}

func constantAtom(node ast.Node) (ast.Atom, bool) {
	c, ok := node.(*ast.Constant)
	if !ok {
		return ast.Atom{}, false
	}
	return c.Value, true
}

func (e *evaluator) evalCompare(n *ast.CompareNode) bool {
	left, ok := e.resolve(n.Left)
	if !ok {
		return false
	}
	right, ok := constantAtom(n.Right)
	if !ok {
		return false
	}
	switch n.Op {
	case ast.OpEq:
		return ast.Equal(left, right)
	case ast.OpNotEq:
		return !ast.Equal(left, right)
	case ast.OpLess:
		cmp, ok := ast.Compare(left, right)
		return ok && cmp == ast.Less
	case ast.OpLessEq:
		cmp, ok := ast.Compare(left, right)
		return ok && cmp != ast.Greater
	case ast.OpMore:
		cmp, ok := ast.Compare(left, right)
		return ok && cmp == ast.Greater
	case ast.OpMoreEq:
		cmp, ok := ast.Compare(left, right)
		return ok && cmp != ast.Less
	}
	return false
}

func (e *evaluator) evalMatch(n *ast.MatchNode) bool {
	left, ok := e.resolve(n.Left)
	if !ok {
		return false
	}
	right, ok := constantAtom(n.Right)
	if !ok {
		return false
	}
	subject := left.String()
	var matched bool
	if right.Kind() == ast.KindRegex {
		re, reOK := compilePattern(right.Text())
		matched = reOK && re.MatchString(subject)
	} else {
		needle := right.String()
		switch n.Op {
		case ast.MatchContains, ast.MatchNotContains:
			matched = strings.Contains(subject, needle)
		case ast.MatchStartsWith, ast.MatchNotStartsWith:
			matched = strings.HasPrefix(subject, needle)
		case ast.MatchEndsWith, ast.MatchNotEndsWith:
			matched = strings.HasSuffix(subject, needle)
		}
	}
	switch n.Op {
	case ast.MatchNotContains, ast.MatchNotStartsWith, ast.MatchNotEndsWith:
		return !matched
	}
	return matched
}

// evalArray handles membership in both directions: a resolved field
// against a literal list, or a literal against a list-valued context
// variable.
func (e *evaluator) evalArray(n *ast.ArrayNode) bool {
	left, ok := e.resolve(n.Left)
	if !ok {
		return false
	}
	right, ok := e.resolve(n.Right)
	if !ok {
		return false
	}
	// A non-list right side is a non-match for both directions rather
	// than an inverted miss for "not in".
	if right.Kind() != ast.KindList {
		return false
	}
	var found bool
	for _, item := range right.Items() {
		if ast.Equal(left, item) {
			found = true
			break
		}
	}
	if n.Op == ast.ArrayNotIn {
		return !found
	}
	return found
}
