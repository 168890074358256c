package lint

import (
	"sort"

	"github.com/TimurManjosov/flagfile/ast"
)

// walkExpr visits every node of an expression tree depth-first.
func walkExpr(node ast.Node, visit func(ast.Node)) {
	if node == nil {
		return
	}
	visit(node)
	switch n := node.(type) {
	case *ast.LogicNode:
		walkExpr(n.Left, visit)
		walkExpr(n.Right, visit)
	case *ast.CompareNode:
		walkExpr(n.Left, visit)
		walkExpr(n.Right, visit)
	case *ast.MatchNode:
		walkExpr(n.Left, visit)
		walkExpr(n.Right, visit)
	case *ast.ArrayNode:
		walkExpr(n.Left, visit)
		walkExpr(n.Right, visit)
	case *ast.Scope:
		walkExpr(n.Expr, visit)
	case *ast.Function:
		walkExpr(n.Arg, visit)
	case *ast.Percentage:
		walkExpr(n.Field, visit)
	case *ast.Coalesce:
		for _, arg := range n.Args {
			walkExpr(arg, visit)
		}
	}
}

// walkRules visits every guard expression in a rule list, descending
// into env blocks.
func walkRules(rules []ast.Rule, visit func(ast.Node)) {
	for _, rule := range rules {
		switch r := rule.(type) {
		case *ast.ExprRule:
			walkExpr(r.Expr, visit)
		case *ast.EnvRule:
			walkRules(r.Rules, visit)
		}
	}
}

func segmentRefs(node ast.Node) []string {
	var refs []string
	walkExpr(node, func(n ast.Node) {
		if seg, ok := n.(*ast.SegmentRef); ok {
			refs = append(refs, seg.Name)
		}
	})
	return refs
}

// detectCycle walks the dependency edges depth-first and reports the
// first back edge as "a -> b -> a".
func detectCycle(node string, edges map[string][]string, visited, stack map[string]bool) (string, bool) {
	visited[node] = true
	stack[node] = true
	for _, dep := range edges[node] {
		if stack[dep] {
			return node + " -> " + dep, true
		}
		if !visited[dep] {
			if path, found := detectCycle(dep, edges, visited, stack); found {
				return node + " -> " + path, true
			}
		}
	}
	delete(stack, node)
	return "", false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func checkCircularDeps(f *ast.FlagFile) []Warning {
	edges := make(map[string][]string)
	for name, def := range f.Flags {
		if len(def.Metadata.Requires) > 0 {
			edges[name] = def.Metadata.Requires
		}
	}
	var out []Warning
	visited := make(map[string]bool)
	for _, name := range sortedKeys(edges) {
		if visited[name] {
			continue
		}
		stack := make(map[string]bool)
		if path, found := detectCycle(name, edges, visited, stack); found {
			out = append(out, errf("circular dependency: %s", path))
		}
	}
	return out
}

func checkCircularSegments(f *ast.FlagFile) []Warning {
	edges := make(map[string][]string)
	for name, expr := range f.Segments {
		edges[name] = segmentRefs(expr)
	}
	var out []Warning
	visited := make(map[string]bool)
	for _, name := range sortedKeys(edges) {
		if visited[name] {
			continue
		}
		stack := make(map[string]bool)
		if path, found := detectCycle(name, edges, visited, stack); found {
			out = append(out, errf("circular segment dependency: %s", path))
		}
	}
	return out
}

// usedSegments collects every segment name referenced from flag rules or
// from other segment bodies.
func usedSegments(f *ast.FlagFile) map[string]bool {
	used := make(map[string]bool)
	record := func(n ast.Node) {
		if seg, ok := n.(*ast.SegmentRef); ok {
			used[seg.Name] = true
		}
	}
	for _, def := range f.Flags {
		walkRules(def.Rules, record)
	}
	for _, expr := range f.Segments {
		walkExpr(expr, record)
	}
	return used
}

func checkUnusedSegments(f *ast.FlagFile) []Warning {
	used := usedSegments(f)
	var out []Warning
	for _, name := range sortedKeys(f.Segments) {
		if !used[name] {
			out = append(out, warn("segment %q is defined but never used", name))
		}
	}
	return out
}

func checkUndefinedSegments(f *ast.FlagFile) []Warning {
	used := usedSegments(f)
	var out []Warning
	for _, name := range sortedKeys(used) {
		if _, ok := f.Segments[name]; !ok {
			out = append(out, errf("segment %q is used but never defined", name))
		}
	}
	return out
}

func checkUndefinedRequires(f *ast.FlagFile) []Warning {
	var out []Warning
	for _, name := range f.Order {
		for _, req := range f.Flags[name].Metadata.Requires {
			if _, ok := f.Flags[req]; !ok {
				out = append(out, errf("%s: @requires references undefined flag %q", name, req))
			}
		}
	}
	return out
}

func checkPercentageRange(name string, def *ast.FlagDefinition) []Warning {
	var out []Warning
	walkRules(def.Rules, func(n ast.Node) {
		if p, ok := n.(*ast.Percentage); ok && (p.Rate < 0 || p.Rate > 100) {
			out = append(out, errf("%s: percentage rate %v%% is out of valid range (0-100)", name, p.Rate))
		}
	})
	return out
}

func checkRedundantFunction(name string, def *ast.FlagDefinition) []Warning {
	var out []Warning
	walkRules(def.Rules, func(n ast.Node) {
		outer, ok := n.(*ast.Function)
		if !ok {
			return
		}
		if inner, ok := outer.Arg.(*ast.Function); ok && inner.Fn == outer.Fn {
			out = append(out, warn("%s: redundant nested %s(%s(...))", name, outer.Fn, outer.Fn))
		}
	})
	return out
}

// A literal coalesce argument always resolves, so anything after it can
// never be reached.
func checkCoalesceConstantFirst(name string, def *ast.FlagDefinition) []Warning {
	var out []Warning
	walkRules(def.Rules, func(n ast.Node) {
		co, ok := n.(*ast.Coalesce)
		if !ok {
			return
		}
		for i, arg := range co.Args {
			if _, isConst := arg.(*ast.Constant); isConst && i < len(co.Args)-1 {
				out = append(out, warn("%s: coalesce has a literal before its last argument; later arguments are unreachable", name))
				break
			}
		}
	})
	return out
}
