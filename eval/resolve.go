package eval

import "github.com/TimurManjosov/flagfile/ast"

// Reasons reported with a resolved value.
const (
	ReasonTargetingMatch = "TARGETING_MATCH"
	ReasonDefault        = "DEFAULT"
)

// Result is the outcome of resolving one flag. Value is nil when Found
// is false.
type Result struct {
	Value  ast.FlagValue
	Reason string
	Found  bool
}

// maxRequiresDepth bounds prerequisite chains so a @requires cycle
// resolves to absent instead of recursing forever.
const maxRequiresDepth = 32

// ResolveFlag resolves a flag by name. Prerequisites named by @requires
// must each resolve to an enabled boolean first; a missing prerequisite
// or one resolving to anything else makes the whole flag absent without
// running its own rules.
func ResolveFlag(f *ast.FlagFile, name string, ctx Context, env string) Result {
	return resolveFlag(f, name, ctx, env, 0)
}

func resolveFlag(f *ast.FlagFile, name string, ctx Context, env string, depth int) Result {
	if depth > maxRequiresDepth {
		return Result{}
	}
	def, ok := f.Lookup(name)
	if !ok {
		return Result{}
	}
	for _, req := range def.Metadata.Requires {
		res := resolveFlag(f, req, ctx, env, depth+1)
		if !res.Found {
			return Result{}
		}
		on, isBool := res.Value.(ast.OnOff)
		if !isBool || !bool(on) {
			return Result{}
		}
	}
	e := &evaluator{ctx: ctx, flagName: name, segments: f.Segments}
	return resolveRules(e, def.Rules, env)
}

// ResolveRules walks a rule list first-match-wins for the given flag
// name, without prerequisite gating. Callers that need @requires
// semantics go through ResolveFlag.
func ResolveRules(f *ast.FlagFile, flagName string, rules []ast.Rule, ctx Context, env string) Result {
	e := &evaluator{ctx: ctx, flagName: flagName, segments: f.Segments}
	return resolveRules(e, rules, env)
}

func resolveRules(e *evaluator, rules []ast.Rule, env string) Result {
	for _, rule := range rules {
		switch r := rule.(type) {
		case *ast.ValueRule:
			return Result{Value: r.Value, Reason: ReasonDefault, Found: true}
		case *ast.ExprRule:
			if e.eval(r.Expr) {
				return Result{Value: r.Value, Reason: ReasonTargetingMatch, Found: true}
			}
		case *ast.EnvRule:
			if r.Env != env {
				continue
			}
			// A matched env block with no internal match falls
			// through to the next sibling rule. Values reached
			// through an env match count as targeting, even when
			// the nested rule was a bare default.
			if res := resolveRules(e, r.Rules, env); res.Found {
				res.Reason = ReasonTargetingMatch
				return res
			}
		}
	}
	return Result{}
}
