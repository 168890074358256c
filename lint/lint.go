// Package lint inspects a parsed flag file for definitions that will
// misbehave at runtime or rot in place: expired experiments, unreachable
// rules, dangling references. Errors flag behavior bugs, warnings flag
// hygiene problems.
package lint

import (
	"fmt"
	"sort"
	"time"

	"github.com/TimurManjosov/flagfile/ast"
)

// Level classifies a finding.
type Level uint8

const (
	LevelWarning Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "warning"
}

// Warning is one lint finding.
type Warning struct {
	Level   Level
	Message string
}

func warn(format string, args ...any) Warning {
	return Warning{Level: LevelWarning, Message: fmt.Sprintf(format, args...)}
}

func errf(format string, args ...any) Warning {
	return Warning{Level: LevelError, Message: fmt.Sprintf(format, args...)}
}

// Run applies every check to the file. today anchors expiry checks.
func Run(f *ast.FlagFile, today time.Time) []Warning {
	var out []Warning

	out = append(out, checkDuplicateFlags(f)...)
	out = append(out, checkCircularDeps(f)...)
	out = append(out, checkCircularSegments(f)...)
	out = append(out, checkUnusedSegments(f)...)
	out = append(out, checkUndefinedRequires(f)...)
	out = append(out, checkUndefinedSegments(f)...)

	for _, name := range f.Order {
		def := f.Flags[name]
		out = append(out, checkDeprecated(name, def)...)
		out = append(out, checkExpired(name, def, today)...)
		out = append(out, checkMissingOwner(name, def)...)
		out = append(out, checkExperimentNoExpiry(name, def)...)
		out = append(out, checkDeprecatedNoExpiry(name, def)...)
		out = append(out, checkUnreachableRules(name, def)...)
		out = append(out, checkMissingDefault(name, def)...)
		out = append(out, checkMixedReturnTypes(name, def)...)
		out = append(out, checkEmptyFlag(name, def)...)
		out = append(out, checkDuplicateRequires(name, def)...)
		out = append(out, checkPercentageRange(name, def)...)
		out = append(out, checkTautology(name, def)...)
		out = append(out, checkCoalesceConstantFirst(name, def)...)
		out = append(out, checkRedundantFunction(name, def)...)
		out = append(out, checkEnvMissingDefault(name, def)...)
		out = append(out, checkShadowedEnvRules(name, def)...)
	}
	return out
}

func checkDuplicateFlags(f *ast.FlagFile) []Warning {
	var out []Warning
	for _, name := range f.Redefined {
		out = append(out, warn("%s is defined more than once", name))
	}
	return out
}

func checkDeprecated(name string, def *ast.FlagDefinition) []Warning {
	if def.Metadata.Deprecated == "" {
		return nil
	}
	return []Warning{warn("%s is deprecated: %q", name, def.Metadata.Deprecated)}
}

func checkExpired(name string, def *ast.FlagDefinition, today time.Time) []Warning {
	expires := def.Metadata.Expires
	if expires == nil || !expires.Before(today) {
		return nil
	}
	daysAgo := int(today.Sub(*expires).Hours() / 24)
	return []Warning{errf("%s expired %s (%d days ago). Run: ff find -s %s",
		name, expires.Format("2006-01-02"), daysAgo, name)}
}

func checkMissingOwner(name string, def *ast.FlagDefinition) []Warning {
	m := def.Metadata
	hasLifecycle := m.Deprecated != "" || m.Expires != nil || m.Type != ""
	if hasLifecycle && m.Owner == "" {
		return []Warning{warn("%s: missing @owner", name)}
	}
	return nil
}

func checkExperimentNoExpiry(name string, def *ast.FlagDefinition) []Warning {
	if def.Metadata.Type == "experiment" && def.Metadata.Expires == nil {
		return []Warning{warn("%s: type=experiment but no @expires set", name)}
	}
	return nil
}

func checkDeprecatedNoExpiry(name string, def *ast.FlagDefinition) []Warning {
	if def.Metadata.Deprecated != "" && def.Metadata.Expires == nil {
		return []Warning{warn("%s: @deprecated but no @expires set", name)}
	}
	return nil
}

func checkUnreachableRules(name string, def *ast.FlagDefinition) []Warning {
	unreachable := 0
	catchAll := false
	for _, rule := range def.Rules {
		if catchAll {
			unreachable++
			continue
		}
		if _, ok := rule.(*ast.ValueRule); ok {
			catchAll = true
		}
	}
	if unreachable == 0 {
		return nil
	}
	return []Warning{warn("%s: %d unreachable rule(s) after catch-all", name, unreachable)}
}

func checkMissingDefault(name string, def *ast.FlagDefinition) []Warning {
	hasConditional := false
	for _, rule := range def.Rules {
		if _, ok := rule.(*ast.ValueRule); !ok {
			hasConditional = true
			break
		}
	}
	if !hasConditional || len(def.Rules) == 0 {
		return nil
	}
	if _, ok := def.Rules[len(def.Rules)-1].(*ast.ValueRule); ok {
		return nil
	}
	return []Warning{errf("%s: no default case (last rule is conditional)", name)}
}

func returnTypeName(v ast.FlagValue) string {
	switch v.(type) {
	case ast.OnOff:
		return "boolean"
	case ast.Integer:
		return "integer"
	case ast.Str:
		return "string"
	case ast.JSON:
		return "json"
	}
	return "unknown"
}

func collectReturnTypes(rules []ast.Rule, out map[string]bool) {
	for _, rule := range rules {
		switch r := rule.(type) {
		case *ast.ValueRule:
			out[returnTypeName(r.Value)] = true
		case *ast.ExprRule:
			out[returnTypeName(r.Value)] = true
		case *ast.EnvRule:
			collectReturnTypes(r.Rules, out)
		}
	}
}

func checkMixedReturnTypes(name string, def *ast.FlagDefinition) []Warning {
	types := make(map[string]bool)
	collectReturnTypes(def.Rules, types)
	if len(types) < 2 {
		return nil
	}
	names := make([]string, 0, len(types))
	for t := range types {
		names = append(names, t)
	}
	sort.Strings(names)
	msg := names[0]
	for _, n := range names[1:] {
		msg += ", " + n
	}
	return []Warning{warn("%s: mixed return types across rules: %s", name, msg)}
}

func checkEmptyFlag(name string, def *ast.FlagDefinition) []Warning {
	if len(def.Rules) == 0 {
		return []Warning{warn("%s: flag has no rules (will always evaluate to absent)", name)}
	}
	return nil
}

func checkDuplicateRequires(name string, def *ast.FlagDefinition) []Warning {
	var out []Warning
	seen := make(map[string]bool)
	for _, req := range def.Metadata.Requires {
		if seen[req] {
			out = append(out, warn("%s: duplicate @requires %q", name, req))
			continue
		}
		seen[req] = true
	}
	return out
}

func checkTautology(name string, def *ast.FlagDefinition) []Warning {
	var out []Warning
	var walk func(rules []ast.Rule)
	walk = func(rules []ast.Rule) {
		for _, rule := range rules {
			switch r := rule.(type) {
			case *ast.ExprRule:
				if c, ok := r.Expr.(*ast.Constant); ok &&
					c.Value.Kind() == ast.KindBool && c.Value.Bool() {
					out = append(out, warn("%s: tautological condition (true -> ...) is always matched", name))
				}
			case *ast.EnvRule:
				walk(r.Rules)
			}
		}
	}
	walk(def.Rules)
	return out
}

func checkEnvMissingDefault(name string, def *ast.FlagDefinition) []Warning {
	hasEnv := false
	for _, rule := range def.Rules {
		if _, ok := rule.(*ast.EnvRule); ok {
			hasEnv = true
			break
		}
	}
	if !hasEnv || len(def.Rules) == 0 {
		return nil
	}
	if _, ok := def.Rules[len(def.Rules)-1].(*ast.ValueRule); ok {
		return nil
	}
	return []Warning{warn("%s: has @env rules but no fallback for unlisted environments", name)}
}

func checkShadowedEnvRules(name string, def *ast.FlagDefinition) []Warning {
	var out []Warning
	seen := make(map[string]bool)
	for _, rule := range def.Rules {
		env, ok := rule.(*ast.EnvRule)
		if !ok {
			continue
		}
		if seen[env.Env] {
			out = append(out, warn("%s: duplicate @env %q (only the first match is used)", name, env.Env))
			continue
		}
		seen[env.Env] = true
	}
	return out
}
