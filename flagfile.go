// Package flagfile evaluates feature-flag rules written in the Flagfile
// format. A parsed file is an immutable handle; callers either pass it
// around explicitly or install it into the process-wide slot and query
// through Get. Parsing and evaluation are pure: all file and network
// I/O lives in the Loader and in the serving layers.
package flagfile

import (
	"os"

	"github.com/TimurManjosov/flagfile/ast"
	"github.com/TimurManjosov/flagfile/eval"
	"github.com/TimurManjosov/flagfile/parse"
)

// Context carries the field values rules are evaluated against.
type Context = eval.Context

// FlagFile is a parsed, read-only flag table. Build one with Parse and
// replace it wholesale on reload; never mutate it.
type FlagFile struct {
	doc    *ast.FlagFile
	source string
}

// Parse builds a handle from Flagfile source text.
func Parse(src string) (*FlagFile, error) {
	doc, err := parse.File(src)
	if err != nil {
		return nil, err
	}
	return &FlagFile{doc: doc, source: src}, nil
}

// ParseFile reads and parses a Flagfile from disk.
func ParseFile(path string) (*FlagFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Source returns the original text the handle was parsed from.
func (f *FlagFile) Source() string { return f.source }

// Doc exposes the underlying tables for lint and tooling.
func (f *FlagFile) Doc() *ast.FlagFile { return f.doc }

// Names returns flag names in definition order.
func (f *FlagFile) Names() []string {
	out := make([]string, len(f.doc.Order))
	copy(out, f.doc.Order)
	return out
}

// Eval resolves a flag with no active environment. The second result is
// false when the flag is absent: unknown, prerequisites unmet, or no
// rule matched.
func (f *FlagFile) Eval(name string, ctx Context) (ast.FlagValue, bool) {
	return f.EvalWithEnv(name, ctx, "")
}

// EvalWithEnv resolves a flag against the given environment.
func (f *FlagFile) EvalWithEnv(name string, ctx Context, env string) (ast.FlagValue, bool) {
	res := eval.ResolveFlag(f.doc, name, ctx, env)
	return res.Value, res.Found
}

// Resolve is EvalWithEnv with the full result, including the match
// reason.
func (f *FlagFile) Resolve(name string, ctx Context, env string) eval.Result {
	return eval.ResolveFlag(f.doc, name, ctx, env)
}
