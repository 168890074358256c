package ast

import "time"

// FlagValue is the terminal value a flag resolves to.
type FlagValue interface {
	flagValue()
}

// OnOff is a boolean flag value. Prerequisite gating only accepts
// OnOff(true).
type OnOff bool

// Integer is a numeric flag value.
type Integer int64

// Str is a string flag value.
type Str string

// JSON wraps a decoded json({...}) literal.
type JSON struct {
	Value any
}

func (OnOff) flagValue()   {}
func (Integer) flagValue() {}
func (Str) flagValue()     {}
func (JSON) flagValue()    {}

// Rule is one clause of a flag definition. The set is closed: an
// unconditional value, a guarded value, or an environment-scoped block.
type Rule interface {
	rule()
}

// ValueRule returns its value unconditionally. As a trailing rule it is
// the flag's default; anywhere else it shadows all later rules.
type ValueRule struct {
	Value FlagValue
}

// ExprRule returns its value when the guard expression evaluates true.
type ExprRule struct {
	Expr  Node
	Value FlagValue
}

// EnvRule scopes a nested rule list to a deployment environment. When
// the nested list yields nothing, resolution falls through to the next
// sibling rule.
type EnvRule struct {
	Env   string
	Rules []Rule
}

func (*ValueRule) rule() {}
func (*ExprRule) rule()  {}
func (*EnvRule) rule()   {}

// FlagMetadata carries the annotations preceding a flag definition.
type FlagMetadata struct {
	Owner       string
	Ticket      string
	Description string
	Type        string
	Deprecated  string
	Expires     *time.Time
	Requires    []string // prerequisite flag names, in annotation order
	Tests       []string // @test assertions attached to this flag
}

// FlagDefinition is an ordered rule list plus its metadata. Order is
// significant: resolution is first-match-wins.
type FlagDefinition struct {
	Rules    []Rule
	Metadata FlagMetadata
}

// FlagFile is the parse result of one Flagfile document. Flags and
// Segments are built once and read-only afterwards.
type FlagFile struct {
	Flags    map[string]*FlagDefinition
	Order    []string // flag names in first-definition order
	Segments map[string]Node

	// Redefined lists flag names that appeared more than once. The last
	// definition wins; lint surfaces the duplicates.
	Redefined []string
}

// Lookup returns the definition for a flag name.
func (f *FlagFile) Lookup(name string) (*FlagDefinition, bool) {
	def, ok := f.Flags[name]
	return def, ok
}
