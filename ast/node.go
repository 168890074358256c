package ast

// Node is one expression tree node. The set of implementations is closed;
// the evaluator dispatches with a type switch and treats anything else as
// a failed condition.
type Node interface {
	node()
}

// Constant wraps a literal atom. A Constant may hold a Variable atom:
// bare identifiers on the right-hand side of a comparison parse as
// variables and are resolved against the context first, falling back to
// their literal text.
type Constant struct {
	Value Atom
}

// VariableNode is a field reference to be resolved from the context.
type VariableNode struct {
	Name string
}

// FnName identifies a built-in function.
type FnName uint8

const (
	FnUpper FnName = iota
	FnLower
	FnNow
)

func (f FnName) String() string {
	switch f {
	case FnUpper:
		return "upper"
	case FnLower:
		return "lower"
	case FnNow:
		return "now"
	}
	return "unknown"
}

// Function applies a built-in to its argument. Arg is nil for now().
type Function struct {
	Fn  FnName
	Arg Node
}

// Coalesce yields the first argument present in the context, else the
// first literal default.
type Coalesce struct {
	Args []Node
}

// CompareOp is a relational operator.
type CompareOp uint8

const (
	OpEq CompareOp = iota
	OpNotEq
	OpLess
	OpLessEq
	OpMore
	OpMoreEq
)

func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNotEq:
		return "!="
	case OpLess:
		return "<"
	case OpLessEq:
		return "<="
	case OpMore:
		return ">"
	case OpMoreEq:
		return ">="
	}
	return "?"
}

// CompareNode relates a resolvable left side to a literal right side.
type CompareNode struct {
	Left  Node
	Op    CompareOp
	Right Node
}

// MatchOp is a substring/prefix/suffix (or regex) test operator.
type MatchOp uint8

const (
	MatchContains MatchOp = iota
	MatchNotContains
	MatchStartsWith
	MatchNotStartsWith
	MatchEndsWith
	MatchNotEndsWith
)

func (op MatchOp) String() string {
	switch op {
	case MatchContains:
		return "~"
	case MatchNotContains:
		return "!~"
	case MatchStartsWith:
		return "^~"
	case MatchNotStartsWith:
		return "!^~"
	case MatchEndsWith:
		return "~$"
	case MatchNotEndsWith:
		return "!~$"
	}
	return "?"
}

// MatchNode tests the string form of the left side against a literal or
// regex right side.
type MatchNode struct {
	Left  Node
	Op    MatchOp
	Right Node
}

// ArrayOp is a membership operator.
type ArrayOp uint8

const (
	ArrayIn ArrayOp = iota
	ArrayNotIn
)

func (op ArrayOp) String() string {
	if op == ArrayNotIn {
		return "not in"
	}
	return "in"
}

// ArrayNode tests membership in either direction: field in (literals),
// or literal in field-holding-a-list.
type ArrayNode struct {
	Left  Node
	Op    ArrayOp
	Right Node
}

// LogicOp combines two conditions.
type LogicOp uint8

const (
	LogicAnd LogicOp = iota
	LogicOr
)

func (op LogicOp) String() string {
	if op == LogicOr {
		return "or"
	}
	return "and"
}

// LogicNode is a binary and/or. The parser folds chains strictly left to
// right, so and/or share one precedence level.
type LogicNode struct {
	Left  Node
	Op    LogicOp
	Right Node
}

// Scope is a parenthesized sub-expression with an optional negation.
type Scope struct {
	Expr   Node
	Negate bool
}

// SegmentRef references a named segment, resolved at evaluation time.
type SegmentRef struct {
	Name string
}

// Percentage is a deterministic rollout gate: hash the field's value
// (plus flag name and optional salt) into a bucket and compare against
// the rate threshold.
type Percentage struct {
	Rate  float64 // 0..100
	Field Node
	Salt  string
}

func (*Constant) node()     {}
func (*VariableNode) node() {}
func (*Function) node()     {}
func (*Coalesce) node()     {}
func (*CompareNode) node()  {}
func (*MatchNode) node()    {}
func (*ArrayNode) node()    {}
func (*LogicNode) node()    {}
func (*Scope) node()        {}
func (*SegmentRef) node()   {}
func (*Percentage) node()   {}
