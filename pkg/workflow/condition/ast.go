package condition

import (
	"strconv"
)

// Operator is a binary comparison operator.
type Operator string

const (
	OpEqual       Operator = "=="
	OpGreaterThan Operator = ">"
	OpLessThan    Operator = "<"
)

// ValueKind tags the literal on the right-hand side of a comparison.
type ValueKind string

const (
	ValueString ValueKind = "string"
	ValueNumber ValueKind = "number"
)

// Value is a literal operand.
type Value struct {
	Kind ValueKind
	// Text is the literal as written (without quotes). Equality compares
	// against Text.
	Text string
	// Number is set when Kind is ValueNumber.
	Number float64
}

// Expr is a parsed guard expression. The concrete variants are *Literal and
// *Comparison.
type Expr interface {
	String() string
	expr()
}

// Literal is the constant `true`.
type Literal struct {
	Value bool
}

func (*Literal) expr() {}

// String renders the literal.
func (l *Literal) String() string {
	return strconv.FormatBool(l.Value)
}

// Comparison is IDENT OP VALUE.
type Comparison struct {
	Ident string
	Op    Operator
	Value Value
}

func (*Comparison) expr() {}

// String renders the comparison in canonical form.
func (c *Comparison) String() string {
	rhs := c.Value.Text
	if c.Value.Kind == ValueString {
		rhs = "'" + rhs + "'"
	}
	return c.Ident + " " + string(c.Op) + " " + rhs
}
