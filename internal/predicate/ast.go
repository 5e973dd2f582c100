package predicate

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a boolean node of a parsed expression.
type Expr interface {
	fmt.Stringer
	boolNode()
}

// Operand is a value node: an attribute reference, the record itself, or a
// literal.
type Operand interface {
	fmt.Stringer
	operandNode()
}

// BoolOp combines two boolean clauses.
type BoolOp int

const (
	// OpAnd evaluates both sides and is true when both are.
	OpAnd BoolOp = iota
	// OpOr evaluates both sides and is true when either is.
	OpOr
)

func (o BoolOp) String() string {
	if o == OpAnd {
		return "&"
	}
	return "|"
}

// CmpOp compares two operands.
type CmpOp int

const (
	OpEq CmpOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpIn
	OpContains
	OpStartsWith
	OpEndsWith
)

var cmpOpNames = map[CmpOp]string{
	OpEq:         "==",
	OpNe:         "!=",
	OpLt:         "<",
	OpLe:         "<=",
	OpGt:         ">",
	OpGe:         ">=",
	OpIn:         "in",
	OpContains:   "contains",
	OpStartsWith: "startswith",
	OpEndsWith:   "endswith",
}

func (o CmpOp) String() string { return cmpOpNames[o] }

// BinaryExpr is an '&' or '|' combination. Both sides are always
// evaluated; the operators do not short-circuit.
type BinaryExpr struct {
	Op    BoolOp
	Left  Expr
	Right Expr
}

func (e *BinaryExpr) boolNode() {}

func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// NotExpr negates a clause.
type NotExpr struct {
	X Expr
}

func (e *NotExpr) boolNode() {}

func (e *NotExpr) String() string { return "!" + e.X.String() }

// CompareExpr is one comparison clause. When either side references an
// attribute the record does not carry, the whole clause evaluates to the
// configured missing-attribute constant.
type CompareExpr struct {
	Op    CmpOp
	Left  Operand
	Right Operand
}

func (e *CompareExpr) boolNode() {}

func (e *CompareExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// TruthExpr is a bare operand used as a boolean clause, true when the
// value is truthy.
type TruthExpr struct {
	X Operand
}

func (e *TruthExpr) boolNode() {}

func (e *TruthExpr) String() string { return e.X.String() }

// AttrRef references a record attribute by name.
type AttrRef struct {
	Name string
	Pos  int
}

func (a *AttrRef) operandNode() {}

func (a *AttrRef) String() string { return "@" + a.Name }

// SelfRef references the record under evaluation.
type SelfRef struct{}

func (s *SelfRef) operandNode() {}

func (s *SelfRef) String() string { return "@self" }

// Literal is a constant: string, int64, float64, bool or nil.
type Literal struct {
	Value interface{}
}

func (l *Literal) operandNode() {}

func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "none"
	case string:
		return "'" + v + "'"
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Predicate is a parsed expression ready for evaluation.
type Predicate struct {
	// Source is the expression text as handed to Parse.
	Source string
	// Root is the parsed clause tree.
	Root Expr
	// Attrs lists the referenced attribute names in source order, first
	// occurrence only. @self is not an attribute.
	Attrs []string
}

func (p *Predicate) String() string {
	if p == nil || p.Root == nil {
		return ""
	}
	return p.Root.String()
}

// ParseError reports a lexical or syntactic defect with its byte offset in
// the source expression.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Msg)
}

// Indicate renders the source with a caret under the error offset, for
// terminal diagnostics.
func (e *ParseError) Indicate(source string) string {
	pos := e.Pos
	if pos > len(source) {
		pos = len(source)
	}
	return source + "\n" + strings.Repeat(" ", pos) + "^"
}
