package predicate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ontocat/ontocat/internal/informant"
	"github.com/ontocat/ontocat/internal/ontology"
)

// Options configures evaluation.
type Options struct {
	// OnMissing is the value a clause takes when it references an
	// attribute the record does not carry.
	OnMissing bool

	// Registry, when set, answers field presence for declared-but-unset
	// fields: those resolve to a nil value instead of counting as
	// missing.
	Registry *ontology.TypeRegistry
}

// Eval evaluates the predicate against one record. An error means the
// expression cannot be decided for this record (a type mismatch, not a
// missing attribute) and the caller should exclude the record.
func (p *Predicate) Eval(rec *informant.Record, opts Options) (bool, error) {
	if p == nil || p.Root == nil {
		return false, fmt.Errorf("evaluate: nil predicate")
	}
	if rec == nil {
		return false, fmt.Errorf("evaluate: nil record")
	}
	e := &evaluator{rec: rec, opts: opts}
	return e.eval(p.Root)
}

type evaluator struct {
	rec  *informant.Record
	opts Options
}

func (e *evaluator) eval(x Expr) (bool, error) {
	switch n := x.(type) {
	case *BinaryExpr:
		left, err := e.eval(n.Left)
		if err != nil {
			return false, err
		}
		right, err := e.eval(n.Right)
		if err != nil {
			return false, err
		}
		if n.Op == OpAnd {
			return left && right, nil
		}
		return left || right, nil
	case *NotExpr:
		v, err := e.eval(n.X)
		if err != nil {
			return false, err
		}
		return !v, nil
	case *CompareExpr:
		left, ok, err := e.operand(n.Left)
		if err != nil {
			return false, err
		}
		if !ok {
			return e.opts.OnMissing, nil
		}
		right, ok, err := e.operand(n.Right)
		if err != nil {
			return false, err
		}
		if !ok {
			return e.opts.OnMissing, nil
		}
		return compare(n.Op, left, right)
	case *TruthExpr:
		v, ok, err := e.operand(n.X)
		if err != nil {
			return false, err
		}
		if !ok {
			return e.opts.OnMissing, nil
		}
		return truthy(v), nil
	}
	return false, fmt.Errorf("evaluate: unknown expression node %T", x)
}

// operand resolves a value node. The second return is false when an
// attribute reference does not resolve on the record.
func (e *evaluator) operand(o Operand) (interface{}, bool, error) {
	switch n := o.(type) {
	case *Literal:
		return n.Value, true, nil
	case *SelfRef:
		return e.rec, true, nil
	case *AttrRef:
		if v, ok := e.rec.Attr(n.Name); ok {
			return v, true, nil
		}
		if e.opts.Registry != nil {
			// A declared field the record never set is present with a
			// nil value. An unregistered record type has no declared
			// fields.
			if has, err := e.opts.Registry.HasField(e.rec.TypeName, n.Name); err == nil && has {
				return nil, true, nil
			}
		}
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("evaluate: unknown operand node %T", o)
}

func compare(op CmpOp, left, right interface{}) (bool, error) {
	switch op {
	case OpEq:
		return looseEqual(left, right), nil
	case OpNe:
		return !looseEqual(left, right), nil
	case OpLt, OpLe, OpGt, OpGe:
		return order(op, left, right)
	case OpIn:
		return contains(right, left)
	case OpContains:
		return contains(left, right)
	case OpStartsWith, OpEndsWith:
		ls, lok := left.(string)
		rs, rok := right.(string)
		if !lok || !rok {
			return false, fmt.Errorf("%s needs two strings, got %T and %T", op, left, right)
		}
		if op == OpStartsWith {
			return strings.HasPrefix(ls, rs), nil
		}
		return strings.HasSuffix(ls, rs), nil
	}
	return false, fmt.Errorf("unknown comparison operator %v", op)
}

// toFloat widens any numeric value for comparison.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// looseEqual compares across numeric widths, otherwise by deep equality.
// Booleans and numbers stay distinct kinds.
func looseEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if _, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && a.(bool) == bb
	}
	if _, ok := b.(bool); ok {
		return false
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as == bs
	}
	return reflect.DeepEqual(a, b)
}

func order(op CmpOp, left, right interface{}) (bool, error) {
	if lf, ok := toFloat(left); ok {
		rf, ok := toFloat(right)
		if !ok {
			return false, fmt.Errorf("cannot order %T against %T", left, right)
		}
		switch op {
		case OpLt:
			return lf < rf, nil
		case OpLe:
			return lf <= rf, nil
		case OpGt:
			return lf > rf, nil
		case OpGe:
			return lf >= rf, nil
		}
	}
	if ls, ok := left.(string); ok {
		rs, ok := right.(string)
		if !ok {
			return false, fmt.Errorf("cannot order %T against %T", left, right)
		}
		switch op {
		case OpLt:
			return ls < rs, nil
		case OpLe:
			return ls <= rs, nil
		case OpGt:
			return ls > rs, nil
		case OpGe:
			return ls >= rs, nil
		}
	}
	return false, fmt.Errorf("cannot order %T against %T", left, right)
}

// contains answers membership: a substring of a string, an element of a
// slice, or a key of a map.
func contains(container, member interface{}) (bool, error) {
	switch c := container.(type) {
	case string:
		m, ok := member.(string)
		if !ok {
			return false, fmt.Errorf("cannot look for %T inside a string", member)
		}
		return strings.Contains(c, m), nil
	case []string:
		for _, elem := range c {
			if looseEqual(elem, member) {
				return true, nil
			}
		}
		return false, nil
	case []interface{}:
		for _, elem := range c {
			if looseEqual(elem, member) {
				return true, nil
			}
		}
		return false, nil
	case map[string]interface{}:
		m, ok := member.(string)
		if !ok {
			return false, fmt.Errorf("cannot look for %T among map keys", member)
		}
		_, found := c[m]
		return found, nil
	case nil:
		return false, fmt.Errorf("membership test against a nil value")
	}
	return false, fmt.Errorf("value of type %T is not a container", container)
}

// truthy reports whether a value counts as true in a bare clause: nil,
// false, zero numbers, empty strings and empty containers do not.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case *informant.Record:
		return t != nil
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
