package predicate

import (
	"errors"
	"strconv"
)

// Parse compiles an expression into a Predicate. The expression always
// parses inside one added outer pair of parentheses, so a bare clause like
// @depth > 1 is valid, and so is an unbalanced-looking input whose parens
// only close against the added pair (preserved behavior of the original
// filter).
func Parse(expr string) (*Predicate, error) {
	wrapped := "(" + expr + ")"
	tokens, err := newLexer(wrapped).lex()
	if err != nil {
		return nil, unwrapPos(err)
	}

	p := &parser{tokens: tokens, seen: make(map[string]bool)}
	root, err := p.parseOr()
	if err != nil {
		return nil, unwrapPos(err)
	}
	if tok := p.cur(); tok.kind != tokenEOF {
		return nil, unwrapPos(&ParseError{Pos: tok.pos, Msg: "unexpected " + tok.kind.String() + " after the expression"})
	}

	return &Predicate{Source: expr, Root: root, Attrs: p.attrs}, nil
}

// unwrapPos shifts an error offset back into the coordinates of the
// unwrapped source expression.
func unwrapPos(err error) error {
	var pe *ParseError
	if errors.As(err, &pe) && pe.Pos > 0 {
		pe.Pos--
	}
	return err
}

type parser struct {
	tokens []token
	idx    int
	attrs  []string
	seen   map[string]bool
}

func (p *parser) cur() token {
	if p.idx >= len(p.tokens) {
		return token{kind: tokenEOF, pos: len(p.tokens)}
	}
	return p.tokens[p.idx]
}

func (p *parser) advance() token {
	tok := p.cur()
	p.idx++
	return tok
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokenAnd {
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	switch tok := p.cur(); tok.kind {
	case tokenNot:
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &NotExpr{X: x}, nil
	case tokenLParen:
		p.advance()
		x, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.cur(); closing.kind != tokenRParen {
			return nil, &ParseError{Pos: closing.pos, Msg: "expected ')', got " + closing.kind.String()}
		}
		p.advance()
		return x, nil
	default:
		return p.parseClause()
	}
}

// parseClause parses one comparison, or a bare operand used as a truth
// test.
func (p *parser) parseClause() (Expr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	op, ok := cmpOpFor(p.cur().kind)
	if !ok {
		return &TruthExpr{X: left}, nil
	}
	p.advance()
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &CompareExpr{Op: op, Left: left, Right: right}, nil
}

func cmpOpFor(k tokenKind) (CmpOp, bool) {
	switch k {
	case tokenEq:
		return OpEq, true
	case tokenNe:
		return OpNe, true
	case tokenLt:
		return OpLt, true
	case tokenLe:
		return OpLe, true
	case tokenGt:
		return OpGt, true
	case tokenGe:
		return OpGe, true
	case tokenIn:
		return OpIn, true
	case tokenContains:
		return OpContains, true
	case tokenStartsWith:
		return OpStartsWith, true
	case tokenEndsWith:
		return OpEndsWith, true
	}
	return 0, false
}

func (p *parser) parseOperand() (Operand, error) {
	tok := p.cur()
	switch tok.kind {
	case tokenAttr:
		p.advance()
		if !p.seen[tok.text] {
			p.seen[tok.text] = true
			p.attrs = append(p.attrs, tok.text)
		}
		pos := tok.pos
		if pos > 0 {
			pos--
		}
		return &AttrRef{Name: tok.text, Pos: pos}, nil
	case tokenSelf:
		p.advance()
		return &SelfRef{}, nil
	case tokenString:
		p.advance()
		return &Literal{Value: tok.text}, nil
	case tokenInt:
		p.advance()
		n, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return nil, &ParseError{Pos: tok.pos, Msg: "integer out of range: " + tok.text}
		}
		return &Literal{Value: n}, nil
	case tokenFloat:
		p.advance()
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, &ParseError{Pos: tok.pos, Msg: "malformed float: " + tok.text}
		}
		return &Literal{Value: f}, nil
	case tokenBool:
		p.advance()
		return &Literal{Value: tok.text == "true"}, nil
	case tokenNone:
		p.advance()
		return &Literal{Value: nil}, nil
	}
	return nil, &ParseError{Pos: tok.pos, Msg: "expected a value or attribute, got " + tok.kind.String()}
}
