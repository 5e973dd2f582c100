package predicate

import "strings"

type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordChar(c byte) bool {
	return isWordStart(c) || isDigit(c)
}

// lex tokenizes the whole source up front.
func (l *lexer) lex() ([]token, error) {
	var tokens []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokenEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\n' || l.src[l.pos] == '\r') {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokenEOF, pos: start}, nil
	}

	c := l.src[l.pos]
	switch c {
	case '(':
		l.pos++
		return token{kind: tokenLParen, text: "(", pos: start}, nil
	case ')':
		l.pos++
		return token{kind: tokenRParen, text: ")", pos: start}, nil
	case '&':
		l.pos++
		return token{kind: tokenAnd, text: "&", pos: start}, nil
	case '|':
		l.pos++
		return token{kind: tokenOr, text: "|", pos: start}, nil
	case '!':
		l.pos++
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			l.pos++
			return token{kind: tokenNe, text: "!=", pos: start}, nil
		}
		return token{kind: tokenNot, text: "!", pos: start}, nil
	case '=':
		l.pos++
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			l.pos++
			return token{kind: tokenEq, text: "==", pos: start}, nil
		}
		return token{}, &ParseError{Pos: start, Msg: "single '=' is not an operator, use '=='"}
	case '<':
		l.pos++
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			l.pos++
			return token{kind: tokenLe, text: "<=", pos: start}, nil
		}
		return token{kind: tokenLt, text: "<", pos: start}, nil
	case '>':
		l.pos++
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			l.pos++
			return token{kind: tokenGe, text: ">=", pos: start}, nil
		}
		return token{kind: tokenGt, text: ">", pos: start}, nil
	case '@':
		l.pos++
		if l.pos >= len(l.src) || !isWordStart(l.src[l.pos]) {
			return token{}, &ParseError{Pos: start, Msg: "'@' must be followed by an attribute name"}
		}
		word := l.word()
		if word == "self" {
			return token{kind: tokenSelf, text: "self", pos: start}, nil
		}
		return token{kind: tokenAttr, text: word, pos: start}, nil
	case '\'', '"':
		return l.quoted(c)
	}

	if isDigit(c) || (c == '-' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])) {
		return l.number()
	}
	if isWordStart(c) {
		word := l.word()
		switch strings.ToLower(word) {
		case "in":
			return token{kind: tokenIn, text: word, pos: start}, nil
		case "contains":
			return token{kind: tokenContains, text: word, pos: start}, nil
		case "startswith":
			return token{kind: tokenStartsWith, text: word, pos: start}, nil
		case "endswith":
			return token{kind: tokenEndsWith, text: word, pos: start}, nil
		case "true", "false":
			return token{kind: tokenBool, text: strings.ToLower(word), pos: start}, nil
		case "none":
			return token{kind: tokenNone, text: word, pos: start}, nil
		}
		return token{}, &ParseError{Pos: start, Msg: "unknown keyword " + quote(word) + ", attributes are written @" + word}
	}

	return token{}, &ParseError{Pos: start, Msg: "unexpected character " + quote(string(c))}
}

// word consumes an identifier starting at the current position.
func (l *lexer) word() string {
	start := l.pos
	for l.pos < len(l.src) && isWordChar(l.src[l.pos]) {
		l.pos++
	}
	return l.src[start:l.pos]
}

// quoted consumes a string literal delimited by the given quote byte.
// There is no escape processing; the literal runs to the next same quote.
func (l *lexer) quoted(q byte) (token, error) {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) {
		if l.src[l.pos] == q {
			text := l.src[start+1 : l.pos]
			l.pos++
			return token{kind: tokenString, text: text, pos: start}, nil
		}
		l.pos++
	}
	return token{}, &ParseError{Pos: start, Msg: "unterminated string literal"}
}

// number consumes an integer or float literal, with an optional leading
// minus sign.
func (l *lexer) number() (token, error) {
	start := l.pos
	if l.src[l.pos] == '-' {
		l.pos++
	}
	sawDot := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if isDigit(c) {
			l.pos++
			continue
		}
		if c == '.' && !sawDot {
			sawDot = true
			l.pos++
			continue
		}
		break
	}
	text := l.src[start:l.pos]
	if strings.HasSuffix(text, ".") {
		return token{}, &ParseError{Pos: start, Msg: "malformed number " + quote(text)}
	}
	kind := tokenInt
	if sawDot {
		kind = tokenFloat
	}
	return token{kind: kind, text: text, pos: start}, nil
}

func quote(s string) string {
	return "'" + s + "'"
}
