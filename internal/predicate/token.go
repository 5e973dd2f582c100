// Package predicate parses and evaluates the attribute mini-language used
// to filter record collections: parenthesized boolean expressions over
// @attribute comparisons, for example (@type == 'File') & (@source_depth > 1).
package predicate

import "fmt"

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenLParen
	tokenRParen
	tokenAnd
	tokenOr
	tokenNot
	tokenEq
	tokenNe
	tokenLt
	tokenLe
	tokenGt
	tokenGe
	tokenIn
	tokenContains
	tokenStartsWith
	tokenEndsWith
	tokenAttr
	tokenSelf
	tokenString
	tokenInt
	tokenFloat
	tokenBool
	tokenNone
)

var tokenNames = map[tokenKind]string{
	tokenEOF:        "end of expression",
	tokenLParen:     "'('",
	tokenRParen:     "')'",
	tokenAnd:        "'&'",
	tokenOr:         "'|'",
	tokenNot:        "'!'",
	tokenEq:         "'=='",
	tokenNe:         "'!='",
	tokenLt:         "'<'",
	tokenLe:         "'<='",
	tokenGt:         "'>'",
	tokenGe:         "'>='",
	tokenIn:         "'in'",
	tokenContains:   "'contains'",
	tokenStartsWith: "'startswith'",
	tokenEndsWith:   "'endswith'",
	tokenAttr:       "attribute",
	tokenSelf:       "'@self'",
	tokenString:     "string",
	tokenInt:        "integer",
	tokenFloat:      "float",
	tokenBool:       "boolean",
	tokenNone:       "'none'",
}

func (k tokenKind) String() string {
	if s, ok := tokenNames[k]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// token is one lexical unit of an expression. Pos is the byte offset of
// the token in the expression handed to Parse.
type token struct {
	kind tokenKind
	text string
	pos  int
}
