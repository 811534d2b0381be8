package lineage

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

//nolint:revive // TOKEN_* names are intentionally ALL_CAPS for SQL token conventions
const (
	// TOKEN_EOF represents end of input.
	TOKEN_EOF TokenType = iota
	// TOKEN_ILLEGAL represents an illegal/unrecognized token.
	TOKEN_ILLEGAL

	// TOKEN_IDENT represents an identifier.
	TOKEN_IDENT
	// TOKEN_NUMBER represents a numeric literal.
	TOKEN_NUMBER // 123, 45.67, 1e10
	// TOKEN_STRING represents a string literal.
	TOKEN_STRING // 'hello'

	TOKEN_PLUS      // +
	TOKEN_MINUS     // -
	TOKEN_STAR      // *
	TOKEN_SLASH     // /
	TOKEN_PERCENT   // %
	TOKEN_DPIPE     // ||
	TOKEN_EQ        // =
	TOKEN_NE        // != or <>
	TOKEN_LT        // <
	TOKEN_GT        // >
	TOKEN_LE        // <=
	TOKEN_GE        // >=
	TOKEN_DOT       // .
	TOKEN_COMMA     // ,
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )
	TOKEN_SEMICOLON // ;

	// Keywords (alphabetical)
	TOKEN_AND
	TOKEN_AS
	TOKEN_BETWEEN
	TOKEN_BY
	TOKEN_CASE
	TOKEN_CREATE
	TOKEN_CROSS
	TOKEN_DISTINCT
	TOKEN_ELSE
	TOKEN_END
	TOKEN_EXISTS
	TOKEN_FROM
	TOKEN_FULL
	TOKEN_GROUP
	TOKEN_HAVING
	TOKEN_IF
	TOKEN_IN
	TOKEN_INNER
	TOKEN_IS
	TOKEN_JOIN
	TOKEN_LEFT
	TOKEN_LIKE
	TOKEN_LIMIT
	TOKEN_NOT
	TOKEN_NULL
	TOKEN_ON
	TOKEN_OR
	TOKEN_ORDER
	TOKEN_OUTER
	TOKEN_REPLACE
	TOKEN_RIGHT
	TOKEN_SELECT
	TOKEN_TABLE
	TOKEN_THEN
	TOKEN_USING
	TOKEN_WHEN
	TOKEN_WHERE
)

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
	End     int // byte offset just past the token in the input
}

// Position represents a location in the source text.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset
}

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// tokenNames maps token types to their string representations.
var tokenNames = map[TokenType]string{
	TOKEN_EOF:     "EOF",
	TOKEN_ILLEGAL: "ILLEGAL",

	TOKEN_IDENT:  "IDENT",
	TOKEN_NUMBER: "NUMBER",
	TOKEN_STRING: "STRING",

	TOKEN_PLUS:      "+",
	TOKEN_MINUS:     "-",
	TOKEN_STAR:      "*",
	TOKEN_SLASH:     "/",
	TOKEN_PERCENT:   "%",
	TOKEN_DPIPE:     "||",
	TOKEN_EQ:        "=",
	TOKEN_NE:        "!=",
	TOKEN_LT:        "<",
	TOKEN_GT:        ">",
	TOKEN_LE:        "<=",
	TOKEN_GE:        ">=",
	TOKEN_DOT:       ".",
	TOKEN_COMMA:     ",",
	TOKEN_LPAREN:    "(",
	TOKEN_RPAREN:    ")",
	TOKEN_SEMICOLON: ";",

	TOKEN_AND:      "AND",
	TOKEN_AS:       "AS",
	TOKEN_BETWEEN:  "BETWEEN",
	TOKEN_BY:       "BY",
	TOKEN_CASE:     "CASE",
	TOKEN_CREATE:   "CREATE",
	TOKEN_CROSS:    "CROSS",
	TOKEN_DISTINCT: "DISTINCT",
	TOKEN_ELSE:     "ELSE",
	TOKEN_END:      "END",
	TOKEN_EXISTS:   "EXISTS",
	TOKEN_FROM:     "FROM",
	TOKEN_FULL:     "FULL",
	TOKEN_GROUP:    "GROUP",
	TOKEN_HAVING:   "HAVING",
	TOKEN_IF:       "IF",
	TOKEN_IN:       "IN",
	TOKEN_INNER:    "INNER",
	TOKEN_IS:       "IS",
	TOKEN_JOIN:     "JOIN",
	TOKEN_LEFT:     "LEFT",
	TOKEN_LIKE:     "LIKE",
	TOKEN_LIMIT:    "LIMIT",
	TOKEN_NOT:      "NOT",
	TOKEN_NULL:     "NULL",
	TOKEN_ON:       "ON",
	TOKEN_OR:       "OR",
	TOKEN_ORDER:    "ORDER",
	TOKEN_OUTER:    "OUTER",
	TOKEN_REPLACE:  "REPLACE",
	TOKEN_RIGHT:    "RIGHT",
	TOKEN_SELECT:   "SELECT",
	TOKEN_TABLE:    "TABLE",
	TOKEN_THEN:     "THEN",
	TOKEN_USING:    "USING",
	TOKEN_WHEN:     "WHEN",
	TOKEN_WHERE:    "WHERE",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"and":      TOKEN_AND,
	"as":       TOKEN_AS,
	"between":  TOKEN_BETWEEN,
	"by":       TOKEN_BY,
	"case":     TOKEN_CASE,
	"create":   TOKEN_CREATE,
	"cross":    TOKEN_CROSS,
	"distinct": TOKEN_DISTINCT,
	"else":     TOKEN_ELSE,
	"end":      TOKEN_END,
	"exists":   TOKEN_EXISTS,
	"from":     TOKEN_FROM,
	"full":     TOKEN_FULL,
	"group":    TOKEN_GROUP,
	"having":   TOKEN_HAVING,
	"if":       TOKEN_IF,
	"in":       TOKEN_IN,
	"inner":    TOKEN_INNER,
	"is":       TOKEN_IS,
	"join":     TOKEN_JOIN,
	"left":     TOKEN_LEFT,
	"like":     TOKEN_LIKE,
	"limit":    TOKEN_LIMIT,
	"not":      TOKEN_NOT,
	"null":     TOKEN_NULL,
	"on":       TOKEN_ON,
	"or":       TOKEN_OR,
	"order":    TOKEN_ORDER,
	"outer":    TOKEN_OUTER,
	"replace":  TOKEN_REPLACE,
	"right":    TOKEN_RIGHT,
	"select":   TOKEN_SELECT,
	"table":    TOKEN_TABLE,
	"then":     TOKEN_THEN,
	"using":    TOKEN_USING,
	"when":     TOKEN_WHEN,
	"where":    TOKEN_WHERE,
}

// LookupIdent returns the token type for the given identifier.
// If the identifier is a keyword, the keyword token type is returned.
// Otherwise, TOKEN_IDENT is returned.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TOKEN_IDENT
}
