// Package tokenizer lexes SQL text into a token stream consumed by the
// ast package's clause scanner. It has no notion of dialect beyond the
// reserved-keyword set in keywords.go: dialect-specific rendering
// decisions live in the ast and pipeline packages.
package tokenizer

import "errors"

// Sentinel errors
var (
	ErrUnexpectedCharacter = errors.New("unexpected character")
	ErrUnterminatedString  = errors.New("unterminated string literal")
	ErrUnterminatedComment = errors.New("unterminated block comment")
	ErrInvalidNumber       = errors.New("invalid number format")
)

// TokenType represents the type of a token
type TokenType int

const (
	// Basic tokens
	EOF TokenType = iota
	WHITESPACE
	WORD          // identifiers, keywords
	QUOTE         // string literals ('text', "text", `text`)
	NUMBER        // numeric literals
	OPENED_PARENS // (
	CLOSED_PARENS // )
	COMMA         // ,
	SEMICOLON     // ;
	DOT           // .

	// SQL operators
	EQUAL         // =
	NOT_EQUAL     // <>, !=
	LESS_THAN     // <
	GREATER_THAN  // >
	LESS_EQUAL    // <=
	GREATER_EQUAL // >=
	PLUS          // +
	MINUS         // -
	MULTIPLY      // *
	DIVIDE        // /
	CONCAT        // ||

	// Window function related
	OVER
	PARTITION
	ORDER
	BY
	ROWS
	RANGE
	UNBOUNDED
	PRECEDING
	FOLLOWING
	CURRENT
	ROW

	// Logical operators and conditional expressions
	AND
	OR
	NOT
	IN
	EXISTS
	BETWEEN
	LIKE
	IS
	NULL

	// Subquery and CTE related
	WITH
	AS
	SELECT
	INSERT
	UPDATE
	DELETE
	FROM
	WHERE
	GROUP
	HAVING
	UNION
	ALL
	DISTINCT
	EXCEPT
	INTERSECT
	CASE
	WHEN
	THEN
	ELSE
	END
	JOIN

	// Placeholders
	PLACEHOLDER_QMARK        // ?
	PLACEHOLDER_NUMERIC      // $1
	PLACEHOLDER_NAMED_COLON  // :name
	PLACEHOLDER_NAMED_AT     // @name
	PLACEHOLDER_NAMED_DOLLAR // $name
	PLACEHOLDER_FORMAT       // %s or %(name)s

	// Comments
	LINE_COMMENT  // -- line comment
	BLOCK_COMMENT // /* block comment */

	// Others
	OTHER // complex expressions, database-specific syntax
)

var tokenTypeNames = map[TokenType]string{
	EOF: "EOF", WHITESPACE: "WHITESPACE", WORD: "WORD", QUOTE: "QUOTE",
	NUMBER: "NUMBER", OPENED_PARENS: "OPENED_PARENS", CLOSED_PARENS: "CLOSED_PARENS",
	COMMA: "COMMA", SEMICOLON: "SEMICOLON", DOT: "DOT",
	EQUAL: "EQUAL", NOT_EQUAL: "NOT_EQUAL", LESS_THAN: "LESS_THAN", GREATER_THAN: "GREATER_THAN",
	LESS_EQUAL: "LESS_EQUAL", GREATER_EQUAL: "GREATER_EQUAL",
	PLUS: "PLUS", MINUS: "MINUS", MULTIPLY: "MULTIPLY", DIVIDE: "DIVIDE", CONCAT: "CONCAT",
	OVER: "OVER", PARTITION: "PARTITION", ORDER: "ORDER", BY: "BY", ROWS: "ROWS", RANGE: "RANGE",
	UNBOUNDED: "UNBOUNDED", PRECEDING: "PRECEDING", FOLLOWING: "FOLLOWING", CURRENT: "CURRENT", ROW: "ROW",
	AND: "AND", OR: "OR", NOT: "NOT", IN: "IN", EXISTS: "EXISTS", BETWEEN: "BETWEEN",
	LIKE: "LIKE", IS: "IS", NULL: "NULL",
	WITH: "WITH", AS: "AS", SELECT: "SELECT", INSERT: "INSERT", UPDATE: "UPDATE", DELETE: "DELETE",
	FROM: "FROM", WHERE: "WHERE", GROUP: "GROUP", HAVING: "HAVING", UNION: "UNION", ALL: "ALL",
	DISTINCT: "DISTINCT", EXCEPT: "EXCEPT", INTERSECT: "INTERSECT",
	CASE: "CASE", WHEN: "WHEN", THEN: "THEN", ELSE: "ELSE", END: "END", JOIN: "JOIN",
	PLACEHOLDER_QMARK: "PLACEHOLDER_QMARK", PLACEHOLDER_NUMERIC: "PLACEHOLDER_NUMERIC",
	PLACEHOLDER_NAMED_COLON: "PLACEHOLDER_NAMED_COLON", PLACEHOLDER_NAMED_AT: "PLACEHOLDER_NAMED_AT",
	PLACEHOLDER_NAMED_DOLLAR: "PLACEHOLDER_NAMED_DOLLAR", PLACEHOLDER_FORMAT: "PLACEHOLDER_FORMAT",
	LINE_COMMENT: "LINE_COMMENT", BLOCK_COMMENT: "BLOCK_COMMENT", OTHER: "OTHER",
}

// String returns the string representation of TokenType
func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}

	return "UNKNOWN"
}

// IsPlaceholder reports whether the token type is one of the placeholder
// families recognized by the AST Engine.
func (t TokenType) IsPlaceholder() bool {
	switch t {
	case PLACEHOLDER_QMARK, PLACEHOLDER_NUMERIC, PLACEHOLDER_NAMED_COLON,
		PLACEHOLDER_NAMED_AT, PLACEHOLDER_NAMED_DOLLAR, PLACEHOLDER_FORMAT:
		return true
	default:
		return false
	}
}

// Position represents a position in the source code
type Position struct {
	Line   int
	Column int
	Offset int
}

// Token represents a token
type Token struct {
	Type  TokenType
	Value string
	// Name is populated for placeholder tokens that carry an identifier
	// (":name", "@name", "$name", "%(name)s") and holds the digits of a
	// numbered one ("$1", ":1"); empty for "?" and "%s".
	Name     string
	Position Position
}

// String returns the string representation of Token
func (t Token) String() string {
	return t.Type.String() + ": " + t.Value
}
