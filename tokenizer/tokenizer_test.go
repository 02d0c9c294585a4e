package tokenizer

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestTokenIterator(t *testing.T) {
	sql := "SELECT id, name FROM users WHERE active = true;"
	tok := NewSqlTokenizer(sql)

	expectedTypes := []TokenType{
		SELECT, WHITESPACE, WORD, COMMA, WHITESPACE, WORD, WHITESPACE,
		FROM, WHITESPACE, WORD, WHITESPACE, WHERE, WHITESPACE, WORD,
		WHITESPACE, EQUAL, WHITESPACE, WORD, SEMICOLON, EOF,
	}

	var actualTypes []TokenType
	for token, err := range tok.Tokens() {
		assert.NoError(t, err)

		actualTypes = append(actualTypes, token.Type)

		if token.Type == EOF {
			break
		}
	}

	assert.Equal(t, expectedTypes, actualTypes)
}

func TestTokenIteratorWithOptions(t *testing.T) {
	sql := "SELECT id, name FROM users -- comment\nWHERE active = true;"
	tok := NewSqlTokenizer(sql, TokenizerOptions{
		SkipWhitespace: true,
		SkipComments:   true,
	})

	expectedTypes := []TokenType{
		SELECT, WORD, COMMA, WORD, FROM, WORD, WHERE, WORD, EQUAL, WORD, SEMICOLON, EOF,
	}

	var actualTypes []TokenType
	for token, err := range tok.Tokens() {
		assert.NoError(t, err)

		actualTypes = append(actualTypes, token.Type)

		if token.Type == EOF {
			break
		}
	}

	assert.Equal(t, expectedTypes, actualTypes)
}

func TestIteratorEarlyTermination(t *testing.T) {
	sql := "SELECT id, name FROM users WHERE active = true;"
	tok := NewSqlTokenizer(sql)

	count := 0
	for _, err := range tok.Tokens() {
		assert.NoError(t, err)

		count++

		if count >= 5 {
			break
		}
	}

	assert.Equal(t, 5, count)
}

func TestBasicTokens(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected TokenType
		value    string
	}{
		{"opened parens", "(", OPENED_PARENS, "("},
		{"closed parens", ")", CLOSED_PARENS, ")"},
		{"comma", ",", COMMA, ","},
		{"semicolon", ";", SEMICOLON, ";"},
		{"dot", ".", DOT, "."},
		{"equal", "=", EQUAL, "="},
		{"not equal (angle)", "<>", NOT_EQUAL, "<>"},
		{"not equal (bang)", "!=", NOT_EQUAL, "!="},
		{"less than", "<", LESS_THAN, "<"},
		{"greater than", ">", GREATER_THAN, ">"},
		{"less equal", "<=", LESS_EQUAL, "<="},
		{"greater equal", ">=", GREATER_EQUAL, ">="},
		{"plus", "+", PLUS, "+"},
		{"minus", "-", MINUS, "-"},
		{"multiply", "*", MULTIPLY, "*"},
		{"divide", "/", DIVIDE, "/"},
		{"concat", "||", CONCAT, "||"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := NewSqlTokenizer(tt.input)
			tokens, err := tok.AllTokens()

			assert.NoError(t, err)
			assert.Equal(t, 2, len(tokens))
			assert.Equal(t, tt.expected, tokens[0].Type)
			assert.Equal(t, tt.value, tokens[0].Value)
			assert.Equal(t, EOF, tokens[1].Type)
		})
	}
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		word     string
		expected TokenType
	}{
		{"SELECT", SELECT}, {"select", SELECT},
		{"INSERT", INSERT}, {"UPDATE", UPDATE}, {"DELETE", DELETE},
		{"FROM", FROM}, {"WHERE", WHERE}, {"GROUP", GROUP}, {"HAVING", HAVING},
		{"ORDER", ORDER}, {"BY", BY}, {"UNION", UNION}, {"ALL", ALL},
		{"DISTINCT", DISTINCT}, {"EXCEPT", EXCEPT}, {"INTERSECT", INTERSECT},
		{"AS", AS}, {"WITH", WITH}, {"AND", AND}, {"OR", OR}, {"NOT", NOT},
		{"IN", IN}, {"EXISTS", EXISTS}, {"BETWEEN", BETWEEN}, {"LIKE", LIKE},
		{"IS", IS}, {"NULL", NULL}, {"OVER", OVER}, {"PARTITION", PARTITION},
		{"ROWS", ROWS}, {"RANGE", RANGE}, {"UNBOUNDED", UNBOUNDED},
		{"PRECEDING", PRECEDING}, {"FOLLOWING", FOLLOWING}, {"CURRENT", CURRENT},
		{"ROW", ROW}, {"CASE", CASE}, {"WHEN", WHEN}, {"THEN", THEN},
		{"ELSE", ELSE}, {"END", END}, {"JOIN", JOIN},
		{"foo", WORD}, {"customer_id", WORD},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			tok := NewSqlTokenizer(tt.word)
			tokens, err := tok.AllTokens()

			assert.NoError(t, err)
			assert.Equal(t, tt.expected, tokens[0].Type)
		})
	}
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected TokenType
		value    string
		named    string
	}{
		{"qmark", "?", PLACEHOLDER_QMARK, "?", ""},
		{"numeric", "$1", PLACEHOLDER_NUMERIC, "$1", "1"},
		{"numeric multi-digit", "$12", PLACEHOLDER_NUMERIC, "$12", "12"},
		{"named colon", ":name", PLACEHOLDER_NAMED_COLON, ":name", "name"},
		{"named colon underscore", ":user_id", PLACEHOLDER_NAMED_COLON, ":user_id", "user_id"},
		{"oracle positional colon", ":1", PLACEHOLDER_NAMED_COLON, ":1", "1"},
		{"named at", "@name", PLACEHOLDER_NAMED_AT, "@name", "name"},
		{"named dollar", "$name", PLACEHOLDER_NAMED_DOLLAR, "$name", "name"},
		{"format anonymous", "%s", PLACEHOLDER_FORMAT, "%s", ""},
		{"format named", "%(name)s", PLACEHOLDER_FORMAT, "%(name)s", "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := NewSqlTokenizer(tt.input)
			tokens, err := tok.AllTokens()

			assert.NoError(t, err)
			assert.Equal(t, 2, len(tokens))
			assert.Equal(t, tt.expected, tokens[0].Type)
			assert.Equal(t, tt.value, tokens[0].Value)
			assert.Equal(t, tt.named, tokens[0].Name)
			assert.True(t, tokens[0].Type.IsPlaceholder())
		})
	}
}

func TestCastOperatorIsNotAPlaceholder(t *testing.T) {
	tok := NewSqlTokenizer("a::int", TokenizerOptions{SkipWhitespace: true})
	tokens, err := tok.AllTokens()

	assert.NoError(t, err)
	assert.Equal(t, 4, len(tokens))
	assert.Equal(t, WORD, tokens[0].Type)
	assert.Equal(t, OTHER, tokens[1].Type)
	assert.Equal(t, "::", tokens[1].Value)
	assert.Equal(t, WORD, tokens[2].Type)
}

func TestPlaceholderInStatement(t *testing.T) {
	sql := "SELECT * FROM users WHERE id = ? AND name = :name"
	tok := NewSqlTokenizer(sql, TokenizerOptions{SkipWhitespace: true})

	var placeholders []Token
	for token, err := range tok.Tokens() {
		assert.NoError(t, err)

		if token.Type.IsPlaceholder() {
			placeholders = append(placeholders, token)
		}

		if token.Type == EOF {
			break
		}
	}

	assert.Equal(t, 2, len(placeholders))
	assert.Equal(t, PLACEHOLDER_QMARK, placeholders[0].Type)
	assert.Equal(t, PLACEHOLDER_NAMED_COLON, placeholders[1].Type)
	assert.Equal(t, "name", placeholders[1].Name)
}

func TestStringLiterals(t *testing.T) {
	tests := []struct {
		name  string
		input string
		value string
	}{
		{"single quoted", "'hello'", "'hello'"},
		{"double quoted", `"hello"`, `"hello"`},
		{"backtick quoted", "`hello`", "`hello`"},
		{"escaped quote", "'it''s'", "'it''s'"},
		{"backslash escape", `'a\'b'`, `'a\'b'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := NewSqlTokenizer(tt.input)
			tokens, err := tok.AllTokens()

			assert.NoError(t, err)
			assert.Equal(t, QUOTE, tokens[0].Type)
			assert.Equal(t, tt.value, tokens[0].Value)
		})
	}
}

func TestUnterminatedString(t *testing.T) {
	tok := NewSqlTokenizer("'unterminated")
	_, err := tok.AllTokens()

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnterminatedString))
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input string
		value string
	}{
		{"123", "123"},
		{"3.14", "3.14"},
		{"1e10", "1e10"},
		{"1.5e-10", "1.5e-10"},
		{"2E+3", "2E+3"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewSqlTokenizer(tt.input)
			tokens, err := tok.AllTokens()

			assert.NoError(t, err)
			assert.Equal(t, NUMBER, tokens[0].Type)
			assert.Equal(t, tt.value, tokens[0].Value)
		})
	}
}

func TestInvalidNumber(t *testing.T) {
	tok := NewSqlTokenizer("1e")
	_, err := tok.AllTokens()

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidNumber))
}

func TestComments(t *testing.T) {
	sql := "SELECT 1 -- trailing\n/* block */ FROM dual"
	tok := NewSqlTokenizer(sql, TokenizerOptions{SkipWhitespace: true})

	tokens, err := tok.AllTokens()
	assert.NoError(t, err)

	var kinds []TokenType
	for _, token := range tokens {
		kinds = append(kinds, token.Type)
	}

	assert.Equal(t, []TokenType{SELECT, NUMBER, LINE_COMMENT, BLOCK_COMMENT, FROM, WORD, EOF}, kinds)
}

func TestUnterminatedBlockComment(t *testing.T) {
	tok := NewSqlTokenizer("/* never closed")
	_, err := tok.AllTokens()

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnterminatedComment))
}

func TestUnexpectedCharacterIsOther(t *testing.T) {
	tok := NewSqlTokenizer("#")
	tokens, err := tok.AllTokens()

	assert.NoError(t, err)
	assert.Equal(t, OTHER, tokens[0].Type)
	assert.Equal(t, "#", tokens[0].Value)
}

func TestTokenTypeString(t *testing.T) {
	assert.Equal(t, "SELECT", SELECT.String())
	assert.Equal(t, "PLACEHOLDER_NAMED_COLON", PLACEHOLDER_NAMED_COLON.String())
	assert.Equal(t, "UNKNOWN", TokenType(9999).String())
}

func TestTokenString(t *testing.T) {
	tok := Token{Type: WORD, Value: "users"}
	assert.Equal(t, "WORD: users", tok.String())
}
