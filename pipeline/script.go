package pipeline

import (
	"strings"

	"github.com/sqlspec/sqlspec/tokenizer"
)

// splitScript splits text at top-level ';' boundaries, ignoring
// semicolons inside quotes/comments (the tokenizer already classifies
// those as QUOTE/LINE_COMMENT/BLOCK_COMMENT tokens, never SEMICOLON) and
// inside parentheses. Empty/whitespace-only
// segments (a trailing ';', blank lines between statements) are dropped.
// On a tokenizer error the whole text is returned as a single segment,
// letting the subsequent ast.Parse call surface the real ParseError.
func splitScript(text string) []string {
	toks, err := tokenizer.NewSqlTokenizer(text).AllTokens()
	if err != nil {
		return trimmedNonEmpty([]string{text})
	}

	var (
		parts []string
		buf   strings.Builder
		depth int
	)

	for _, tok := range toks {
		switch tok.Type {
		case tokenizer.EOF:
			continue
		case tokenizer.OPENED_PARENS:
			depth++
		case tokenizer.CLOSED_PARENS:
			depth--
		case tokenizer.SEMICOLON:
			if depth == 0 {
				parts = append(parts, buf.String())
				buf.Reset()

				continue
			}
		}

		buf.WriteString(tok.Value)
	}

	parts = append(parts, buf.String())

	return trimmedNonEmpty(parts)
}

// countTopLevelStatements reports how many non-empty segments splitScript
// produces (it runs the full split), used to decide whether a string
// input is a single statement or a script.
func countTopLevelStatements(text string) int {
	return len(splitScript(text))
}

func trimmedNonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}

		out = append(out, trimmed)
	}

	return out
}
