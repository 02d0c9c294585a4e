package ast

import (
	"strings"

	pc "github.com/shibukawa/parsercombinator"

	"github.com/sqlspec/sqlspec/tokenizer"
)

// The statement-head grammar — the "WITH [RECURSIVE] alias AS (body),
// alias AS (body), ..." prefix in front of the main statement keyword —
// is parsed with parsercombinator over the tokenizer's token stream.
// Matched tokens are re-tagged ("cte_alias", "cte_body", "recursive") so
// parseStatementHead can assemble CTENodes from the flat result without a
// second pass over the input.

func toParserTokens(toks []tokenizer.Token) []pc.Token[tokenizer.Token] {
	out := make([]pc.Token[tokenizer.Token], len(toks))

	for i, t := range toks {
		out[i] = pc.Token[tokenizer.Token]{
			Type: "raw",
			Pos: &pc.Pos{
				Line:  t.Position.Line,
				Col:   t.Position.Column,
				Index: t.Position.Offset,
			},
			Val: t,
			Raw: t.Value,
		}
	}

	return out
}

// tokenOfType matches one token of any of the given types, re-tagging it
// with name.
func tokenOfType(name string, types ...tokenizer.TokenType) pc.Parser[tokenizer.Token] {
	return func(_ *pc.ParseContext[tokenizer.Token], tokens []pc.Token[tokenizer.Token]) (int, []pc.Token[tokenizer.Token], error) {
		if len(tokens) == 0 {
			return 0, nil, pc.ErrNotMatch
		}

		for _, tt := range types {
			if tokens[0].Val.Type == tt {
				out := tokens[0]
				out.Type = name

				return 1, []pc.Token[tokenizer.Token]{out}, nil
			}
		}

		return 0, nil, pc.ErrNotMatch
	}
}

// keywordOf matches a WORD token by value, case-insensitively.
func keywordOf(name, word string) pc.Parser[tokenizer.Token] {
	return func(_ *pc.ParseContext[tokenizer.Token], tokens []pc.Token[tokenizer.Token]) (int, []pc.Token[tokenizer.Token], error) {
		if len(tokens) > 0 && tokens[0].Val.Type == tokenizer.WORD && strings.EqualFold(tokens[0].Val.Value, word) {
			out := tokens[0]
			out.Type = name

			return 1, []pc.Token[tokenizer.Token]{out}, nil
		}

		return 0, nil, pc.ErrNotMatch
	}
}

// parenBlock consumes one balanced parenthesized span, yielding the inner
// tokens tagged "cte_body". The parens themselves are dropped; CTENode's
// renderer re-adds them.
func parenBlock(_ *pc.ParseContext[tokenizer.Token], tokens []pc.Token[tokenizer.Token]) (int, []pc.Token[tokenizer.Token], error) {
	if len(tokens) == 0 || tokens[0].Val.Type != tokenizer.OPENED_PARENS {
		return 0, nil, pc.ErrNotMatch
	}

	depth := 0

	for i, t := range tokens {
		switch t.Val.Type {
		case tokenizer.OPENED_PARENS:
			depth++
		case tokenizer.CLOSED_PARENS:
			depth--
			if depth == 0 {
				body := make([]pc.Token[tokenizer.Token], 0, i)
				for _, inner := range tokens[1:i] {
					inner.Type = "cte_body"
					body = append(body, inner)
				}

				return i + 1, body, nil
			}
		}
	}

	return 0, nil, pc.ErrNotMatch
}

var (
	headSpace = tokenOfType("space", tokenizer.WHITESPACE, tokenizer.LINE_COMMENT, tokenizer.BLOCK_COMMENT)
	headSP    = pc.Drop(pc.ZeroOrMore("space or comment", headSpace))

	cteEntry = pc.Seq(
		headSP,
		tokenOfType("cte_alias", tokenizer.WORD),
		headSP,
		pc.Drop(tokenOfType("as", tokenizer.AS)),
		headSP,
		pc.Parser[tokenizer.Token](parenBlock),
	)

	ctePrefix = pc.Seq(
		headSP,
		pc.Drop(tokenOfType("with", tokenizer.WITH)),
		headSP,
		pc.Optional(keywordOf("recursive", "RECURSIVE")),
		cteEntry,
		pc.ZeroOrMore("following ctes",
			pc.Seq(headSP, pc.Drop(tokenOfType("comma", tokenizer.COMMA)), cteEntry)),
	)
)

// parseStatementHead parses the WITH prefix at the start of toks,
// returning the CTE list and the token index where the main statement
// begins. pc.ErrNotMatch (or a combinator error) means the prefix is
// malformed; the caller only invokes this after seeing a leading WITH.
func parseStatementHead(toks []tokenizer.Token) ([]*CTENode, int, error) {
	pctx := pc.NewParseContext[tokenizer.Token]()

	consumed, matched, err := ctePrefix(pctx, toParserTokens(toks))
	if err != nil {
		return nil, 0, err
	}

	recursive := false

	var (
		ctes   []*CTENode
		bodies [][]tokenizer.Token
	)

	for _, t := range matched {
		switch t.Type {
		case "recursive":
			recursive = true
		case "cte_alias":
			ctes = append(ctes, &CTENode{Alias: t.Val.Value})
			bodies = append(bodies, nil)
		case "cte_body":
			bodies[len(bodies)-1] = append(bodies[len(bodies)-1], t.Val)
		}
	}

	for i, c := range ctes {
		c.Recursive = recursive
		c.Body = buildRawExpr(bodies[i])
	}

	return ctes, consumed, nil
}
