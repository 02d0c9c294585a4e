package ast

import (
	"fmt"
	"strings"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/tokenizer"
)

// StatementNode is the Root produced by parsing raw SQL text. Rather than
// building a fully structural tree for every clause, it captures the
// statement as a single RawExprNode spanning the whole input — exact
// enough for the round-trip law (render reproduces the original text
// byte-for-byte, a strictly stronger guarantee than the "up to
// whitespace/quoting" bar) and for placeholder inventory
// (every Placeholder token anywhere in the text, including inside
// subqueries, is reachable via Walk). Builder-constructed statements use
// the fully typed roots in roots.go instead; those carry real structure
// because the Builder Layer assembles them node by node rather than
// parsing text.
type StatementNode struct {
	Stmt      sqlspec.StatementKind
	Body      *RawExprNode
	CTEList   []*CTENode
	Returning bool
}

func (s *StatementNode) Kind() Kind {
	switch s.Stmt {
	case sqlspec.StatementSelect:
		return KindSelect
	case sqlspec.StatementInsert:
		return KindInsert
	case sqlspec.StatementUpdate:
		return KindUpdate
	case sqlspec.StatementDelete:
		return KindDelete
	case sqlspec.StatementMerge:
		return KindMerge
	default:
		return KindCreate
	}
}

func (s *StatementNode) StatementKind() sqlspec.StatementKind { return s.Stmt }
func (s *StatementNode) CTEs() []*CTENode                     { return s.CTEList }
func (s *StatementNode) HasReturning() bool                   { return s.Returning }
func (s *StatementNode) Children() []Node                     { return []Node{s.Body} }

func (s *StatementNode) WithChildren(children []Node) Node {
	cp := *s
	if len(children) > 0 {
		if b, ok := children[0].(*RawExprNode); ok {
			cp.Body = b
		}
	}

	return &cp
}

func (s *StatementNode) String() string { return s.Body.String() }

var _ Root = (*StatementNode)(nil)

// Parse parses raw SQL text into a Root under the given dialect. The tokenizer itself is
// dialect-agnostic; dialect is accepted for interface symmetry with
// Render and for future dialect-conditional syntax (e.g. Oracle's ":N"
// positional-vs-named compatibility shim).
func Parse(text string, dialect sqlspec.Dialect) (Root, error) {
	_ = dialect

	toks, err := tokenizer.NewSqlTokenizer(text).AllTokens()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sqlspec.ErrParse, err)
	}

	sig := firstSignificant(toks, 0)
	if sig < 0 {
		return nil, fmt.Errorf("%w: empty statement", sqlspec.ErrParse)
	}

	kw := strings.ToUpper(toks[sig].Value)

	var ctes []*CTENode

	if kw == "WITH" {
		parsed, consumed, err := parseStatementHead(toks)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed WITH clause: %v", sqlspec.ErrParse, err)
		}

		ctes = parsed

		next := firstSignificant(toks, consumed)
		if next < 0 {
			return nil, fmt.Errorf("%w: WITH clause with no following statement", sqlspec.ErrParse)
		}

		kw = strings.ToUpper(toks[next].Value)
	}

	stmtKind, ok := statementKindForKeyword(kw)
	if !ok {
		return nil, fmt.Errorf("%w: unrecognized statement keyword %q", sqlspec.ErrParse, kw)
	}

	body := buildRawExpr(toks)
	returning := scanTopLevelKeyword(toks, "RETURNING")

	return &StatementNode{Stmt: stmtKind, Body: body, CTEList: ctes, Returning: returning}, nil
}

func statementKindForKeyword(kw string) (sqlspec.StatementKind, bool) {
	switch kw {
	case "SELECT", "WITH":
		return sqlspec.StatementSelect, true
	case "INSERT":
		return sqlspec.StatementInsert, true
	case "UPDATE":
		return sqlspec.StatementUpdate, true
	case "DELETE":
		return sqlspec.StatementDelete, true
	case "MERGE":
		return sqlspec.StatementMerge, true
	case "CREATE", "DROP", "TRUNCATE", "ALTER":
		return sqlspec.StatementDDL, true
	default:
		return "", false
	}
}

// firstSignificant returns the index of the first token at or after start
// that is not whitespace/comment/EOF, or -1 if none remain.
func firstSignificant(toks []tokenizer.Token, start int) int {
	for i := start; i < len(toks); i++ {
		switch toks[i].Type {
		case tokenizer.WHITESPACE, tokenizer.LINE_COMMENT, tokenizer.BLOCK_COMMENT, tokenizer.EOF:
			continue
		default:
			return i
		}
	}

	return -1
}

// buildRawExpr concatenates a token span into a RawExprNode, splicing in a
// PlaceholderNode for every placeholder token encountered.
func buildRawExpr(toks []tokenizer.Token) *RawExprNode {
	r := &RawExprNode{}

	var pending strings.Builder

	flush := func() {
		if pending.Len() > 0 {
			r.Append(pending.String())
			pending.Reset()
		}
	}

	for _, tok := range toks {
		if tok.Type == tokenizer.EOF {
			continue
		}

		if tok.Type.IsPlaceholder() {
			flush()
			r.AppendNode(placeholderFromToken(tok))

			continue
		}

		pending.WriteString(tok.Value)
	}

	flush()

	return r
}

func placeholderFromToken(tok tokenizer.Token) *PlaceholderNode {
	p := &PlaceholderNode{}

	switch tok.Type {
	case tokenizer.PLACEHOLDER_QMARK:
		p.Style = sqlspec.StyleQMark
	case tokenizer.PLACEHOLDER_NUMERIC:
		p.Style = sqlspec.StyleNumeric
		p.Ordinal = tok.Name
	case tokenizer.PLACEHOLDER_NAMED_COLON:
		p.Style = sqlspec.StyleNamedColon
		p.Name = tok.Name
	case tokenizer.PLACEHOLDER_NAMED_AT:
		p.Style = sqlspec.StyleNamedAt
		p.Name = tok.Name
	case tokenizer.PLACEHOLDER_NAMED_DOLLAR:
		p.Style = sqlspec.StyleNamedDollar
		p.Name = tok.Name
	case tokenizer.PLACEHOLDER_FORMAT:
		p.Style = sqlspec.StyleFormat
		p.Name = tok.Name
	}

	return p
}

// scanTopLevelKeyword reports whether word appears anywhere in the token
// stream as a WORD token (case-insensitive). RETURNING is scanned at any
// paren depth: a data-modifying CTE's own RETURNING clause still makes
// the overall statement's result set carry returned columns in engines
// that support it, and this package leaves the nested case unspecified.
func scanTopLevelKeyword(toks []tokenizer.Token, word string) bool {
	for _, tok := range toks {
		if tok.Type == tokenizer.WORD && strings.EqualFold(tok.Value, word) {
			return true
		}
	}

	return false
}
