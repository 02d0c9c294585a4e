package ast

import "strings"

// exprPart is one fragment of a RawExprNode: either verbatim SQL text
// (an operator, keyword, identifier, or literal copied straight from the
// token stream) or a structured child Node (almost always a Placeholder
// or Parameter, but a builder may splice in a Column, Function, or Case).
type exprPart struct {
	text string
	node Node
}

// RawExprNode holds an expression (a WHERE/ON/HAVING predicate, a DEFAULT
// value, a CASE condition, ...) as a flat sequence of verbatim text
// interleaved with structured placeholder/parameter children. This is how
// the AST Engine stays comment/quote-aware without regex: the tokenizer already classifies quoted
// and commented spans as QUOTE/LINE_COMMENT/BLOCK_COMMENT tokens distinct
// from placeholder tokens, so a RawExprNode assembled from the token
// stream only ever contains a structured child where a genuine
// placeholder token was scanned.
type RawExprNode struct {
	parts []exprPart
}

// NewRawExpr wraps a verbatim SQL fragment with no embedded placeholders.
func NewRawExpr(text string) *RawExprNode {
	return &RawExprNode{parts: []exprPart{{text: text}}}
}

// Append adds a verbatim text fragment to the expression.
func (r *RawExprNode) Append(text string) *RawExprNode {
	r.parts = append(r.parts, exprPart{text: text})
	return r
}

// AppendNode splices a structured child (typically a Placeholder or
// Parameter) into the expression.
func (r *RawExprNode) AppendNode(n Node) *RawExprNode {
	r.parts = append(r.parts, exprPart{node: n})
	return r
}

func (r *RawExprNode) Kind() Kind { return KindRawExpr }

func (r *RawExprNode) Children() []Node {
	var children []Node

	for _, p := range r.parts {
		if p.node != nil {
			children = append(children, p.node)
		}
	}

	return children
}

func (r *RawExprNode) WithChildren(children []Node) Node {
	cp := &RawExprNode{parts: append([]exprPart{}, r.parts...)}
	i := 0

	for idx, p := range cp.parts {
		if p.node != nil {
			cp.parts[idx].node = children[i]
			i++
		}
	}

	return cp
}

func (r *RawExprNode) String() string {
	var b strings.Builder

	for _, p := range r.parts {
		if p.node != nil {
			b.WriteString(p.node.String())
		} else {
			b.WriteString(p.text)
		}
	}

	return strings.TrimSpace(b.String())
}

// IsEmpty reports whether the expression has no fragments at all.
func (r *RawExprNode) IsEmpty() bool { return len(r.parts) == 0 }
