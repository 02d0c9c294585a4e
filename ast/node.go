// Package ast implements the dialect-aware SQL parser/serializer that the
// rest of the core holds values from: parse/render, pre-order walk with
// copy-on-write replacement, find_all by kind, typed node constructors, and
// a handful of best-effort transform passes.
package ast

import (
	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/tokenizer"
)

// Kind identifies the concrete shape of a Node, matching the set of
// typed node constructors below.
type Kind int

const (
	KindColumn Kind = iota + 1
	KindLiteral
	KindPlaceholder
	KindParameter
	KindFunction
	KindOrdered
	KindCase
	KindWhen
	KindCTE
	KindJoin
	KindRawExpr
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
	KindMerge
	KindCreate
	KindDrop
	KindTruncate
)

func (k Kind) String() string {
	switch k {
	case KindColumn:
		return "Column"
	case KindLiteral:
		return "Literal"
	case KindPlaceholder:
		return "Placeholder"
	case KindParameter:
		return "Parameter"
	case KindFunction:
		return "Function"
	case KindOrdered:
		return "Ordered"
	case KindCase:
		return "Case"
	case KindWhen:
		return "When"
	case KindCTE:
		return "CTE"
	case KindJoin:
		return "Join"
	case KindRawExpr:
		return "RawExpr"
	case KindSelect:
		return "Select"
	case KindInsert:
		return "Insert"
	case KindUpdate:
		return "Update"
	case KindDelete:
		return "Delete"
	case KindMerge:
		return "Merge"
	case KindCreate:
		return "Create"
	case KindDrop:
		return "Drop"
	case KindTruncate:
		return "Truncate"
	default:
		return "Unknown"
	}
}

// Node is the common interface every AST value implements. Children/
// WithChildren give Walk a generic, type-agnostic way to rebuild a tree
// copy-on-write without a reflection-based visitor.
type Node interface {
	Kind() Kind
	Children() []Node
	WithChildren(children []Node) Node
	String() string
}

// Root is the interface satisfied by the eight statement root kinds.
// It adds the bits the Statement Pipeline and Builder
// Layer need uniformly: the statement's CTE list and a RETURNING probe.
type Root interface {
	Node
	StatementKind() sqlspec.StatementKind
	CTEs() []*CTENode
	HasReturning() bool
}

// Position is the source position of a parsed token; zero-value for nodes
// synthesized by the Builder Layer rather than parsed from text.
type Position = tokenizer.Position

func noChildren() []Node { return nil }
