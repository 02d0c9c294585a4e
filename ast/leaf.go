package ast

import (
	"fmt"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/sqlvalue"
)

// ColumnNode references a column, optionally table-qualified and aliased.
type ColumnNode struct {
	Table string
	Name  string
	Alias string
}

func NewColumn(name string) *ColumnNode { return &ColumnNode{Name: name} }

func (c *ColumnNode) Kind() Kind             { return KindColumn }
func (c *ColumnNode) Children() []Node       { return noChildren() }
func (c *ColumnNode) WithChildren([]Node) Node { return c }
func (c *ColumnNode) String() string {
	s := c.Name
	if c.Table != "" {
		s = c.Table + "." + s
	}

	if c.Alias != "" {
		s += " AS " + c.Alias
	}

	return s
}

// Qualify returns a copy of the column qualified by table.
func (c *ColumnNode) Qualify(table string) *ColumnNode {
	cp := *c
	cp.Table = table

	return &cp
}

// As returns a copy of the column with the given alias.
func (c *ColumnNode) As(alias string) *ColumnNode {
	cp := *c
	cp.Alias = alias

	return &cp
}

// LiteralNode is a literal value rendered verbatim into SQL text (numbers,
// strings, booleans, NULL). Unlike Parameter, a Literal never crosses the
// placeholder boundary — it is inlined at render time.
type LiteralNode struct {
	Text string
}

func NewLiteral(text string) *LiteralNode { return &LiteralNode{Text: text} }

func (l *LiteralNode) Kind() Kind               { return KindLiteral }
func (l *LiteralNode) Children() []Node         { return noChildren() }
func (l *LiteralNode) WithChildren([]Node) Node { return l }
func (l *LiteralNode) String() string           { return l.Text }

// PlaceholderNode is a parameter marker found while parsing raw SQL text.
// Name is set for named styles; Ordinal is set for numeric
// styles ($1, :1); both are empty for a bare positional "?".
type PlaceholderNode struct {
	Style   sqlspec.ParameterStyle
	Name    string
	Ordinal string
}

func (p *PlaceholderNode) Kind() Kind               { return KindPlaceholder }
func (p *PlaceholderNode) Children() []Node         { return noChildren() }
func (p *PlaceholderNode) WithChildren([]Node) Node { return p }
func (p *PlaceholderNode) String() string {
	switch p.Style {
	case sqlspec.StyleNamedAt:
		return "@" + p.Name
	case sqlspec.StyleNamedDollar:
		return "$" + p.Name
	case sqlspec.StyleNamedColon:
		return ":" + p.Name
	case sqlspec.StyleNumeric:
		return "$" + p.Ordinal
	case sqlspec.StyleFormat:
		if p.Name != "" {
			return "%(" + p.Name + ")s"
		}

		return "%s"
	default:
		return "?"
	}
}

// IsNamed reports whether the placeholder carries a name rather than being
// purely positional.
func (p *PlaceholderNode) IsNamed() bool { return p.Name != "" }

// IsNumeric reports whether the placeholder is a digit-tagged positional
// marker ($1, :1).
func (p *PlaceholderNode) IsNumeric() bool { return p.Ordinal != "" }

// ParameterNode is a value captured by the Builder Layer's AddParameter.
// It renders as a Placeholder bound to Name at build time; Value is
// never interpolated into SQL text.
type ParameterNode struct {
	Name  string
	Value sqlvalue.Value
}

func NewParameter(name string, value sqlvalue.Value) *ParameterNode {
	return &ParameterNode{Name: name, Value: value}
}

func (p *ParameterNode) Kind() Kind               { return KindParameter }
func (p *ParameterNode) Children() []Node         { return noChildren() }
func (p *ParameterNode) WithChildren([]Node) Node { return p }
func (p *ParameterNode) String() string           { return ":" + p.Name }

// FunctionNode is a function call: name(args...), optionally DISTINCT
// (count_distinct et al.).
type FunctionNode struct {
	Name     string
	Args     []Node
	Distinct bool
	Alias    string
}

func NewFunction(name string, args ...Node) *FunctionNode {
	return &FunctionNode{Name: name, Args: args}
}

func (f *FunctionNode) Kind() Kind       { return KindFunction }
func (f *FunctionNode) Children() []Node { return f.Args }
func (f *FunctionNode) WithChildren(children []Node) Node {
	cp := *f
	cp.Args = children

	return &cp
}

func (f *FunctionNode) String() string {
	s := f.Name + "("
	if f.Distinct {
		s += "DISTINCT "
	}

	for i, a := range f.Args {
		if i > 0 {
			s += ", "
		}

		s += a.String()
	}

	s += ")"
	if f.Alias != "" {
		s += " AS " + f.Alias
	}

	return s
}

// As returns a copy of the function call with the given alias.
func (f *FunctionNode) As(alias string) *FunctionNode {
	cp := *f
	cp.Alias = alias

	return &cp
}

// OrderedNode wraps an expression with ORDER BY direction/null ordering.
type OrderedNode struct {
	Expr       Node
	Descending bool
	NullsFirst *bool
}

func NewOrdered(expr Node, descending bool) *OrderedNode {
	return &OrderedNode{Expr: expr, Descending: descending}
}

func (o *OrderedNode) Kind() Kind       { return KindOrdered }
func (o *OrderedNode) Children() []Node { return []Node{o.Expr} }
func (o *OrderedNode) WithChildren(children []Node) Node {
	cp := *o
	if len(children) > 0 {
		cp.Expr = children[0]
	}

	return &cp
}

func (o *OrderedNode) String() string {
	dir := "ASC"
	if o.Descending {
		dir = "DESC"
	}

	s := o.Expr.String() + " " + dir
	if o.NullsFirst != nil {
		if *o.NullsFirst {
			s += " NULLS FIRST"
		} else {
			s += " NULLS LAST"
		}
	}

	return s
}

// WhenNode is one WHEN condition THEN result arm of a Case.
type WhenNode struct {
	Condition Node
	Result    Node
}

func NewWhen(condition, result Node) *WhenNode {
	return &WhenNode{Condition: condition, Result: result}
}

func (w *WhenNode) Kind() Kind       { return KindWhen }
func (w *WhenNode) Children() []Node { return []Node{w.Condition, w.Result} }
func (w *WhenNode) WithChildren(children []Node) Node {
	cp := *w
	if len(children) > 0 {
		cp.Condition = children[0]
	}

	if len(children) > 1 {
		cp.Result = children[1]
	}

	return &cp
}

func (w *WhenNode) String() string {
	return fmt.Sprintf("WHEN %s THEN %s", w.Condition, w.Result)
}

// CaseNode is a CASE expression.
type CaseNode struct {
	Whens []*WhenNode
	Else  Node
	Alias string
}

func NewCase() *CaseNode { return &CaseNode{} }

func (c *CaseNode) Kind() Kind { return KindCase }

func (c *CaseNode) Children() []Node {
	children := make([]Node, 0, len(c.Whens)+1)
	for _, w := range c.Whens {
		children = append(children, w)
	}

	if c.Else != nil {
		children = append(children, c.Else)
	}

	return children
}

func (c *CaseNode) WithChildren(children []Node) Node {
	cp := *c
	cp.Whens = nil

	for _, child := range children {
		if w, ok := child.(*WhenNode); ok {
			cp.Whens = append(cp.Whens, w)
			continue
		}

		cp.Else = child
	}

	return &cp
}

func (c *CaseNode) String() string {
	s := "CASE"
	for _, w := range c.Whens {
		s += " " + w.String()
	}

	if c.Else != nil {
		s += " ELSE " + c.Else.String()
	}

	s += " END"
	if c.Alias != "" {
		s += " AS " + c.Alias
	}

	return s
}

// When appends a WHEN condition THEN value arm and returns the receiver.
func (c *CaseNode) When(condition, value Node) *CaseNode {
	c.Whens = append(c.Whens, NewWhen(condition, value))
	return c
}

// ElseValue sets the default value and returns the receiver.
func (c *CaseNode) ElseValue(value Node) *CaseNode {
	c.Else = value
	return c
}
