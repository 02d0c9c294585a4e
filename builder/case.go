package builder

import "github.com/sqlspec/sqlspec/ast"

// CaseBuilder assembles a CASE WHEN ... THEN ... ELSE ... END expression.
// It shares its parent builder's parameter map so a literal value passed
// to When/Else is captured the same way a where() value would be.
type CaseBuilder struct {
	base   *base
	node   *ast.CaseNode
	attach func(*ast.CaseNode)
}

func newCaseBuilder(b *base, attach func(*ast.CaseNode)) *CaseBuilder {
	return &CaseBuilder{base: b, node: ast.NewCase(), attach: attach}
}

// When appends a WHEN cond THEN value arm. cond accepts the same forms
// as where()'s single-argument case (a raw string or an ast.Node); value
// accepts a raw string column/expression, an ast.Node, or any other Go
// value, which is captured as a parameter.
func (c *CaseBuilder) When(cond, value any) *CaseBuilder {
	condNode, err := predicateFromArgs(c.base, "case", cond)
	if err != nil {
		return c
	}

	c.node.When(condNode, c.toNode(value))

	return c
}

// Else sets the CASE's default result.
func (c *CaseBuilder) Else(value any) *CaseBuilder {
	c.node.ElseValue(c.toNode(value))
	return c
}

// As aliases the finished CASE expression.
func (c *CaseBuilder) As(alias string) *CaseBuilder {
	c.node.Alias = alias
	return c
}

// End finalizes the CASE expression and appends it to the parent
// builder's select list.
func (c *CaseBuilder) End() {
	c.attach(c.node)
}

func (c *CaseBuilder) toNode(value any) ast.Node {
	switch v := value.(type) {
	case ast.Node:
		return v
	case string:
		expr, err := ast.ParseExpr(v)
		if err == nil {
			return expr
		}

		return ast.NewRawExpr(v)
	default:
		name := c.base.AddParameter(v, "case")
		val, _ := c.base.params.get(name)

		return ast.NewParameter(name, val)
	}
}
