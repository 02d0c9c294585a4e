package builder

import (
	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/ast"
)

// DeleteBuilder assembles a DELETE statement.
type DeleteBuilder struct {
	*base
	node *ast.DeleteNode
}

// DeleteFrom starts a new DELETE builder targeting table.
func DeleteFrom(dialect sqlspec.Dialect, table string) *DeleteBuilder {
	node := ast.NewDelete()
	node.Table = ast.NewTableRef(table)

	return &DeleteBuilder{base: newBase(dialect), node: node}
}

// Where adds a predicate, AND-combined with any existing WHERE.
func (d *DeleteBuilder) Where(args ...any) *DeleteBuilder {
	pred, err := predicateFromArgs(d.base, "where", args...)
	if err != nil {
		return d
	}

	d.node.Where = andCombine(d.node.Where, pred)

	return d
}

// Returning adds a RETURNING column list.
func (d *DeleteBuilder) Returning(cols ...string) *DeleteBuilder {
	for _, c := range cols {
		d.node.Returning = append(d.node.Returning, ast.NewColumn(c))
	}

	return d
}

// WithOptimizations sets which transform passes build() applies.
func (d *DeleteBuilder) WithOptimizations(flags OptimizeFlags) *DeleteBuilder {
	d.flags = flags
	return d
}

// WithCTE binds alias to query's AST.
func (d *DeleteBuilder) WithCTE(alias string, query any) (*DeleteBuilder, error) {
	if err := d.base.WithCTE(alias, query, false); err != nil {
		return d, err
	}

	return d, nil
}

// AST implements astSource.
func (d *DeleteBuilder) AST() ast.Root { return d.node }

// Build materializes {text, params, dialect}.
func (d *DeleteBuilder) Build() (*BuiltStatement, error) {
	return finishBuild(d.base, d.node, func(root ast.Root, ctes []*ast.CTENode) ast.Root {
		del := root.(*ast.DeleteNode)
		cp := *del
		cp.CTEList = append(append([]*ast.CTENode{}, del.CTEList...), ctes...)

		return &cp
	})
}

// ToStatement is an alias for Build.
func (d *DeleteBuilder) ToStatement() (*BuiltStatement, error) { return d.Build() }

var (
	_ Builder   = (*DeleteBuilder)(nil)
	_ astSource = (*DeleteBuilder)(nil)
)
