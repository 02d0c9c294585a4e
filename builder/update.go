package builder

import (
	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/ast"
)

// UpdateBuilder assembles an UPDATE statement.
type UpdateBuilder struct {
	*base
	node *ast.UpdateNode
}

// Update starts a new UPDATE builder targeting table.
func Update(dialect sqlspec.Dialect, table string) *UpdateBuilder {
	node := ast.NewUpdate()
	node.Table = ast.NewTableRef(table)

	return &UpdateBuilder{base: newBase(dialect), node: node}
}

func (u *UpdateBuilder) valueNode(v any) ast.Node {
	if n, ok := v.(ast.Node); ok {
		return n
	}

	name := u.AddParameter(v, "update")
	val, _ := u.params.get(name)

	return ast.NewParameter(name, val)
}

// Set appends one col = value assignment.
func (u *UpdateBuilder) Set(col string, val any) *UpdateBuilder {
	u.node.SetList = append(u.node.SetList, &ast.SetClause{Column: col, Value: u.valueNode(val)})
	return u
}

// SetMany appends several col = value assignments in one call.
func (u *UpdateBuilder) SetMany(assignments map[string]any) *UpdateBuilder {
	for col, val := range assignments {
		u.Set(col, val)
	}

	return u
}

// Where adds a predicate, AND-combined with any existing WHERE.
func (u *UpdateBuilder) Where(args ...any) *UpdateBuilder {
	pred, err := predicateFromArgs(u.base, "where", args...)
	if err != nil {
		return u
	}

	u.node.Where = andCombine(u.node.Where, pred)

	return u
}

// Returning adds a RETURNING column list.
func (u *UpdateBuilder) Returning(cols ...string) *UpdateBuilder {
	for _, c := range cols {
		u.node.Returning = append(u.node.Returning, ast.NewColumn(c))
	}

	return u
}

// WithOptimizations sets which transform passes build() applies.
func (u *UpdateBuilder) WithOptimizations(flags OptimizeFlags) *UpdateBuilder {
	u.flags = flags
	return u
}

// WithCTE binds alias to query's AST.
func (u *UpdateBuilder) WithCTE(alias string, query any) (*UpdateBuilder, error) {
	if err := u.base.WithCTE(alias, query, false); err != nil {
		return u, err
	}

	return u, nil
}

// AST implements astSource.
func (u *UpdateBuilder) AST() ast.Root { return u.node }

// Build materializes {text, params, dialect}.
func (u *UpdateBuilder) Build() (*BuiltStatement, error) {
	return finishBuild(u.base, u.node, func(root ast.Root, ctes []*ast.CTENode) ast.Root {
		upd := root.(*ast.UpdateNode)
		cp := *upd
		cp.CTEList = append(append([]*ast.CTENode{}, upd.CTEList...), ctes...)

		return &cp
	})
}

// ToStatement is an alias for Build.
func (u *UpdateBuilder) ToStatement() (*BuiltStatement, error) { return u.Build() }

var (
	_ Builder   = (*UpdateBuilder)(nil)
	_ astSource = (*UpdateBuilder)(nil)
)
