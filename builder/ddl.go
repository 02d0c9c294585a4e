package builder

import (
	"fmt"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/ast"
)

// CreateBuilder assembles a CREATE TABLE AS SELECT / CREATE INDEX /
// CREATE SCHEMA statement.
type CreateBuilder struct {
	dialect sqlspec.Dialect
	node    *ast.CreateNode
	sel     *SelectBuilder // retained so Build() can merge its params
}

// CreateTableAs starts a CREATE TABLE name AS SELECT ... builder.
func CreateTableAs(dialect sqlspec.Dialect, name string, sel *SelectBuilder) *CreateBuilder {
	return &CreateBuilder{
		dialect: dialect,
		node: &ast.CreateNode{
			Variant:  "table_as_select",
			Name:     name,
			AsSelect: sel.node,
		},
		sel: sel,
	}
}

// IfNotExists adds IF NOT EXISTS to the CREATE.
func (c *CreateBuilder) IfNotExists() *CreateBuilder {
	c.node.IfNotExists = true
	return c
}

// CreateIndex starts a CREATE INDEX name ON table(cols...) builder.
func CreateIndex(dialect sqlspec.Dialect, name, table string, cols ...string) *CreateBuilder {
	return &CreateBuilder{
		dialect: dialect,
		node:    &ast.CreateNode{Variant: "index", Name: name, Table: table, Columns: cols},
	}
}

// Unique marks a CREATE INDEX as UNIQUE.
func (c *CreateBuilder) Unique() *CreateBuilder {
	c.node.Unique = true
	return c
}

// Using sets the index method (e.g. "btree", "gin").
func (c *CreateBuilder) Using(method string) *CreateBuilder {
	c.node.Using = method
	return c
}

// Where adds a partial-index predicate.
func (c *CreateBuilder) Where(text string) *CreateBuilder {
	expr, err := ast.ParseExpr(text)
	if err == nil {
		c.node.Where = expr
	}

	return c
}

// CreateSchema starts a CREATE SCHEMA name builder.
func CreateSchema(dialect sqlspec.Dialect, name string) *CreateBuilder {
	return &CreateBuilder{dialect: dialect, node: &ast.CreateNode{Variant: "schema", Name: name}}
}

// Authorization sets CREATE SCHEMA's AUTHORIZATION role.
func (c *CreateBuilder) Authorization(role string) *CreateBuilder {
	c.node.Authorization = role
	return c
}

// Build materializes {text, params, dialect}.
func (c *CreateBuilder) Build() (*BuiltStatement, error) {
	text, err := ast.Render(c.node, c.dialect)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sqlspec.ErrBuildFailure, err)
	}

	out := &BuiltStatement{Text: text, Dialect: c.dialect, Root: c.node}
	if c.sel != nil {
		out.Params = c.sel.params.snapshot()
	}

	return out, nil
}

var _ Builder = (*CreateBuilder)(nil)

// DropBuilder assembles a DROP TABLE/INDEX/VIEW/SCHEMA statement.
type DropBuilder struct {
	dialect sqlspec.Dialect
	node    *ast.DropNode
}

func dropBuilder(dialect sqlspec.Dialect, variant, name string) *DropBuilder {
	return &DropBuilder{dialect: dialect, node: &ast.DropNode{Variant: variant, Name: name}}
}

// DropTable, DropIndex, DropView, DropSchema start a DROP builder for
// each DDL object kind.
func DropTable(dialect sqlspec.Dialect, name string) *DropBuilder  { return dropBuilder(dialect, "table", name) }
func DropIndex(dialect sqlspec.Dialect, name string) *DropBuilder  { return dropBuilder(dialect, "index", name) }
func DropView(dialect sqlspec.Dialect, name string) *DropBuilder   { return dropBuilder(dialect, "view", name) }
func DropSchema(dialect sqlspec.Dialect, name string) *DropBuilder { return dropBuilder(dialect, "schema", name) }

// IfExists adds IF EXISTS to the DROP.
func (d *DropBuilder) IfExists() *DropBuilder {
	d.node.IfExists = true
	return d
}

// Cascade selects CASCADE instead of the default RESTRICT.
func (d *DropBuilder) Cascade() *DropBuilder {
	d.node.Cascade = true
	return d
}

// Build materializes {text, params, dialect}.
func (d *DropBuilder) Build() (*BuiltStatement, error) {
	text, err := ast.Render(d.node, d.dialect)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sqlspec.ErrBuildFailure, err)
	}

	return &BuiltStatement{Text: text, Dialect: d.dialect, Root: d.node}, nil
}

var _ Builder = (*DropBuilder)(nil)

// TruncateBuilder assembles a TRUNCATE TABLE statement.
type TruncateBuilder struct {
	dialect sqlspec.Dialect
	node    *ast.TruncateNode
}

// TruncateTable starts a TRUNCATE TABLE name builder.
func TruncateTable(dialect sqlspec.Dialect, name string) *TruncateBuilder {
	return &TruncateBuilder{dialect: dialect, node: &ast.TruncateNode{Table: name}}
}

// Cascade selects CASCADE instead of the default RESTRICT.
func (t *TruncateBuilder) Cascade() *TruncateBuilder {
	t.node.Cascade = true
	return t
}

// RestartIdentity sets RESTART IDENTITY (true) or CONTINUE IDENTITY
// (false); leave unset to omit the clause entirely.
func (t *TruncateBuilder) RestartIdentity(restart bool) *TruncateBuilder {
	t.node.RestartIdentity = &restart
	return t
}

// Build materializes {text, params, dialect}.
func (t *TruncateBuilder) Build() (*BuiltStatement, error) {
	text, err := ast.Render(t.node, t.dialect)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sqlspec.ErrBuildFailure, err)
	}

	return &BuiltStatement{Text: text, Dialect: t.dialect, Root: t.node}, nil
}

var _ Builder = (*TruncateBuilder)(nil)
