package builder

import (
	"fmt"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/ast"
)

// InsertBuilder assembles an INSERT statement.
type InsertBuilder struct {
	*base
	node *ast.InsertNode
}

// InsertInto starts a new INSERT builder targeting table.
func InsertInto(dialect sqlspec.Dialect, table string) *InsertBuilder {
	node := ast.NewInsert()
	node.Table = ast.NewTableRef(table)

	return &InsertBuilder{base: newBase(dialect), node: node}
}

// Columns sets the insert column list.
func (b *InsertBuilder) Columns(cols ...string) *InsertBuilder {
	b.node.Columns = cols
	return b
}

// Values appends one row of values, captured as parameters in column
// order. Its length must equal the column list's — a mismatch is
// reported at Build() time via a validation error rather than panicking
// here, so callers can add columns after calling Values.
func (b *InsertBuilder) Values(vals ...any) *InsertBuilder {
	row := make([]ast.Node, len(vals))
	for i, v := range vals {
		row[i] = b.valueNode(v)
	}

	b.node.Rows = append(b.node.Rows, row)

	return b
}

// ValuesMany appends several rows in one call.
func (b *InsertBuilder) ValuesMany(rows [][]any) *InsertBuilder {
	for _, row := range rows {
		b.Values(row...)
	}

	return b
}

func (b *InsertBuilder) valueNode(v any) ast.Node {
	if n, ok := v.(ast.Node); ok {
		return n
	}

	name := b.AddParameter(v, "insert")
	val, _ := b.params.get(name)

	return ast.NewParameter(name, val)
}

// FromSelect sets the INSERT source to a SELECT, importing its parameter
// map. A builder set this way may not also
// carry literal VALUES rows.
func (b *InsertBuilder) FromSelect(sel *SelectBuilder) *InsertBuilder {
	renames := b.mergeParams(sel.base.params.snapshot())
	renamed := renameParams(sel.node, renames)

	if s, ok := renamed.(*ast.SelectNode); ok {
		b.node.FromSelect = s
	} else {
		b.node.FromSelect = sel.node
	}

	return b
}

// OnConflictDoNothing sets ON CONFLICT (target...) DO NOTHING.
func (b *InsertBuilder) OnConflictDoNothing(target ...string) *InsertBuilder {
	b.node.OnConflict = &ast.OnConflictClause{Target: target}
	return b
}

// OnConflictDoUpdate sets ON CONFLICT (target...) DO UPDATE SET col=val,
// one pair per call; call once per column, or use OnConflictDoUpdateMany.
func (b *InsertBuilder) OnConflictDoUpdate(target []string, col string, val any) *InsertBuilder {
	b.ensureOnConflictUpdate(target)
	b.node.OnConflict.SetList = append(b.node.OnConflict.SetList, &ast.SetClause{
		Column: col,
		Value:  b.valueNode(val),
	})

	return b
}

// OnConflictDoUpdateMany sets the full SET list in one call.
func (b *InsertBuilder) OnConflictDoUpdateMany(target []string, assignments map[string]any) *InsertBuilder {
	b.ensureOnConflictUpdate(target)
	for col, val := range assignments {
		b.node.OnConflict.SetList = append(b.node.OnConflict.SetList, &ast.SetClause{
			Column: col,
			Value:  b.valueNode(val),
		})
	}

	return b
}

func (b *InsertBuilder) ensureOnConflictUpdate(target []string) {
	if b.node.OnConflict == nil {
		b.node.OnConflict = &ast.OnConflictClause{Target: target, DoUpdate: true}
		return
	}

	b.node.OnConflict.Target = target
	b.node.OnConflict.DoUpdate = true
}

// OnConflictWhere adds a guard predicate to the DO UPDATE clause.
func (b *InsertBuilder) OnConflictWhere(args ...any) *InsertBuilder {
	if b.node.OnConflict == nil {
		return b
	}

	pred, err := predicateFromArgs(b.base, "on_conflict", args...)
	if err != nil {
		return b
	}

	b.node.OnConflict.Where = andCombine(b.node.OnConflict.Where, pred)

	return b
}

// Returning adds a RETURNING column list.
func (b *InsertBuilder) Returning(cols ...string) *InsertBuilder {
	for _, c := range cols {
		b.node.Returning = append(b.node.Returning, ast.NewColumn(c))
	}

	return b
}

// WithOptimizations sets which transform passes build() applies.
func (b *InsertBuilder) WithOptimizations(flags OptimizeFlags) *InsertBuilder {
	b.flags = flags
	return b
}

// WithCTE binds alias to query's AST.
func (b *InsertBuilder) WithCTE(alias string, query any) (*InsertBuilder, error) {
	if err := b.base.WithCTE(alias, query, false); err != nil {
		return b, err
	}

	return b, nil
}

// AST implements astSource.
func (b *InsertBuilder) AST() ast.Root { return b.node }

// validate enforces the column/row-length invariant and rejects VALUES
// rows combined with a SELECT source.
func (b *InsertBuilder) validate() error {
	if b.node.FromSelect != nil && len(b.node.Rows) > 0 {
		return fmt.Errorf("%w: insert has both a SELECT source and VALUES rows", sqlspec.ErrBuildFailure)
	}

	if len(b.node.Columns) == 0 {
		return nil
	}

	for i, row := range b.node.Rows {
		if len(row) != len(b.node.Columns) {
			return fmt.Errorf("%w: row %d has %d values, want %d", sqlspec.ErrBuildFailure, i, len(row), len(b.node.Columns))
		}
	}

	return nil
}

// Build materializes {text, params, dialect}.
func (b *InsertBuilder) Build() (*BuiltStatement, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	return finishBuild(b.base, b.node, func(root ast.Root, ctes []*ast.CTENode) ast.Root {
		ins := root.(*ast.InsertNode)
		cp := *ins
		cp.CTEList = append(append([]*ast.CTENode{}, ins.CTEList...), ctes...)

		return &cp
	})
}

// ToStatement is an alias for Build.
func (b *InsertBuilder) ToStatement() (*BuiltStatement, error) { return b.Build() }

var (
	_ Builder   = (*InsertBuilder)(nil)
	_ astSource = (*InsertBuilder)(nil)
)
