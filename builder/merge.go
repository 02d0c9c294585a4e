package builder

import (
	"fmt"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/ast"
)

// MergeBuilder assembles a MERGE statement.
type MergeBuilder struct {
	*base
	node *ast.MergeNode
}

// MergeInto starts a new MERGE builder targeting table.
func MergeInto(dialect sqlspec.Dialect, table string) *MergeBuilder {
	node := ast.NewMerge()
	node.Target = ast.NewTableRef(table)

	return &MergeBuilder{base: newBase(dialect), node: node}
}

// Using sets the MERGE source table or alias.
func (m *MergeBuilder) Using(table string) *MergeBuilder {
	m.node.Source = ast.NewTableRef(table)
	return m
}

// UsingAs sets the MERGE source with an alias.
func (m *MergeBuilder) UsingAs(table, alias string) *MergeBuilder {
	m.node.Source = ast.NewTableRef(table).As(alias)
	return m
}

// UsingSubquery sets the MERGE source to a derived table, importing its
// parameter map.
func (m *MergeBuilder) UsingSubquery(sub *SelectBuilder, alias string) *MergeBuilder {
	renames := m.mergeParams(sub.base.params.snapshot())
	inner := renameParams(sub.node, renames)

	sel, _ := inner.(*ast.SelectNode)
	m.node.Source = &ast.TableRefNode{Alias: alias, Subquery: sel}

	return m
}

// On sets the MERGE join predicate.
func (m *MergeBuilder) On(args ...any) *MergeBuilder {
	pred, err := predicateFromArgs(m.base, "on", args...)
	if err != nil {
		return m
	}

	m.node.On = pred

	return m
}

func (m *MergeBuilder) valueNode(v any) ast.Node {
	if n, ok := v.(ast.Node); ok {
		return n
	}

	name := m.AddParameter(v, "merge")
	val, _ := m.params.get(name)

	return ast.NewParameter(name, val)
}

// WhenMatchedThenUpdate appends a WHEN MATCHED [AND cond] THEN UPDATE SET
// ... arm. A nil cond matches unconditionally.
func (m *MergeBuilder) WhenMatchedThenUpdate(cond any, assignments map[string]any) *MergeBuilder {
	w := &ast.MergeWhenNode{Matched: true}

	if cond != nil {
		if pred, err := predicateFromArgs(m.base, "merge_when", cond); err == nil {
			w.Cond = pred
		}
	}

	for col, val := range assignments {
		w.SetList = append(w.SetList, &ast.SetClause{Column: col, Value: m.valueNode(val)})
	}

	m.node.Whens = append(m.node.Whens, w)

	return m
}

// WhenMatchedThenDelete appends a WHEN MATCHED [AND cond] THEN DELETE arm.
func (m *MergeBuilder) WhenMatchedThenDelete(cond any) *MergeBuilder {
	w := &ast.MergeWhenNode{Matched: true, Delete: true}

	if cond != nil {
		if pred, err := predicateFromArgs(m.base, "merge_when", cond); err == nil {
			w.Cond = pred
		}
	}

	m.node.Whens = append(m.node.Whens, w)

	return m
}

// WhenNotMatchedThenInsert appends a WHEN NOT MATCHED THEN INSERT
// (columns...) VALUES (...) arm. len(cols) must equal len(vals); a mismatch is caught at
// Build() time.
func (m *MergeBuilder) WhenNotMatchedThenInsert(cols []string, vals []any) *MergeBuilder {
	w := &ast.MergeWhenNode{Matched: false, Columns: cols}
	for _, v := range vals {
		w.Values = append(w.Values, m.valueNode(v))
	}

	m.node.Whens = append(m.node.Whens, w)

	return m
}

// WithOptimizations stores the optimization flags. Build applies no
// transform pass to MERGE, so the flags have no effect on its output.
func (m *MergeBuilder) WithOptimizations(flags OptimizeFlags) *MergeBuilder {
	m.flags = flags
	return m
}

// AST implements astSource.
func (m *MergeBuilder) AST() ast.Root { return m.node }

// validate enforces the per-arm column/value-length invariant.
func (m *MergeBuilder) validate() error {
	for i, w := range m.node.Whens {
		if w.Matched || w.Delete {
			continue
		}

		if len(w.Values) > 0 && len(w.Columns) == 0 {
			return fmt.Errorf("%w: merge insert arm %d has values but no columns", sqlspec.ErrBuildFailure, i)
		}

		if len(w.Columns) > 0 && len(w.Columns) != len(w.Values) {
			return fmt.Errorf("%w: merge insert arm %d has %d columns, %d values", sqlspec.ErrBuildFailure, i, len(w.Columns), len(w.Values))
		}
	}

	return nil
}

// Build materializes {text, params, dialect}.
// MERGE carries no optimization passes (applyOptimizations restricts
// pushdown to SELECT/UPDATE/DELETE and join/subquery rewrites to SELECT;
// simplify only rewrites SELECT), so Build goes straight to render.
func (m *MergeBuilder) Build() (*BuiltStatement, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	withCTEs := ast.Root(m.node)
	if ctes := m.CTEList(); len(ctes) > 0 {
		cp := *m.node
		cp.CTEList = append(append([]*ast.CTENode{}, m.node.CTEList...), ctes...)
		withCTEs = &cp
	}

	text, err := ast.Render(withCTEs, m.dialect)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sqlspec.ErrBuildFailure, err)
	}

	return &BuiltStatement{
		Text:    text,
		Params:  m.params.snapshot(),
		Dialect: m.dialect,
		Root:    withCTEs,
	}, nil
}

// ToStatement is an alias for Build.
func (m *MergeBuilder) ToStatement() (*BuiltStatement, error) { return m.Build() }

var (
	_ Builder   = (*MergeBuilder)(nil)
	_ astSource = (*MergeBuilder)(nil)
)
