package builder

import (
	"fmt"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/ast"
)

// SelectBuilder assembles a SELECT statement.
type SelectBuilder struct {
	*base
	node *ast.SelectNode
}

// Select starts a new SELECT builder for dialect, with cols as the
// initial projection. With no columns, the built statement projects "*".
func Select(dialect sqlspec.Dialect, cols ...string) *SelectBuilder {
	node := ast.NewSelect()
	for _, c := range cols {
		node.Columns = append(node.Columns, ast.NewColumn(c))
	}

	return &SelectBuilder{base: newBase(dialect), node: node}
}

// Column appends an unaliased column to the select list; ColumnAs adds
// an aliased one.
func (s *SelectBuilder) Column(name string) *SelectBuilder {
	s.node.Columns = append(s.node.Columns, ast.NewColumn(name))
	return s
}

// ColumnAs appends a column aliased to alias.
func (s *SelectBuilder) ColumnAs(name, alias string) *SelectBuilder {
	s.node.Columns = append(s.node.Columns, ast.NewColumn(name).As(alias))
	return s
}

// Expr appends a raw expression (function call, arithmetic, CASE, ...) to
// the select list.
func (s *SelectBuilder) Expr(text string) *SelectBuilder {
	expr, err := ast.ParseExpr(text)
	if err == nil {
		s.node.Columns = append(s.node.Columns, expr)
	}

	return s
}

// Distinct marks the query SELECT DISTINCT.
func (s *SelectBuilder) Distinct() *SelectBuilder {
	s.node.Distinct = true
	return s
}

// From sets the FROM target: a bare table name, or a derived table via
// FromSubquery/FromCTE.
func (s *SelectBuilder) From(table string) *SelectBuilder {
	s.node.From = ast.NewTableRef(table)
	return s
}

// FromAs sets the FROM target with an alias.
func (s *SelectBuilder) FromAs(table, alias string) *SelectBuilder {
	s.node.From = ast.NewTableRef(table).As(alias)
	return s
}

// FromSubquery sets the FROM target to a derived table, importing sub's
// parameter map under s's.
func (s *SelectBuilder) FromSubquery(sub *SelectBuilder, alias string) *SelectBuilder {
	renames := s.mergeParams(sub.base.params.snapshot())
	inner := renameParams(sub.node, renames)

	sel, _ := inner.(*ast.SelectNode)
	s.node.From = &ast.TableRefNode{Alias: alias, Subquery: sel}

	return s
}

// FromCTE references a bound CTE by alias as the FROM target.
func (s *SelectBuilder) FromCTE(alias string) *SelectBuilder {
	s.node.From = &ast.TableRefNode{CTERef: alias}
	return s
}

// Join appends a join clause. on is parsed as a
// raw condition; kind is one of inner/left/right/full/cross.
func (s *SelectBuilder) Join(table, on, kind string) *SelectBuilder {
	var onNode ast.Node

	if on != "" {
		expr, err := ast.ParseExpr(on)
		if err != nil {
			expr = ast.NewRawExpr(on)
		}

		onNode = expr
	}

	s.node.Joins = append(s.node.Joins, &ast.JoinNode{
		JoinKind: kind,
		Table:    ast.NewTableRef(table),
		On:       onNode,
	})

	return s
}

// InnerJoin, LeftJoin, RightJoin, FullJoin, CrossJoin are convenience
// wrappers over Join for each supported join kind.
func (s *SelectBuilder) InnerJoin(table, on string) *SelectBuilder { return s.Join(table, on, "inner") }
func (s *SelectBuilder) LeftJoin(table, on string) *SelectBuilder  { return s.Join(table, on, "left") }
func (s *SelectBuilder) RightJoin(table, on string) *SelectBuilder { return s.Join(table, on, "right") }
func (s *SelectBuilder) FullJoin(table, on string) *SelectBuilder  { return s.Join(table, on, "full") }
func (s *SelectBuilder) CrossJoin(table string) *SelectBuilder     { return s.Join(table, "", "cross") }

// Where adds a predicate, AND-combined with any existing WHERE;
// predicate helpers accept a raw string, a (column, value) pair, a
// (column, op, value) triple, or an ast.Node.
func (s *SelectBuilder) Where(args ...any) *SelectBuilder {
	pred, err := predicateFromArgs(s.base, "where", args...)
	if err != nil {
		return s
	}

	s.node.Where = andCombine(s.node.Where, pred)

	return s
}

// GroupBy sets the GROUP BY list; rollup wraps it in ROLLUP(...).
func (s *SelectBuilder) GroupBy(rollup bool, cols ...string) *SelectBuilder {
	s.node.Rollup = rollup
	for _, c := range cols {
		s.node.GroupBy = append(s.node.GroupBy, ast.NewColumn(c))
	}

	return s
}

// Having adds a HAVING predicate, AND-combined with any existing one.
func (s *SelectBuilder) Having(args ...any) *SelectBuilder {
	pred, err := predicateFromArgs(s.base, "having", args...)
	if err != nil {
		return s
	}

	s.node.Having = andCombine(s.node.Having, pred)

	return s
}

// OrderBy appends an ORDER BY item.
func (s *SelectBuilder) OrderBy(col string, descending bool) *SelectBuilder {
	s.node.OrderBy = append(s.node.OrderBy, ast.NewOrdered(ast.NewColumn(col), descending))
	return s
}

// Limit sets LIMIT n.
func (s *SelectBuilder) Limit(n int) *SelectBuilder {
	s.node.Limit = s.literalParam("limit", int64(n))
	return s
}

// Offset sets OFFSET n.
func (s *SelectBuilder) Offset(n int) *SelectBuilder {
	s.node.Offset = s.literalParam("offset", int64(n))
	return s
}

func (s *SelectBuilder) literalParam(context string, value any) *ast.ParameterNode {
	name := s.AddParameter(value, context)
	v, _ := s.params.get(name)

	return ast.NewParameter(name, v)
}

// setOp appends a set operation against other, importing its parameter
// map.
func (s *SelectBuilder) setOp(op string, other *SelectBuilder) *SelectBuilder {
	renames := s.mergeParams(other.base.params.snapshot())
	right := renameParams(other.node, renames)

	rightSel, ok := right.(*ast.SelectNode)
	if !ok {
		rightSel = other.node
	}

	s.node.SetOps = append(s.node.SetOps, ast.SetOperation{Op: op, Right: rightSel})

	return s
}

func (s *SelectBuilder) Union(other *SelectBuilder) *SelectBuilder     { return s.setOp("UNION", other) }
func (s *SelectBuilder) UnionAll(other *SelectBuilder) *SelectBuilder  { return s.setOp("UNION ALL", other) }
func (s *SelectBuilder) Intersect(other *SelectBuilder) *SelectBuilder { return s.setOp("INTERSECT", other) }
func (s *SelectBuilder) Except(other *SelectBuilder) *SelectBuilder   { return s.setOp("EXCEPT", other) }

// Window appends a window-function expression to the select list.
func (s *SelectBuilder) Window(funcText string, partitionBy, orderBy []string, frame, alias string) *SelectBuilder {
	w := &ast.WindowNode{FuncText: funcText, Frame: frame, Alias: alias}
	for _, p := range partitionBy {
		w.PartitionBy = append(w.PartitionBy, ast.NewColumn(p))
	}

	for _, o := range orderBy {
		w.OrderBy = append(w.OrderBy, ast.NewColumn(o))
	}

	s.node.Columns = append(s.node.Columns, w)

	return s
}

// Count, Sum, Avg, Min, Max, CountDistinct append the corresponding
// aggregate to the select list.
func (s *SelectBuilder) aggregate(name, col string, distinct bool) *SelectBuilder {
	var arg ast.Node = ast.NewColumn(col)
	if col == "*" {
		arg = ast.NewRawExpr("*")
	}

	fn := ast.NewFunction(name, arg)
	fn.Distinct = distinct
	s.node.Columns = append(s.node.Columns, fn)

	return s
}

func (s *SelectBuilder) Count(col string) *SelectBuilder         { return s.aggregate("COUNT", col, false) }
func (s *SelectBuilder) CountDistinct(col string) *SelectBuilder { return s.aggregate("COUNT", col, true) }
func (s *SelectBuilder) Sum(col string) *SelectBuilder           { return s.aggregate("SUM", col, false) }
func (s *SelectBuilder) Avg(col string) *SelectBuilder           { return s.aggregate("AVG", col, false) }
func (s *SelectBuilder) Min(col string) *SelectBuilder           { return s.aggregate("MIN", col, false) }
func (s *SelectBuilder) Max(col string) *SelectBuilder           { return s.aggregate("MAX", col, false) }

// Pivot and Unpivot append a raw PIVOT/UNPIVOT clause as a select-list
// fragment; dialect support for the construct varies enough that it is
// expressed as a raw fragment rather than a dedicated node.
func (s *SelectBuilder) Pivot(text string) *SelectBuilder   { return s.Expr("PIVOT (" + text + ")") }
func (s *SelectBuilder) Unpivot(text string) *SelectBuilder { return s.Expr("UNPIVOT (" + text + ")") }

// Case starts a CaseBuilder bound to this select builder's parameter map;
// its End() appends the finished CASE expression to the select list.
func (s *SelectBuilder) Case() *CaseBuilder {
	return newCaseBuilder(s.base, func(n *ast.CaseNode) {
		s.node.Columns = append(s.node.Columns, n)
	})
}

// ForUpdate marks the query SELECT ... FOR UPDATE, used by the durable
// Event Queue's dequeue to take a row lock on the claimed candidate.
func (s *SelectBuilder) ForUpdate() *SelectBuilder {
	s.node.Lock = "FOR UPDATE"
	return s
}

// ForUpdateSkipLocked marks the query SELECT ... FOR UPDATE SKIP LOCKED,
// used on dialects whose Capabilities advertise SupportsSkipLocked so
// concurrent dequeue callers never block on each other's claimed rows.
func (s *SelectBuilder) ForUpdateSkipLocked() *SelectBuilder {
	s.node.Lock = "FOR UPDATE SKIP LOCKED"
	return s
}

// WithOptimizations sets which transform passes build() applies.
func (s *SelectBuilder) WithOptimizations(flags OptimizeFlags) *SelectBuilder {
	s.flags = flags
	return s
}

// WithCTE binds alias to query's AST.
func (s *SelectBuilder) WithCTE(alias string, query any) (*SelectBuilder, error) {
	if err := s.base.WithCTE(alias, query, false); err != nil {
		return s, err
	}

	return s, nil
}

// WithRecursiveCTE binds a recursive CTE.
func (s *SelectBuilder) WithRecursiveCTE(alias string, query any) (*SelectBuilder, error) {
	if err := s.base.WithCTE(alias, query, true); err != nil {
		return s, err
	}

	return s, nil
}

// AST implements astSource: exposes the current (possibly still growing)
// select node so this builder can be used as a CTE/subquery/set-operand
// source by another builder.
func (s *SelectBuilder) AST() ast.Root { return s.node }

// Build materializes {text, params, dialect}.
func (s *SelectBuilder) Build() (*BuiltStatement, error) {
	return finishBuild(s.base, s.node, func(root ast.Root, ctes []*ast.CTENode) ast.Root {
		sel := root.(*ast.SelectNode)
		cp := *sel
		cp.CTEList = append(append([]*ast.CTENode{}, sel.CTEList...), ctes...)

		return &cp
	})
}

// ToStatement is an alias for Build.
func (s *SelectBuilder) ToStatement() (*BuiltStatement, error) { return s.Build() }

func andCombine(existing, next ast.Node) ast.Node {
	if existing == nil {
		return next
	}

	r := ast.NewRawExpr("(")
	r.AppendNode(existing)
	r.Append(") AND (")
	r.AppendNode(next)
	r.Append(")")

	return r
}

// predicateFromArgs builds a predicate Node from the heterogeneous forms
// where() accepts: a raw string, (column, value), (column, op,
// value), or an ast.Node.
func predicateFromArgs(b *base, context string, args ...any) (ast.Node, error) {
	switch len(args) {
	case 1:
		switch v := args[0].(type) {
		case ast.Node:
			return v, nil
		case string:
			return ast.ParseExpr(v)
		default:
			return nil, fmt.Errorf("%w: unsupported predicate form %T", sqlspec.ErrBuildFailure, v)
		}
	case 2:
		col, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("%w: predicate column must be a string", sqlspec.ErrBuildFailure)
		}

		return equalityPredicate(b, col, args[1]), nil
	case 3:
		col, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("%w: predicate column must be a string", sqlspec.ErrBuildFailure)
		}

		op, ok := args[1].(string)
		if !ok {
			return nil, fmt.Errorf("%w: predicate operator must be a string", sqlspec.ErrBuildFailure)
		}

		return comparisonPredicate(b, context, col, op, args[2]), nil
	default:
		return nil, fmt.Errorf("%w: predicate takes 1, 2, or 3 arguments, got %d", sqlspec.ErrBuildFailure, len(args))
	}
}

// equalityPredicate builds "col = :param" or, for a nil value, the
// null-aware "col IS NULL" form.
func equalityPredicate(b *base, col string, value any) ast.Node {
	if value == nil {
		return ast.NewRawExpr(col + " IS NULL")
	}

	name := b.AddParameter(value, "where")
	v, _ := b.params.get(name)

	r := ast.NewRawExpr(col + " = ")
	r.AppendNode(ast.NewParameter(name, v))

	return r
}

func comparisonPredicate(b *base, context, col, op string, value any) ast.Node {
	name := b.AddParameter(value, context)
	v, _ := b.params.get(name)

	r := ast.NewRawExpr(col + " " + op + " ")
	r.AppendNode(ast.NewParameter(name, v))

	return r
}

var (
	_ Builder   = (*SelectBuilder)(nil)
	_ astSource = (*SelectBuilder)(nil)
)
