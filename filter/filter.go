// Package filter implements the Filter contract consumed by the Statement
// Pipeline and its built-in implementations: LimitOffset,
// OrderBy, CollectionFilter, NotInCollectionFilter, SearchFilter,
// NotInSearchFilter, BeforeAfter, and OnBeforeAfter.
package filter

import (
	"strconv"

	"github.com/sqlspec/sqlspec/ast"
	"github.com/sqlspec/sqlspec/sqlvalue"
)

// Filter contributes an AST rewrite and the parameters that rewrite
// references. contribute_ast runs before
// contribute_parameters so the AST already carries the Parameter nodes
// whose names contribute_parameters' map must satisfy.
type Filter interface {
	ContributeAST(root ast.Root) ast.Root
	ContributeParameters(params map[string]sqlvalue.Value) map[string]sqlvalue.Value
}

// namer hands out unique parameter names scoped to one filter instance,
// mirroring the Builder Layer's "context_param_N" naming
// so a filter's contributed names read the same as a builder's.
type namer struct {
	context string
	n       int
	values  map[string]sqlvalue.Value
}

func newNamer(context string) *namer {
	return &namer{context: context, values: map[string]sqlvalue.Value{}}
}

func (nm *namer) add(v any) string {
	name := nm.context + "_param_" + strconv.Itoa(nm.n)
	nm.n++
	nm.values[name] = sqlvalue.From(v)

	return name
}

// withWhere returns a shallow copy of root with its WHERE clause replaced
// by combine(existing). Only SelectNode, UpdateNode, and DeleteNode carry
// a WHERE clause; any other root is returned unchanged.
func withWhere(root ast.Root, combine func(existing ast.Node) ast.Node) ast.Root {
	switch n := root.(type) {
	case *ast.SelectNode:
		cp := *n
		cp.Where = combine(cp.Where)

		return &cp
	case *ast.UpdateNode:
		cp := *n
		cp.Where = combine(cp.Where)

		return &cp
	case *ast.DeleteNode:
		cp := *n
		cp.Where = combine(cp.Where)

		return &cp
	default:
		return root
	}
}

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

// LimitOffset sets LIMIT on a SELECT, overriding any value the query
// already carries; OFFSET is replaced only when Offset is positive, so a
// zero Offset leaves the query's own OFFSET in place.
type LimitOffset struct {
	Limit, Offset int
	nm            *namer
}

func NewLimitOffset(limit, offset int) *LimitOffset {
	return &LimitOffset{Limit: limit, Offset: offset, nm: newNamer("limit_offset")}
}

func (f *LimitOffset) ContributeAST(root ast.Root) ast.Root {
	sel, ok := root.(*ast.SelectNode)
	if !ok {
		return root
	}

	cp := *sel
	limitName := f.nm.add(int64(f.Limit))
	cp.Limit = ast.NewParameter(limitName, f.nm.values[limitName])

	if f.Offset > 0 {
		offsetName := f.nm.add(int64(f.Offset))
		cp.Offset = ast.NewParameter(offsetName, f.nm.values[offsetName])
	}

	return &cp
}

func (f *LimitOffset) ContributeParameters(params map[string]sqlvalue.Value) map[string]sqlvalue.Value {
	for k, v := range f.nm.values {
		params[k] = v
	}

	return params
}

// OrderBy appends ORDER BY items to a SELECT.
type OrderBy struct {
	Columns []string
	Descending []bool
}

func NewOrderBy(columns []string, descending []bool) *OrderBy {
	return &OrderBy{Columns: columns, Descending: descending}
}

func (f *OrderBy) ContributeAST(root ast.Root) ast.Root {
	sel, ok := root.(*ast.SelectNode)
	if !ok {
		return root
	}

	cp := *sel
	cp.OrderBy = append(append([]ast.Node{}, sel.OrderBy...), f.items()...)

	return &cp
}

func (f *OrderBy) items() []ast.Node {
	items := make([]ast.Node, len(f.Columns))

	for i, col := range f.Columns {
		desc := i < len(f.Descending) && f.Descending[i]
		items[i] = ast.NewOrdered(ast.NewColumn(col), desc)
	}

	return items
}

func (f *OrderBy) ContributeParameters(params map[string]sqlvalue.Value) map[string]sqlvalue.Value {
	return params
}

// CollectionFilter adds "column IN (...)" to the WHERE clause. A nil
// Values slice means the filter is not applied (all rows); an empty,
// non-nil slice means an empty result set, expressed as a constant-false
// predicate since "IN ()" is not valid SQL.
type CollectionFilter struct {
	Column string
	Values []any
	nm     *namer
}

func NewCollectionFilter(column string, values []any) *CollectionFilter {
	return &CollectionFilter{Column: column, Values: values, nm: newNamer(column + "_in")}
}

func (f *CollectionFilter) ContributeAST(root ast.Root) ast.Root {
	if f.Values == nil {
		return root
	}

	if len(f.Values) == 0 {
		pred := ast.NewRawExpr("1 = 0")
		return withWhere(root, func(existing ast.Node) ast.Node { return andCombine(existing, pred) })
	}

	pred := inPredicate(f.Column, f.Values, f.nm, false)

	return withWhere(root, func(existing ast.Node) ast.Node { return andCombine(existing, pred) })
}

func (f *CollectionFilter) ContributeParameters(params map[string]sqlvalue.Value) map[string]sqlvalue.Value {
	for k, v := range f.nm.values {
		params[k] = v
	}

	return params
}

// NotInCollectionFilter adds "column NOT IN (...)" to the WHERE clause.
// A nil or empty Values slice excludes nothing, so the filter is not
// applied and all rows are returned.
type NotInCollectionFilter struct {
	Column string
	Values []any
	nm     *namer
}

func NewNotInCollectionFilter(column string, values []any) *NotInCollectionFilter {
	return &NotInCollectionFilter{Column: column, Values: values, nm: newNamer(column + "_not_in")}
}

func (f *NotInCollectionFilter) ContributeAST(root ast.Root) ast.Root {
	if len(f.Values) == 0 {
		return root
	}

	pred := inPredicate(f.Column, f.Values, f.nm, true)

	return withWhere(root, func(existing ast.Node) ast.Node { return andCombine(existing, pred) })
}

func (f *NotInCollectionFilter) ContributeParameters(params map[string]sqlvalue.Value) map[string]sqlvalue.Value {
	for k, v := range f.nm.values {
		params[k] = v
	}

	return params
}

func inPredicate(column string, values []any, nm *namer, negate bool) ast.Node {
	r := ast.NewRawExpr(column)

	if negate {
		r.Append(" NOT IN (")
	} else {
		r.Append(" IN (")
	}

	for i, v := range values {
		if i > 0 {
			r.Append(", ")
		}

		name := nm.add(v)
		r.AppendNode(ast.NewParameter(name, nm.values[name]))
	}

	r.Append(")")

	return r
}

// SearchFilter adds "column LIKE :pattern" to the WHERE clause.
type SearchFilter struct {
	Column  string
	Pattern string
	nm      *namer
}

func NewSearchFilter(column, pattern string) *SearchFilter {
	return &SearchFilter{Column: column, Pattern: pattern, nm: newNamer(column + "_search")}
}

func (f *SearchFilter) predicate(negate bool) ast.Node {
	name := f.nm.add(f.Pattern)

	r := ast.NewRawExpr(f.Column)
	if negate {
		r.Append(" NOT LIKE ")
	} else {
		r.Append(" LIKE ")
	}

	r.AppendNode(ast.NewParameter(name, f.nm.values[name]))

	return r
}

func (f *SearchFilter) ContributeAST(root ast.Root) ast.Root {
	pred := f.predicate(false)
	return withWhere(root, func(existing ast.Node) ast.Node { return andCombine(existing, pred) })
}

func (f *SearchFilter) ContributeParameters(params map[string]sqlvalue.Value) map[string]sqlvalue.Value {
	for k, v := range f.nm.values {
		params[k] = v
	}

	return params
}

// NotInSearchFilter adds "column NOT LIKE :pattern" to the WHERE clause.
type NotInSearchFilter struct {
	Column  string
	Pattern string
	nm      *namer
}

func NewNotInSearchFilter(column, pattern string) *NotInSearchFilter {
	return &NotInSearchFilter{Column: column, Pattern: pattern, nm: newNamer(column + "_not_search")}
}

func (f *NotInSearchFilter) ContributeAST(root ast.Root) ast.Root {
	name := f.nm.add(f.Pattern)

	r := ast.NewRawExpr(f.Column + " NOT LIKE ")
	r.AppendNode(ast.NewParameter(name, f.nm.values[name]))

	return withWhere(root, func(existing ast.Node) ast.Node { return andCombine(existing, r) })
}

func (f *NotInSearchFilter) ContributeParameters(params map[string]sqlvalue.Value) map[string]sqlvalue.Value {
	for k, v := range f.nm.values {
		params[k] = v
	}

	return params
}

// BeforeAfter adds an exclusive "column > after AND column < before" range
// predicate on a datetime column; either bound is omitted by passing nil
// (a zero time.Time is not nil and is bound like any other value). With
// both bounds nil the WHERE clause is left unchanged.
type BeforeAfter struct {
	Column       string
	After, Before any
	nm           *namer
}

func NewBeforeAfter(column string, after, before any) *BeforeAfter {
	return &BeforeAfter{Column: column, After: after, Before: before, nm: newNamer(column + "_range")}
}

func (f *BeforeAfter) ContributeAST(root ast.Root) ast.Root {
	return withWhere(root, func(existing ast.Node) ast.Node {
		pred := f.rangePredicate(">", "<")
		if pred == nil {
			return existing
		}

		return andCombine(existing, pred)
	})
}

func (f *BeforeAfter) rangePredicate(afterOp, beforeOp string) ast.Node {
	var r *ast.RawExprNode

	if f.After != nil {
		name := f.nm.add(f.After)
		r = ast.NewRawExpr(f.Column + " " + afterOp + " ")
		r.AppendNode(ast.NewParameter(name, f.nm.values[name]))
	}

	if f.Before != nil {
		name := f.nm.add(f.Before)

		beforePred := ast.NewRawExpr(f.Column + " " + beforeOp + " ")
		beforePred.AppendNode(ast.NewParameter(name, f.nm.values[name]))

		if r == nil {
			return beforePred
		}

		return andCombine(r, beforePred)
	}

	return r
}

func (f *BeforeAfter) ContributeParameters(params map[string]sqlvalue.Value) map[string]sqlvalue.Value {
	for k, v := range f.nm.values {
		params[k] = v
	}

	return params
}

// OnBeforeAfter is BeforeAfter with inclusive bounds (>=/<=).
type OnBeforeAfter struct {
	Column        string
	After, Before any
	nm            *namer
}

func NewOnBeforeAfter(column string, after, before any) *OnBeforeAfter {
	return &OnBeforeAfter{Column: column, After: after, Before: before, nm: newNamer(column + "_range_incl")}
}

func (f *OnBeforeAfter) ContributeAST(root ast.Root) ast.Root {
	ba := &BeforeAfter{Column: f.Column, After: f.After, Before: f.Before, nm: f.nm}

	return withWhere(root, func(existing ast.Node) ast.Node {
		pred := ba.rangePredicate(">=", "<=")
		if pred == nil {
			return existing
		}

		return andCombine(existing, pred)
	})
}

func (f *OnBeforeAfter) ContributeParameters(params map[string]sqlvalue.Value) map[string]sqlvalue.Value {
	for k, v := range f.nm.values {
		params[k] = v
	}

	return params
}

var (
	_ Filter = (*LimitOffset)(nil)
	_ Filter = (*OrderBy)(nil)
	_ Filter = (*CollectionFilter)(nil)
	_ Filter = (*NotInCollectionFilter)(nil)
	_ Filter = (*SearchFilter)(nil)
	_ Filter = (*NotInSearchFilter)(nil)
	_ Filter = (*BeforeAfter)(nil)
	_ Filter = (*OnBeforeAfter)(nil)
)
