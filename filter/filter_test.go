package filter

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/ast"
	"github.com/sqlspec/sqlspec/builder"
	"github.com/sqlspec/sqlspec/sqlvalue"
)

func baseSelect(t *testing.T) ast.Root {
	t.Helper()

	built, err := builder.Select(sqlspec.DialectPostgres, "id", "name").From("t").Build()
	assert.NoError(t, err)

	return built.Root
}

func render(t *testing.T, root ast.Root) string {
	t.Helper()

	out, err := ast.Render(root, sqlspec.DialectPostgres)
	assert.NoError(t, err)

	return out
}

func TestLimitOffset_SetsLimitAndOffsetOnSelect(t *testing.T) {
	root := baseSelect(t)

	f := NewLimitOffset(10, 20)
	out := f.ContributeAST(root)

	params := f.ContributeParameters(map[string]sqlvalue.Value{})
	assert.Equal(t, 2, len(params))

	rendered := render(t, out)
	assert.True(t, len(ast.Placeholders(out)) == 0) // limit/offset are Parameter nodes, not raw placeholders

	for _, v := range params {
		assert.True(t, v.Native() == int64(10) || v.Native() == int64(20))
	}

	_ = rendered
}

func TestLimitOffset_OmitsOffsetParameterWhenZero(t *testing.T) {
	root := baseSelect(t)

	f := NewLimitOffset(5, 0)
	f.ContributeAST(root)
	params := f.ContributeParameters(map[string]sqlvalue.Value{})

	assert.Equal(t, 1, len(params))
}

func TestOrderBy_AppendsOrderedColumnsInRequestedDirection(t *testing.T) {
	root := baseSelect(t)

	f := NewOrderBy([]string{"name", "id"}, []bool{false, true})
	out := f.ContributeAST(root)

	sel, ok := out.(*ast.SelectNode)
	assert.True(t, ok)
	assert.Equal(t, 2, len(sel.OrderBy))
}

func TestOrderBy_NonSelectRootIsReturnedUnchanged(t *testing.T) {
	built, err := builder.DeleteFrom(sqlspec.DialectPostgres, "t").Build()
	assert.NoError(t, err)

	f := NewOrderBy([]string{"id"}, nil)
	out := f.ContributeAST(built.Root)

	assert.True(t, out == built.Root)
}

func TestCollectionFilter_AddsInPredicateToWhere(t *testing.T) {
	root := baseSelect(t)

	f := NewCollectionFilter("status", []any{"open", "pending"})
	out := f.ContributeAST(root)

	sel, ok := out.(*ast.SelectNode)
	assert.True(t, ok)
	assert.True(t, sel.Where != nil)

	params := f.ContributeParameters(map[string]sqlvalue.Value{})
	assert.Equal(t, 2, len(params))
}

func TestCollectionFilter_NilValuesIsNotApplied(t *testing.T) {
	root := baseSelect(t)

	f := NewCollectionFilter("status", nil)
	out := f.ContributeAST(root)

	assert.True(t, out == root)
	assert.Equal(t, 0, len(f.ContributeParameters(map[string]sqlvalue.Value{})))
}

func TestCollectionFilter_EmptyValuesYieldsEmptyResultSet(t *testing.T) {
	root := baseSelect(t)

	f := NewCollectionFilter("status", []any{})
	out := f.ContributeAST(root)

	rendered := render(t, out)
	assert.True(t, containsSubstring(rendered, "1 = 0"))
	assert.False(t, containsSubstring(rendered, "IN ("))
	assert.Equal(t, 0, len(f.ContributeParameters(map[string]sqlvalue.Value{})))
}

func TestNotInCollectionFilter_NilOrEmptyValuesIsNotApplied(t *testing.T) {
	root := baseSelect(t)

	out := NewNotInCollectionFilter("status", nil).ContributeAST(root)
	assert.True(t, out == root)

	out = NewNotInCollectionFilter("status", []any{}).ContributeAST(root)
	assert.True(t, out == root)
}

func TestNotInCollectionFilter_AddsNotInPredicate(t *testing.T) {
	root := baseSelect(t)

	f := NewNotInCollectionFilter("status", []any{"closed"})
	out := f.ContributeAST(root)

	rendered := render(t, out)
	assert.True(t, containsSubstring(rendered, "NOT IN"))
}

func TestSearchFilter_AddsLikePredicate(t *testing.T) {
	root := baseSelect(t)

	f := NewSearchFilter("name", "%ada%")
	out := f.ContributeAST(root)

	rendered := render(t, out)
	assert.True(t, containsSubstring(rendered, "LIKE"))
	assert.False(t, containsSubstring(rendered, "NOT LIKE"))

	params := f.ContributeParameters(map[string]sqlvalue.Value{})
	assert.Equal(t, 1, len(params))
}

func TestNotInSearchFilter_AddsNotLikePredicate(t *testing.T) {
	root := baseSelect(t)

	f := NewNotInSearchFilter("name", "%bot%")
	out := f.ContributeAST(root)

	rendered := render(t, out)
	assert.True(t, containsSubstring(rendered, "NOT LIKE"))
}

func TestBeforeAfter_BothBoundsProduceExclusiveRange(t *testing.T) {
	root := baseSelect(t)

	f := NewBeforeAfter("created_at", "2024-01-01", "2024-02-01")
	out := f.ContributeAST(root)

	rendered := render(t, out)
	assert.True(t, containsSubstring(rendered, "created_at > "))
	assert.True(t, containsSubstring(rendered, "created_at < "))

	params := f.ContributeParameters(map[string]sqlvalue.Value{})
	assert.Equal(t, 2, len(params))
}

func TestBeforeAfter_OnlyAfterBoundSupplied(t *testing.T) {
	root := baseSelect(t)

	f := NewBeforeAfter("created_at", "2024-01-01", nil)
	out := f.ContributeAST(root)

	rendered := render(t, out)
	assert.True(t, containsSubstring(rendered, "created_at > "))
	assert.False(t, containsSubstring(rendered, "created_at < "))
}

func TestBeforeAfter_NeitherBoundLeavesWhereUnchanged(t *testing.T) {
	root := baseSelect(t)

	f := NewBeforeAfter("created_at", nil, nil)
	out := f.ContributeAST(root)

	sel, ok := out.(*ast.SelectNode)
	assert.True(t, ok)
	assert.True(t, sel.Where == nil)
}

func TestOnBeforeAfter_UsesInclusiveOperators(t *testing.T) {
	root := baseSelect(t)

	f := NewOnBeforeAfter("created_at", "2024-01-01", "2024-02-01")
	out := f.ContributeAST(root)

	rendered := render(t, out)
	assert.True(t, containsSubstring(rendered, "created_at >= "))
	assert.True(t, containsSubstring(rendered, "created_at <= "))
}

func TestFilters_ChainedApplicationCombinesWhereClausesWithAnd(t *testing.T) {
	root := baseSelect(t)

	collection := NewCollectionFilter("status", []any{"open"})
	search := NewSearchFilter("name", "%a%")

	out := collection.ContributeAST(root)
	out = search.ContributeAST(out)

	rendered := render(t, out)
	assert.True(t, containsSubstring(rendered, "IN ("))
	assert.True(t, containsSubstring(rendered, "LIKE"))
	assert.True(t, containsSubstring(rendered, "AND"))
}

func containsSubstring(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}

	return false
}
