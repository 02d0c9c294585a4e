package pipeline

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/builder"
	"github.com/sqlspec/sqlspec/sqlvalue"
)

// TestPrepare_NamedColonRewrittenToNumericOnPostgres exercises the named
// parameter rewrite: postgres prefers numeric placeholders, so a
// named_colon statement renders with $1/$2 and its bind values land in
// traversal order.
func TestPrepare_NamedColonRewrittenToNumericOnPostgres(t *testing.T) {
	p := New()

	stmt, err := p.Prepare(
		"SELECT id FROM t WHERE name = :name AND age > :age",
		sqlspec.DialectPostgres,
		map[string]any{"name": "Ada", "age": 30},
	)
	assert.NoError(t, err)
	assert.Equal(t, "SELECT id FROM t WHERE name = $1 AND age > $2", stmt.Text())
	assert.False(t, stmt.IsMany())
	assert.False(t, stmt.IsScript())

	positional, ok := stmt.Parameters().([]sqlvalue.Value)
	assert.True(t, ok)
	assert.Equal(t, 2, len(positional))
	assert.Equal(t, "Ada", positional[0].Native())
	assert.Equal(t, int64(30), positional[1].Native())
}

// TestPrepare_QMarkInsideStringLiteralIsNotAPlaceholder covers the other
// direction: sqlite prefers qmark already, and a literal '?' embedded in a
// quoted string must round-trip untouched rather than being counted as a
// bind site.
func TestPrepare_QMarkInsideStringLiteralIsNotAPlaceholder(t *testing.T) {
	p := New()

	stmt, err := p.Prepare(
		"SELECT id FROM t WHERE name = ? AND note = 'who?'",
		sqlspec.DialectSQLite,
		[]any{"Ada"},
	)
	assert.NoError(t, err)
	assert.Equal(t, "SELECT id FROM t WHERE name = ? AND note = 'who?'", stmt.Text())

	positional, ok := stmt.Parameters().([]sqlvalue.Value)
	assert.True(t, ok)
	assert.Equal(t, 1, len(positional))
	assert.Equal(t, "Ada", positional[0].Native())
}

func TestPrepare_MixedNamedAndPositionalPlaceholdersIsStyleMismatch(t *testing.T) {
	p := New()

	_, err := p.Prepare(
		"SELECT id FROM t WHERE name = :name AND age > ?",
		sqlspec.DialectPostgres,
		map[string]any{"name": "Ada"},
	)
	assert.Error(t, err)

	var sqlErr *sqlspec.Error
	assert.True(t, errors.As(err, &sqlErr))
	assert.Equal(t, sqlspec.KindParameterStyleMismatch, sqlErr.Kind)
	assert.True(t, errors.Is(err, sqlspec.ErrParameterStyleMismatch))
}

func TestPrepare_PositionalCountMismatch(t *testing.T) {
	p := New()

	_, err := p.Prepare(
		"SELECT id FROM t WHERE name = ? AND age > ?",
		sqlspec.DialectSQLite,
		[]any{"Ada"},
	)
	assert.Error(t, err)

	var sqlErr *sqlspec.Error
	assert.True(t, errors.As(err, &sqlErr))
	assert.Equal(t, sqlspec.KindParameterCountMismatch, sqlErr.Kind)
}

func TestPrepare_MissingNamedParameter(t *testing.T) {
	p := New()

	_, err := p.Prepare(
		"SELECT id FROM t WHERE name = :name AND age > :age",
		sqlspec.DialectPostgres,
		map[string]any{"name": "Ada"},
	)
	assert.Error(t, err)

	var sqlErr *sqlspec.Error
	assert.True(t, errors.As(err, &sqlErr))
	assert.Equal(t, sqlspec.KindMissingParameter, sqlErr.Kind)
	assert.Equal(t, "age", sqlErr.Location)
}

// TestPrepare_ExtraSuppliedParameterIsNotRejected covers the
// "unreferenced supplied entry is logged, not rejected" behavior.
func TestPrepare_ExtraSuppliedParameterIsNotRejected(t *testing.T) {
	p := New()

	stmt, err := p.Prepare(
		"SELECT id FROM t WHERE name = :name",
		sqlspec.DialectPostgres,
		map[string]any{"name": "Ada", "unused": "whatever"},
	)
	assert.NoError(t, err)
	assert.Equal(t, "SELECT id FROM t WHERE name = $1", stmt.Text())
}

func TestPrepare_AlreadyPreparedStatementRerendersUnderNewDialect(t *testing.T) {
	p := New()

	stmt, err := p.Prepare(
		"SELECT id FROM t WHERE name = :name",
		sqlspec.DialectPostgres,
		map[string]any{"name": "Ada"},
	)
	assert.NoError(t, err)
	assert.Equal(t, "SELECT id FROM t WHERE name = $1", stmt.Text())

	restmt, err := p.Prepare(stmt, sqlspec.DialectSQLite)
	assert.NoError(t, err)
	assert.Equal(t, "SELECT id FROM t WHERE name = ?", restmt.Text())

	positional, ok := restmt.Parameters().([]sqlvalue.Value)
	assert.True(t, ok)
	assert.Equal(t, 1, len(positional))
	assert.Equal(t, "Ada", positional[0].Native())
}

// TestPrepare_QMarkRewrittenToNamedAtOnSpanner covers the opposite
// rewrite direction: a positional statement rendered for a dialect that
// prefers a named style gets synthetic names in occurrence order.
func TestPrepare_QMarkRewrittenToNamedAtOnSpanner(t *testing.T) {
	p := New()

	stmt, err := p.Prepare(
		"SELECT id FROM t WHERE x = ?",
		sqlspec.DialectSpanner,
		[]any{5},
	)
	assert.NoError(t, err)
	assert.Equal(t, "SELECT id FROM t WHERE x = @param_1", stmt.Text())

	named, ok := stmt.Parameters().(map[string]sqlvalue.Value)
	assert.True(t, ok)
	assert.Equal(t, 1, len(named))
	assert.Equal(t, int64(5), named["param_1"].Native())
}

func TestPrepare_PositionalStatementRerendersWithValuesIntact(t *testing.T) {
	p := New()

	stmt, err := p.Prepare(
		"SELECT id FROM t WHERE x = ? AND y = ?",
		sqlspec.DialectSQLite,
		[]any{1, 2},
	)
	assert.NoError(t, err)

	restmt, err := p.Prepare(stmt, sqlspec.DialectPostgres)
	assert.NoError(t, err)
	assert.Equal(t, "SELECT id FROM t WHERE x = $1 AND y = $2", restmt.Text())

	positional, ok := restmt.Parameters().([]sqlvalue.Value)
	assert.True(t, ok)
	assert.Equal(t, 2, len(positional))
	assert.Equal(t, int64(1), positional[0].Native())
	assert.Equal(t, int64(2), positional[1].Native())
}

func TestPrepareMany_BindsEachSetAgainstFirstStatementShape(t *testing.T) {
	p := New()

	stmt, err := p.PrepareMany(
		"INSERT INTO t (name, age) VALUES (:name, :age)",
		sqlspec.DialectPostgres,
		[]any{
			map[string]any{"name": "Ada", "age": 30},
			map[string]any{"name": "Grace", "age": 40},
		},
	)
	assert.NoError(t, err)
	assert.True(t, stmt.IsMany())
	assert.Equal(t, "INSERT INTO t (name, age) VALUES ($1, $2)", stmt.Text())

	batch, ok := stmt.Parameters().([][]sqlvalue.Value)
	assert.True(t, ok)
	assert.Equal(t, 2, len(batch))
	assert.Equal(t, "Ada", batch[0][0].Native())
	assert.Equal(t, "Grace", batch[1][0].Native())
}

func TestPrepareMany_MissingParameterInLaterSetFails(t *testing.T) {
	p := New()

	_, err := p.PrepareMany(
		"INSERT INTO t (name, age) VALUES (:name, :age)",
		sqlspec.DialectPostgres,
		[]any{
			map[string]any{"name": "Ada", "age": 30},
			map[string]any{"name": "Grace"},
		},
	)
	assert.Error(t, err)

	var sqlErr *sqlspec.Error
	assert.True(t, errors.As(err, &sqlErr))
	assert.Equal(t, sqlspec.KindMissingParameter, sqlErr.Kind)
}

func TestPrepareMany_EmptyParamSetsIsCountMismatch(t *testing.T) {
	p := New()

	_, err := p.PrepareMany("INSERT INTO t (name) VALUES (:name)", sqlspec.DialectPostgres, nil)
	assert.Error(t, err)

	var sqlErr *sqlspec.Error
	assert.True(t, errors.As(err, &sqlErr))
	assert.Equal(t, sqlspec.KindParameterCountMismatch, sqlErr.Kind)
}

func TestPrepare_ScriptSplitsOnTopLevelSemicolons(t *testing.T) {
	p := New()

	stmt, err := p.Prepare(
		"SELECT 1; SELECT 2",
		sqlspec.DialectPostgres,
	)
	assert.NoError(t, err)
	assert.True(t, stmt.IsScript())
	assert.Equal(t, 2, len(stmt.ScriptParts()))
}

func TestPrepare_EmptyInputIsParseError(t *testing.T) {
	p := New()

	_, err := p.Prepare("", sqlspec.DialectPostgres)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, sqlspec.ErrParse))
}

// TestPrepare_BuilderInputGoesThroughSameBindingPath confirms a
// Builder Layer value (not raw SQL text) is accepted as Prepare input and
// produces a dialect-rendered Statement, exercising the builder.Builder
// branch of normalizeInput.
func TestPrepare_BuilderInputGoesThroughSameBindingPath(t *testing.T) {
	p := New()

	b := builder.Select(sqlspec.DialectPostgres, "id", "name").
		From("t").
		Where("age", ">", 18)

	stmt, err := p.Prepare(b, sqlspec.DialectPostgres)
	assert.NoError(t, err)
	assert.Equal(t, sqlspec.StatementSelect, stmt.Kind())
	assert.True(t, len(stmt.Text()) > 0)
}

func TestPrepare_DeleteBuilderWithSubqueryAndReturning(t *testing.T) {
	p := New()

	b := builder.DeleteFrom(sqlspec.DialectPostgres, "users").
		Where("id IN (SELECT id FROM inactive)").
		Returning("id", "email")

	stmt, err := p.Prepare(b, sqlspec.DialectPostgres)
	assert.NoError(t, err)
	assert.Equal(t, sqlspec.StatementDelete, stmt.Kind())
	assert.True(t, stmt.Returning())
	assert.Equal(t, "DELETE FROM users WHERE id IN (SELECT id FROM inactive) RETURNING id, email", stmt.Text())
}

func TestPipeline_CacheStatsTrackParseCacheOccupancy(t *testing.T) {
	p := New()

	entries, evictions := p.CacheStats()
	assert.Equal(t, 0, entries)
	assert.Equal(t, 0, evictions)

	_, err := p.Prepare("SELECT 1", sqlspec.DialectPostgres)
	assert.NoError(t, err)

	entries, _ = p.CacheStats()
	assert.Equal(t, 1, entries)
}
