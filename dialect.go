package sqlspec

// Dialect identifies the SQL rendering/parsing rules targeted by a
// Statement, a Builder, or a parsed AST. It is the tag threaded through
// the AST Engine, the Builder Layer, and the Statement Pipeline.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
	DialectOracle   Dialect = "oracle"
	DialectDuckDB   Dialect = "duckdb"
	DialectSpanner  Dialect = "spanner"
	DialectBigQuery Dialect = "bigquery"
	DialectANSI     Dialect = "ansi"
)

// Feature is a DB-specific capability flag. Each dialect's
// Capabilities.Features records which Features it supports, and
// Capabilities.Supports reports one; the AST Engine and Builder Layer do
// not consult it when rendering.
type Feature int

const (
	FeatureReturning Feature = iota + 1
	FeatureCTE
	FeatureRecursiveCTE
	FeatureWindowFunctions
	FeatureUpsert
	FeatureForUpdateSkipLocked
	FeatureTransactionalDDL
	FeatureListenNotify
	FeatureTruncateRestartIdentity
)
