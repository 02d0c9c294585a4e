package pipeline

import (
	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/ast"
	"github.com/sqlspec/sqlspec/sqlvalue"
)

// Statement is the immutable record produced by Prepare/PrepareMany.
// Every placeholder in Text corresponds to exactly one entry in
// Parameters(); an unreferenced supplied entry is logged, not rejected.
type Statement struct {
	text      string
	dialect   sqlspec.Dialect
	kind      sqlspec.StatementKind
	style     sqlspec.ParameterStyle
	isMany    bool
	isScript  bool
	returning bool
	root      ast.Root

	names []string // bind order, named styles only

	named      map[string]sqlvalue.Value
	positional []sqlvalue.Value

	manyNamed      []map[string]sqlvalue.Value
	manyPositional [][]sqlvalue.Value

	scriptParts []*Statement
}

func (s *Statement) Text() string               { return s.text }
func (s *Statement) Dialect() sqlspec.Dialect    { return s.dialect }
func (s *Statement) Kind() sqlspec.StatementKind { return s.kind }
func (s *Statement) IsMany() bool                { return s.isMany }
func (s *Statement) IsScript() bool              { return s.isScript }
func (s *Statement) Returning() bool             { return s.returning }

// ScriptParts returns the per-statement Statements an is_script Statement
// was split into. Nil for a non-script Statement.
func (s *Statement) ScriptParts() []*Statement { return s.scriptParts }

// Parameters returns the driver-ready parameter container:
// map[string]sqlvalue.Value for named styles, []sqlvalue.Value in
// positional order for qmark/numeric styles. An is_many Statement returns
// the batch form instead: []map[string]sqlvalue.Value or
// [][]sqlvalue.Value, one entry per parameter set.
func (s *Statement) Parameters() any {
	switch {
	case s.isMany && s.style.IsNamed():
		return s.manyNamed
	case s.isMany:
		return s.manyPositional
	case s.style.IsNamed():
		return s.named
	default:
		return s.positional
	}
}

// AST implements the structural contract builder.WithCTE's query
// parameter accepts so a prepared Statement can be bound into a
// CTE without this package importing builder for that direction.
func (s *Statement) AST() ast.Root { return s.root }

// ParamNames implements the same structural contract.
func (s *Statement) ParamNames() []string { return append([]string{}, s.names...) }

// ParamValue implements the same structural contract.
func (s *Statement) ParamValue(name string) (sqlvalue.Value, bool) {
	v, ok := s.named[name]
	return v, ok
}
