// Package pipeline implements the Statement Pipeline: it
// turns a raw SQL string, a Builder Layer builder, or an already-prepared
// Statement — plus optional parameters and filters — into a final,
// dialect-rendered Statement.
package pipeline

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/ast"
	"github.com/sqlspec/sqlspec/builder"
	"github.com/sqlspec/sqlspec/sqlvalue"
)

// defaultCacheEntries is the parse cache's default bound.
const defaultCacheEntries = 256

// Filter is the structural contract the Builder Layer's filter package
// implements; declared locally, as builder's astSource is,
// so pipeline never needs to import filter for something a caller's own
// type could equally satisfy.
type Filter interface {
	ContributeAST(root ast.Root) ast.Root
	ContributeParameters(params map[string]sqlvalue.Value) map[string]sqlvalue.Value
}

// Pipeline holds the mutable state a Statement Pipeline needs across
// calls: the bounded parse cache and an injectable logger for the
// "extras are logged, not rejected" diagnostics.
// Logging itself is out of this module's scope;
// callers that want it wired up supply their own *slog.Logger.
type Pipeline struct {
	Logger *slog.Logger
	cache  *parseCache
}

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

// WithLogger injects a logger for extras/diagnostics. Defaults to
// slog.Default() when omitted.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.Logger = l }
}

// WithParseCacheSize overrides the parse cache's entry bound (default
// 256). Zero or negative disables caching.
func WithParseCacheSize(maxEntries int) Option {
	return func(p *Pipeline) { p.cache = newParseCache(maxEntries) }
}

// New builds a Pipeline ready to Prepare/PrepareMany.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{Logger: slog.Default(), cache: newParseCache(defaultCacheEntries)}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// CacheStats reports the parse cache's current occupancy and lifetime
// eviction count.
func (p *Pipeline) CacheStats() (entries, evictions int) {
	return p.cache.Len(), p.cache.Evictions()
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}

	return slog.Default()
}

// Prepare turns input (a raw SQL string, a Builder Layer builder, or an
// already-prepared Statement) plus optional data parameters and filters
// into a final, dialect-rendered Statement.
func (p *Pipeline) Prepare(input any, dialect sqlspec.Dialect, paramsAndFilters ...any) (*Statement, error) {
	return p.prepareOne(input, dialect, paramsAndFilters)
}

// PrepareMany prepares input for batch execution against a list of
// parameter sets, producing a Statement with IsMany() true. Validation
// runs once against the first parameter set and assumes the rest share
// its shape.
func (p *Pipeline) PrepareMany(input any, dialect sqlspec.Dialect, paramSets []any, filters ...any) (*Statement, error) {
	if len(paramSets) == 0 {
		return nil, sqlspec.NewError(sqlspec.KindParameterCountMismatch, sqlspec.ErrParameterCountMismatch, "", "", "prepare_many requires at least one parameter set")
	}

	firstArgs := append(append([]any{}, filters...), paramSets[0])

	first, err := p.prepareOne(input, dialect, firstArgs)
	if err != nil {
		return nil, err
	}

	first.isMany = true

	if first.style.IsNamed() {
		first.manyNamed = make([]map[string]sqlvalue.Value, 0, len(paramSets))
		first.manyNamed = append(first.manyNamed, first.named)

		for _, set := range paramSets[1:] {
			bound, err := p.bindOnly(first, set)
			if err != nil {
				return nil, err
			}

			first.manyNamed = append(first.manyNamed, bound)
		}
	} else {
		first.manyPositional = make([][]sqlvalue.Value, 0, len(paramSets))
		first.manyPositional = append(first.manyPositional, first.positional)

		for _, set := range paramSets[1:] {
			bound, err := p.bindPositionalOnly(first, set)
			if err != nil {
				return nil, err
			}

			first.manyPositional = append(first.manyPositional, bound)
		}
	}

	return first, nil
}

// bindOnly re-validates a later batch member's named parameter set
// against the names already bound for the first, without re-parsing or
// re-rendering. A list-shaped set is accepted too, zipped against the
// first set's bind order.
func (p *Pipeline) bindOnly(first *Statement, set any) (map[string]sqlvalue.Value, error) {
	acc := newAccumulator()
	if err := acc.mergeData(set); err != nil {
		return nil, err
	}

	if acc.dict == nil && acc.list != nil {
		if len(acc.list) != len(first.names) {
			return nil, parameterCountErr(first.kind, len(first.names), len(acc.list))
		}

		out := make(map[string]sqlvalue.Value, len(first.names))
		for i, name := range first.names {
			out[name] = acc.list[i]
		}

		return out, nil
	}

	out := map[string]sqlvalue.Value{}
	for _, name := range first.names {
		v, ok := acc.dict[name]
		if !ok {
			return nil, missingParameterErr(first.kind, name)
		}

		out[name] = v
	}

	return out, nil
}

// bindPositionalOnly flattens a later batch member into the first
// statement's positional bind order. When the first statement was bound
// through named placeholders (named SQL rendered to a positional dialect),
// a map-shaped set is flattened through those names; a list-shaped set is
// count-checked and passed through.
func (p *Pipeline) bindPositionalOnly(first *Statement, set any) ([]sqlvalue.Value, error) {
	acc := newAccumulator()
	if err := acc.mergeData(set); err != nil {
		return nil, err
	}

	if acc.dict != nil && len(first.names) > 0 {
		out := make([]sqlvalue.Value, len(first.names))
		for i, name := range first.names {
			v, ok := acc.dict[name]
			if !ok {
				return nil, missingParameterErr(first.kind, name)
			}

			out[i] = v
		}

		return out, nil
	}

	want := len(first.positional)
	if len(acc.list) != want {
		return nil, parameterCountErr(first.kind, want, len(acc.list))
	}

	return acc.list, nil
}

func missingParameterErr(kind sqlspec.StatementKind, name string) error {
	return sqlspec.NewError(sqlspec.KindMissingParameter, sqlspec.ErrMissingParameter, kind, name, "")
}

func parameterCountErr(kind sqlspec.StatementKind, want, got int) error {
	return sqlspec.NewError(sqlspec.KindParameterCountMismatch, sqlspec.ErrParameterCountMismatch, kind, "", fmt.Sprintf("want %d, got %d", want, got))
}

// prepareOne runs the full normalize/merge/filter/inventory/bind/render/
// package pipeline for a single parameter set.
func (p *Pipeline) prepareOne(input any, dialect sqlspec.Dialect, paramsAndFilters []any) (*Statement, error) {
	// Step 1: normalize input. An already-prepared Statement is handled
	// up front since its own
	// names/values are already in the correct bind order; deriving that
	// order by ranging over a map would not be.
	if stmt, ok := input.(*Statement); ok {
		return p.rerender(stmt, dialect)
	}

	root, carried, isScriptInput, err := p.normalizeInput(input, dialect)
	if err != nil {
		return nil, err
	}

	if isScriptInput {
		return p.prepareScript(input.(string), dialect, paramsAndFilters)
	}

	filters, dataArgs := partitionFilters(paramsAndFilters)

	// Step 2: merge supplied parameters.
	acc := newAccumulator()
	acc.dict = copyValues(carried)

	for _, d := range dataArgs {
		if err := acc.mergeData(d); err != nil {
			return nil, sqlspec.NewError(sqlspec.KindParameterStyleMismatch, sqlspec.ErrParameterStyleMismatch, "", "", err.Error())
		}
	}

	// Step 3: apply filters left-to-right.
	for _, f := range filters {
		root = f.ContributeAST(root)

		contributed := f.ContributeParameters(map[string]sqlvalue.Value{})
		if len(contributed) > 0 {
			if acc.dict == nil {
				acc.dict = map[string]sqlvalue.Value{}
			}

			for k, v := range contributed {
				acc.dict[k] = v
			}
		}
	}

	kind := root.StatementKind()

	// Step 4: placeholder inventory.
	inv := inventory(root)
	if inv.namedCount > 0 && inv.positionalCount > 0 {
		return nil, sqlspec.NewError(sqlspec.KindParameterStyleMismatch, sqlspec.ErrParameterStyleMismatch, kind, "", "statement mixes named and positional placeholders")
	}

	// Step 5: validate and bind.
	var (
		namedValues map[string]sqlvalue.Value
		positional  []sqlvalue.Value
	)

	if inv.namedCount > 0 {
		namedValues = map[string]sqlvalue.Value{}

		for _, name := range inv.orderedNames {
			v, ok := acc.dict[name]
			if !ok {
				return nil, missingParameterErr(kind, name)
			}

			namedValues[name] = v
		}

		for name := range acc.dict {
			if _, referenced := namedValues[name]; !referenced {
				p.logger().Debug("sqlspec: supplied parameter not referenced by statement", "name", name)
			}
		}
	} else if inv.positionalCount > 0 {
		if len(acc.list) != inv.positionalCount {
			return nil, parameterCountErr(kind, inv.positionalCount, len(acc.list))
		}

		positional = acc.list
	}

	// Step 6: render.
	target := sqlspec.CapabilitiesFor(dialect).PreferredStyle

	names := inv.orderedNames
	if inv.namedCount == 0 && target.IsNamed() && inv.positionalCount > 0 {
		names = syntheticNames(inv.positionalCount)
		namedValues = map[string]sqlvalue.Value{}

		for i, name := range names {
			namedValues[name] = positional[i]
		}

		positional = nil
	}

	if inv.namedCount > 0 && !target.IsNamed() {
		// named source, positional target: flatten the named values into
		// bind order (one entry per placeholder occurrence, so a name
		// referenced twice binds twice).
		positional = make([]sqlvalue.Value, len(names))
		for i, name := range names {
			positional[i] = namedValues[name]
		}
	}

	restyled := restyleParameters(root, target, names)

	text, err := ast.Render(restyled, dialect)
	if err != nil {
		return nil, sqlspec.NewError(sqlspec.KindBuildFailure, sqlspec.ErrBuildFailure, kind, "", err.Error())
	}

	// Step 7: package.
	return &Statement{
		text:       text,
		dialect:    dialect,
		kind:       kind,
		style:      target,
		returning:  restyled.HasReturning(),
		root:       restyled,
		names:      names,
		named:      namedValues,
		positional: positional,
	}, nil
}

// rerender handles the "input is already a Statement" shortcut: its
// AST and parameter binding were already validated when it was first
// prepared, so re-preparing it only re-renders under the (possibly new)
// target dialect, reusing its original bind order.
func (p *Pipeline) rerender(stmt *Statement, dialect sqlspec.Dialect) (*Statement, error) {
	target := sqlspec.CapabilitiesFor(dialect).PreferredStyle
	names := append([]string{}, stmt.names...)

	named := stmt.named
	if target.IsNamed() && len(names) == 0 && len(stmt.positional) > 0 {
		// the original was bound purely positionally; a named target needs
		// synthetic names, same as a fresh positional-to-named prepare.
		names = syntheticNames(len(stmt.positional))
		named = map[string]sqlvalue.Value{}

		for i, name := range names {
			named[name] = stmt.positional[i]
		}
	}

	restyled := restyleParameters(stmt.root, target, names)

	text, err := ast.Render(restyled, dialect)
	if err != nil {
		return nil, sqlspec.NewError(sqlspec.KindBuildFailure, sqlspec.ErrBuildFailure, stmt.kind, "", err.Error())
	}

	var positional []sqlvalue.Value
	if !target.IsNamed() {
		if len(names) > 0 {
			positional = make([]sqlvalue.Value, len(names))
			for i, name := range names {
				positional[i] = named[name]
			}
		} else {
			positional = stmt.positional
		}
	}

	return &Statement{
		text:       text,
		dialect:    dialect,
		kind:       stmt.kind,
		style:      target,
		returning:  restyled.HasReturning(),
		root:       restyled,
		names:      names,
		named:      named,
		positional: positional,
	}, nil
}

// normalizeInput resolves input to an AST root for the non-Statement
// cases; isScript reports when input is a raw string containing more
// than one top-level statement.
func (p *Pipeline) normalizeInput(input any, dialect sqlspec.Dialect) (root ast.Root, carried map[string]sqlvalue.Value, isScript bool, err error) {
	switch v := input.(type) {
	case builder.Builder:
		built, buildErr := v.Build()
		if buildErr != nil {
			return nil, nil, false, buildErr
		}

		return built.Root, built.Params, false, nil
	case string:
		if countTopLevelStatements(v) > 1 {
			return nil, nil, true, nil
		}

		if cached, ok := p.cache.get(dialect, v); ok {
			return cached, nil, false, nil
		}

		parsed, parseErr := ast.Parse(v, dialect)
		if parseErr != nil {
			return nil, nil, false, parseErr
		}

		p.cache.put(dialect, v, parsed)

		return parsed, nil, false, nil
	default:
		return nil, nil, false, fmt.Errorf("%w: unsupported pipeline input %T", sqlspec.ErrBuildFailure, input)
	}
}

func copyValues(m map[string]sqlvalue.Value) map[string]sqlvalue.Value {
	if len(m) == 0 {
		return nil
	}

	out := make(map[string]sqlvalue.Value, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}

// prepareScript splits text at top-level ";" boundaries, ignoring quotes
// and comments, then renders each part; the outer Statement is marked
// IsScript() true. An empty script is a ParseError.
func (p *Pipeline) prepareScript(text string, dialect sqlspec.Dialect, paramsAndFilters []any) (*Statement, error) {
	parts := splitScript(text)
	if len(parts) == 0 {
		return nil, sqlspec.NewError(sqlspec.KindParse, sqlspec.ErrParse, sqlspec.StatementScript, "", "empty script")
	}

	prepared := make([]*Statement, 0, len(parts))

	for _, part := range parts {
		stmt, err := p.prepareOne(part, dialect, paramsAndFilters)
		if err != nil {
			return nil, err
		}

		prepared = append(prepared, stmt)
	}

	combinedText := ""
	for i, stmt := range prepared {
		if i > 0 {
			combinedText += ";\n"
		}

		combinedText += stmt.Text()
	}

	return &Statement{
		text:        combinedText,
		dialect:     dialect,
		kind:        sqlspec.StatementScript,
		isScript:    true,
		scriptParts: prepared,
	}, nil
}

func syntheticNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "param_" + strconv.Itoa(i+1)
	}

	return names
}

// restyleParameters returns a copy of root with every builder-produced
// ParameterNode and every parsed-text PlaceholderNode rewritten to
// target, assigned names/ordinals in traversal order. Bind values are
// tracked separately by the caller; this pass only changes how the
// placeholder renders.
func restyleParameters(root ast.Root, target sqlspec.ParameterStyle, names []string) ast.Root {
	i := 0

	out := ast.Walk(root, func(n ast.Node) ast.Node {
		switch n.(type) {
		case *ast.ParameterNode, *ast.PlaceholderNode:
		default:
			return nil
		}

		ph := &ast.PlaceholderNode{Style: target}

		switch target {
		case sqlspec.StyleNumeric:
			ph.Ordinal = strconv.Itoa(i + 1)
		case sqlspec.StyleQMark:
			// bare "?", nothing further to set.
		default:
			if i < len(names) {
				ph.Name = names[i]
			}
		}

		i++

		return ph
	})

	if r, ok := out.(ast.Root); ok {
		return r
	}

	return root
}

type placeholderInventory struct {
	namedCount      int
	positionalCount int
	orderedNames    []string
}

// inventory walks the AST to enumerate named parameters/placeholders
// (named) and positional/numeric placeholders (positional-family, since
// both are ordinal- not name-addressed).
func inventory(root ast.Root) placeholderInventory {
	var inv placeholderInventory

	for _, pm := range ast.Parameters(root) {
		inv.namedCount++
		inv.orderedNames = append(inv.orderedNames, pm.Name)
	}

	for _, ph := range ast.Placeholders(root) {
		if ph.IsNamed() {
			inv.namedCount++
			inv.orderedNames = append(inv.orderedNames, ph.Name)

			continue
		}

		inv.positionalCount++
	}

	return inv
}

func partitionFilters(args []any) ([]Filter, []any) {
	var (
		filters []Filter
		data    []any
	)

	for _, a := range args {
		if f, ok := a.(Filter); ok {
			filters = append(filters, f)
			continue
		}

		data = append(data, a)
	}

	return filters, data
}

// accumulator folds *params_and_filters' data arguments into a single
// candidate container.
type accumulator struct {
	dict map[string]sqlvalue.Value
	list []sqlvalue.Value
}

func newAccumulator() *accumulator {
	return &accumulator{}
}

// mergeData folds one data argument in. dict+dict key-merges (later
// overrides earlier); list/tuple passes through; a bare scalar is
// wrapped into a one-tuple; nil and empty dicts are "no parameters".
func (a *accumulator) mergeData(v any) error {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		if len(t) == 0 {
			return nil
		}

		if a.list != nil {
			return fmt.Errorf("cannot mix a named parameter map with positional parameters")
		}

		if a.dict == nil {
			a.dict = map[string]sqlvalue.Value{}
		}

		for k, val := range t {
			a.dict[k] = sqlvalue.From(val)
		}

		return nil
	case map[string]sqlvalue.Value:
		if len(t) == 0 {
			return nil
		}

		if a.list != nil {
			return fmt.Errorf("cannot mix a named parameter map with positional parameters")
		}

		if a.dict == nil {
			a.dict = map[string]sqlvalue.Value{}
		}

		for k, val := range t {
			a.dict[k] = val
		}

		return nil
	case []any:
		if a.dict != nil {
			return fmt.Errorf("cannot mix positional parameters with a named parameter map")
		}

		for _, val := range t {
			a.list = append(a.list, sqlvalue.From(val))
		}

		return nil
	case []sqlvalue.Value:
		if a.dict != nil {
			return fmt.Errorf("cannot mix positional parameters with a named parameter map")
		}

		a.list = append(a.list, t...)

		return nil
	default:
		if a.dict != nil {
			return fmt.Errorf("cannot mix positional parameters with a named parameter map")
		}

		a.list = append(a.list, sqlvalue.From(v))

		return nil
	}
}
