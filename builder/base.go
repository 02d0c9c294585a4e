// Package builder implements the fluent AST assemblers for SELECT,
// INSERT, UPDATE, DELETE, MERGE, and DDL statements. Every
// concrete builder embeds *base for the shared parameter map, CTE table,
// optimization flags, and the build() template method; each builder type
// supplies only its own AST-assembly fluent methods and a render step.
package builder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/ast"
	"github.com/sqlspec/sqlspec/sqlvalue"
)

// OptimizeFlags selects which transform passes build() applies before
// rendering.
type OptimizeFlags struct {
	Simplify             bool
	PushdownPredicates   bool
	OptimizeJoins        bool
	EliminateSubqueries  bool
	UnnestSubqueries     bool
}

// BuiltStatement is the pure, idempotent output of a builder's build()
// step. The Statement Pipeline takes the builder itself (any Builder) as
// input and calls Build; it does not accept a *BuiltStatement.
type BuiltStatement struct {
	Text    string
	Params  map[string]sqlvalue.Value
	Dialect sqlspec.Dialect
	Root    ast.Root
}

// Builder is satisfied by every concrete builder type in this package. It
// is also the contract the Statement Pipeline structurally recognizes
// without importing this package's concrete types.
type Builder interface {
	Build() (*BuiltStatement, error)
}

// astSource is the structural contract WithCTE accepts for a CTE body
// (FromSelect and UsingSubquery take a *SelectBuilder). Any builder in this
// package satisfies it; so does a pipeline.Statement, without this
// package ever importing the pipeline package.
type astSource interface {
	AST() ast.Root
	ParamNames() []string
	ParamValue(name string) (sqlvalue.Value, bool)
}

// paramMap is a builder's in-progress parameter collection.
type paramMap struct {
	counter int
	names   []string
	values  map[string]sqlvalue.Value
	seen    map[string]bool
}

func newParamMap() *paramMap {
	return &paramMap{values: map[string]sqlvalue.Value{}, seen: map[string]bool{}}
}

// add assigns a monotonic name ("param_N" or "ctx_param_N") to value and
// records it, returning the name.
func (m *paramMap) add(value any, context string) string {
	name := m.nextName(context)
	m.insert(name, sqlvalue.From(value))

	return name
}

func (m *paramMap) nextName(context string) string {
	base := "param_" + strconv.Itoa(m.counter)
	if context != "" {
		base = context + "_param_" + strconv.Itoa(m.counter)
	}

	m.counter++

	return m.dedupe(base)
}

// dedupe appends "_1", "_2", ... until name is unused.
func (m *paramMap) dedupe(name string) string {
	if !m.seen[name] {
		return name
	}

	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if !m.seen[candidate] {
			return candidate
		}
	}
}

func (m *paramMap) insert(name string, v sqlvalue.Value) {
	m.names = append(m.names, name)
	m.values[name] = v
	m.seen[name] = true
}

// reserve inserts value under name, renaming on collision, and returns
// the name actually used — used when merging another builder's or
// statement's parameter map in.
func (m *paramMap) reserve(name string, v sqlvalue.Value) string {
	final := m.dedupe(name)
	m.insert(final, v)

	return final
}

func (m *paramMap) get(name string) (sqlvalue.Value, bool) {
	v, ok := m.values[name]
	return v, ok
}

func (m *paramMap) snapshot() map[string]sqlvalue.Value {
	out := make(map[string]sqlvalue.Value, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}

	return out
}

// base is embedded by every concrete builder.
type base struct {
	dialect    sqlspec.Dialect
	params     *paramMap
	cteOrder   []string
	cteByAlias map[string]*ast.CTENode
	flags      OptimizeFlags
}

func newBase(dialect sqlspec.Dialect) *base {
	return &base{
		dialect:    dialect,
		params:     newParamMap(),
		cteByAlias: map[string]*ast.CTENode{},
	}
}

// AddParameter captures value as a named parameter and returns its name.
func (b *base) AddParameter(value any, context ...string) string {
	ctx := ""
	if len(context) > 0 {
		ctx = context[0]
	}

	return b.params.add(value, ctx)
}

// ParamNames implements astSource.
func (b *base) ParamNames() []string { return append([]string{}, b.params.names...) }

// ParamValue implements astSource.
func (b *base) ParamValue(name string) (sqlvalue.Value, bool) { return b.params.get(name) }

// WithCTE binds alias to query's AST, merging its parameter map into this
// builder's. It fails DuplicateCTE if alias is
// already bound, and ErrCycleDetected if query transitively references
// alias itself.
func (b *base) WithCTE(alias string, query any, recursive bool) error {
	if _, exists := b.cteByAlias[alias]; exists {
		return fmt.Errorf("%w: %q", sqlspec.ErrDuplicateCTE, alias)
	}

	root, params, err := resolveSource(b.dialect, query)
	if err != nil {
		return err
	}

	if referencesAlias(root, alias) {
		return fmt.Errorf("%w: CTE %q would reference itself", sqlspec.ErrCycleDetected, alias)
	}

	renamed := root
	if len(params) > 0 {
		renamed = renameParams(root, b.mergeParams(params))
	}

	node := &ast.CTENode{Alias: alias, Body: renamed, Recursive: recursive}
	b.cteByAlias[alias] = node
	b.cteOrder = append(b.cteOrder, alias)

	return nil
}

// mergeParams reserves every (name, value) pair from other into b's
// parameter map, returning a rename map for names that collided.
func (b *base) mergeParams(other map[string]sqlvalue.Value) map[string]string {
	renames := map[string]string{}

	for name, v := range other {
		final := b.params.reserve(name, v)
		if final != name {
			renames[name] = final
		}
	}

	return renames
}

func renameParams(root ast.Root, renames map[string]string) ast.Root {
	if len(renames) == 0 {
		return root
	}

	out := ast.Walk(root, func(n ast.Node) ast.Node {
		switch p := n.(type) {
		case *ast.ParameterNode:
			if newName, ok := renames[p.Name]; ok {
				cp := *p
				cp.Name = newName

				return &cp
			}
		case *ast.PlaceholderNode:
			if newName, ok := renames[p.Name]; ok {
				cp := *p
				cp.Name = newName

				return &cp
			}
		}

		return nil
	})

	r, ok := out.(ast.Root)
	if !ok {
		return root
	}

	return r
}

// referencesAlias reports whether root contains a table reference or CTE
// reference to alias.
func referencesAlias(n ast.Node, alias string) bool {
	found := false

	ast.Walk(n, func(node ast.Node) ast.Node {
		if t, ok := node.(*ast.TableRefNode); ok {
			if strings.EqualFold(t.Name, alias) || strings.EqualFold(t.CTERef, alias) {
				found = true
			}
		}

		return nil
	})

	return found
}

// CTEList materializes the bound CTEs in insertion order.
func (b *base) CTEList() []*ast.CTENode {
	list := make([]*ast.CTENode, 0, len(b.cteOrder))
	for _, alias := range b.cteOrder {
		list = append(list, b.cteByAlias[alias])
	}

	return list
}

func resolveSource(dialect sqlspec.Dialect, query any) (ast.Root, map[string]sqlvalue.Value, error) {
	switch v := query.(type) {
	case string:
		root, err := ast.Parse(v, dialect)
		if err != nil {
			return nil, nil, err
		}

		return root, nil, nil
	case astSource:
		params := map[string]sqlvalue.Value{}

		for _, name := range v.ParamNames() {
			if val, ok := v.ParamValue(name); ok {
				params[name] = val
			}
		}

		return v.AST(), params, nil
	default:
		return nil, nil, fmt.Errorf("%w: unsupported CTE/subquery source %T", sqlspec.ErrBuildFailure, query)
	}
}

// applyOptimizations runs the flagged transform passes over root in the
// stable order simplify → pushdown → joins → eliminate → unnest. Each
// pass already degrades to a no-op internally on failure (ast.safely);
// applyOptimizations additionally restricts join/subquery passes to
// SELECT, since predicate/join rewrites aren't meaningful for the other
// statement kinds.
func applyOptimizations(root ast.Root, flags OptimizeFlags) ast.Root {
	if flags.Simplify {
		root = castRoot(ast.Simplify(root), root)
	}

	if flags.PushdownPredicates {
		switch root.(type) {
		case *ast.SelectNode, *ast.UpdateNode, *ast.DeleteNode:
			root = castRoot(ast.PushdownPredicates(root), root)
		}
	}

	if _, isSelect := root.(*ast.SelectNode); isSelect {
		if flags.OptimizeJoins {
			root = castRoot(ast.OptimizeJoins(root), root)
		}

		if flags.EliminateSubqueries {
			root = castRoot(ast.EliminateSubqueries(root), root)
		}

		if flags.UnnestSubqueries {
			root = castRoot(ast.UnnestSubqueries(root), root)
		}
	}

	return root
}

func castRoot(n ast.Node, fallback ast.Root) ast.Root {
	if r, ok := n.(ast.Root); ok {
		return r
	}

	return fallback
}

// finishBuild applies CTE attachment, optimization passes, and rendering
// — the common tail of every concrete builder's Build() method.
func finishBuild(b *base, root ast.Root, attachCTEs func(ast.Root, []*ast.CTENode) ast.Root) (*BuiltStatement, error) {
	withCTEs := attachCTEs(root, b.CTEList())

	optimized := applyOptimizations(withCTEs, b.flags)

	text, err := ast.Render(optimized, b.dialect)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sqlspec.ErrBuildFailure, err)
	}

	return &BuiltStatement{
		Text:    text,
		Params:  b.params.snapshot(),
		Dialect: b.dialect,
		Root:    optimized,
	}, nil
}
