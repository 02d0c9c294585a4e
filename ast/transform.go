package ast

import "strings"

// Transform passes are pure AST→AST functions. Each is
// wrapped in safely so a panic anywhere inside it degrades to "yield the
// input unchanged" rather than propagating, matching the module's
// recovery-local error-handling tier. Callers that want to know whether a
// pass actually did anything should compare the returned Root's String()
// against the input's.

func safely(root Root, fn func(Root) Root) (result Root) {
	defer func() {
		if recover() != nil {
			result = root
		}
	}()

	out := fn(root)
	if out == nil {
		return root
	}

	return out
}

// Simplify drops provably-redundant predicates: a WHERE/HAVING clause
// that is the literal constant TRUE contributes nothing and is removed.
func Simplify(root Root) Root {
	return safely(root, func(root Root) Root {
		sel, ok := root.(*SelectNode)
		if !ok {
			return root
		}

		cp := *sel
		if isLiteralTrue(cp.Where) {
			cp.Where = nil
		}

		if isLiteralTrue(cp.Having) {
			cp.Having = nil
		}

		return &cp
	})
}

func isLiteralTrue(n Node) bool {
	switch v := n.(type) {
	case *LiteralNode:
		return strings.EqualFold(strings.TrimSpace(v.Text), "TRUE")
	case *RawExprNode:
		return strings.EqualFold(strings.TrimSpace(v.String()), "TRUE")
	default:
		return false
	}
}

// PushdownPredicates moves an outer SELECT * query's WHERE clause into a
// bare derived-table subquery's own WHERE, when the outer query has no
// explicit column list, joins, GROUP BY, HAVING, or set operations. An
// outer ORDER BY/LIMIT/OFFSET does not block the move.
// SELECT/UPDATE/DELETE only; only
// SELECT has a derived-table FROM to push into.
func PushdownPredicates(root Root) Root {
	return safely(root, func(root Root) Root {
		sel, ok := root.(*SelectNode)
		if !ok || sel.Where == nil {
			return root
		}

		ref, ok := sel.From.(*TableRefNode)
		if !ok || ref.Subquery == nil {
			return root
		}

		if len(sel.Columns) != 0 || len(sel.Joins) != 0 || len(sel.GroupBy) != 0 ||
			sel.Having != nil || len(sel.SetOps) != 0 {
			return root
		}

		inner := *ref.Subquery
		if inner.Where != nil {
			inner.Where = combineAnd(inner.Where, sel.Where)
		} else {
			inner.Where = sel.Where
		}

		newRef := *ref
		newRef.Subquery = &inner

		cp := *sel
		cp.From = &newRef
		cp.Where = nil

		return &cp
	})
}

func combineAnd(a, b Node) Node {
	r := &RawExprNode{}
	r.Append("(")
	r.AppendNode(a)
	r.Append(") AND (")
	r.AppendNode(b)
	r.Append(")")

	return r
}

// OptimizeJoins reorders a SELECT's join list so CROSS joins (which have
// no ON predicate to drive a join-order planner) run last, behind the
// INNER/OUTER joins that narrow the row count first. SELECT only.
func OptimizeJoins(root Root) Root {
	return safely(root, func(root Root) Root {
		sel, ok := root.(*SelectNode)
		if !ok || len(sel.Joins) < 2 {
			return root
		}

		reordered := make([]*JoinNode, len(sel.Joins))
		copy(reordered, sel.Joins)

		sortStableByRank(reordered, joinRank)

		cp := *sel
		cp.Joins = reordered

		return &cp
	})
}

func joinRank(j *JoinNode) int {
	switch strings.ToLower(j.JoinKind) {
	case "inner", "":
		return 0
	case "left", "right":
		return 1
	case "full":
		return 2
	case "cross":
		return 3
	default:
		return 1
	}
}

func sortStableByRank(joins []*JoinNode, rank func(*JoinNode) int) {
	// insertion sort: join lists are short, and stability (preserving
	// relative order within a rank) matters more than asymptotics here.
	for i := 1; i < len(joins); i++ {
		j := i
		for j > 0 && rank(joins[j-1]) > rank(joins[j]) {
			joins[j-1], joins[j] = joins[j], joins[j-1]
			j--
		}
	}
}

// EliminateSubqueries inlines a FROM-clause derived table that is a bare
// pass-through (SELECT ... FROM t with no WHERE/JOIN/GROUP BY/HAVING/
// ORDER BY/LIMIT/OFFSET/set operation of its own) directly into the outer
// query, dropping one level of nesting. SELECT only.
func EliminateSubqueries(root Root) Root {
	return safely(root, func(root Root) Root {
		sel, ok := root.(*SelectNode)
		if !ok {
			return root
		}

		ref, ok := sel.From.(*TableRefNode)
		if !ok || !isPassthroughSubquery(ref.Subquery) {
			return root
		}

		cp := *sel
		innerRef, ok := ref.Subquery.From.(*TableRefNode)

		if !ok {
			return root
		}

		flattened := *innerRef
		flattened.Alias = ref.Alias

		cp.From = &flattened
		if len(cp.Columns) == 0 {
			cp.Columns = ref.Subquery.Columns
		}

		return &cp
	})
}

func isPassthroughSubquery(sel *SelectNode) bool {
	if sel == nil {
		return false
	}

	if _, ok := sel.From.(*TableRefNode); !ok {
		return false
	}

	return sel.Where == nil && len(sel.Joins) == 0 && len(sel.GroupBy) == 0 &&
		sel.Having == nil && len(sel.OrderBy) == 0 && sel.Limit == nil &&
		sel.Offset == nil && len(sel.SetOps) == 0 && !sel.Distinct
}

// UnnestSubqueries applies the same pass-through-inlining rule as
// EliminateSubqueries to each joined table rather than only the primary
// FROM target.
func UnnestSubqueries(root Root) Root {
	return safely(root, func(root Root) Root {
		sel, ok := root.(*SelectNode)
		if !ok || len(sel.Joins) == 0 {
			return root
		}

		newJoins := make([]*JoinNode, len(sel.Joins))
		changed := false

		for i, j := range sel.Joins {
			if isPassthroughSubquery(j.Table.Subquery) {
				if innerRef, ok := j.Table.Subquery.From.(*TableRefNode); ok {
					flattened := *innerRef
					flattened.Alias = j.Table.Alias

					nj := *j
					nj.Table = &flattened
					newJoins[i] = &nj
					changed = true

					continue
				}
			}

			newJoins[i] = j
		}

		if !changed {
			return root
		}

		cp := *sel
		cp.Joins = newJoins

		return &cp
	})
}
