package ast

import "github.com/sqlspec/sqlspec"

// Render serializes an AST to SQL text for the given dialect. Every Root's String() method is
// already dialect-neutral SQL text; Render is the dialect-aware seam the
// rest of the system calls through, so future per-dialect keyword-casing
// or quoting rules have a single place to live without changing every
// node's String().
func Render(root Root, dialect sqlspec.Dialect) (string, error) {
	_ = dialect
	return root.String(), nil
}

// RewritePlaceholderStyle returns a copy of root with every Placeholder
// node restyled to target, renumbered/renamed in traversal order. It
// implements the rewrite step: if the dialect's preferred placeholder
// style differs from the AST's style, rewrite placeholders by
// replacement. Placeholders are visited in the same pre-order as
// Placeholders(root): the i-th one gets ordinal i+1 for a numeric target,
// or names[i] for a named target (keeping its old name when names is
// shorter).
func RewritePlaceholderStyle(root Root, target sqlspec.ParameterStyle, names []string) (Root, error) {
	i := 0

	rewritten := Walk(root, func(n Node) Node {
		p, ok := n.(*PlaceholderNode)
		if !ok {
			return nil
		}

		cp := *p
		cp.Style = target

		switch target {
		case sqlspec.StyleQMark:
			cp.Name = ""
			cp.Ordinal = ""
		case sqlspec.StyleNumeric:
			cp.Name = ""
			cp.Ordinal = ordinalFor(i)
		default:
			if i < len(names) {
				cp.Name = names[i]
			}

			cp.Ordinal = ""
		}

		i++

		return &cp
	})

	newRoot, ok := rewritten.(Root)
	if !ok {
		return root, nil
	}

	return newRoot, nil
}

func ordinalFor(zeroBasedIndex int) string {
	n := zeroBasedIndex + 1
	digits := []byte{}

	if n == 0 {
		return "0"
	}

	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}

	return string(digits)
}
