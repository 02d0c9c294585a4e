package ast

// Visitor is called once per node in a pre-order traversal. Returning a
// non-nil Node replaces the visited node (and its subtree) with the
// returned value, copy-on-write.
type Visitor func(n Node) Node

// Walk traverses n pre-order, rebuilding the tree copy-on-write wherever a
// Visitor returns a replacement. The original tree is never mutated.
func Walk(n Node, visit Visitor) Node {
	if n == nil {
		return nil
	}

	current := n
	if replacement := visit(n); replacement != nil {
		current = replacement
	}

	children := current.Children()
	if len(children) == 0 {
		return current
	}

	newChildren := make([]Node, len(children))
	changed := false

	for i, c := range children {
		nc := Walk(c, visit)
		newChildren[i] = nc

		if nc != c {
			changed = true
		}
	}

	if !changed {
		return current
	}

	return current.WithChildren(newChildren)
}

// FindAll returns every node of the given Kind in a pre-order traversal of
// n, including n itself.
func FindAll(n Node, kind Kind) []Node {
	var found []Node

	Walk(n, func(node Node) Node {
		if node.Kind() == kind {
			found = append(found, node)
		}

		return nil
	})

	return found
}

// Placeholders returns every PlaceholderNode reachable from n, in
// pre-order traversal order.
func Placeholders(n Node) []*PlaceholderNode {
	var found []*PlaceholderNode

	Walk(n, func(node Node) Node {
		if p, ok := node.(*PlaceholderNode); ok {
			found = append(found, p)
		}

		return nil
	})

	return found
}

// Parameters returns every ParameterNode (builder-captured values)
// reachable from n, in pre-order traversal order.
func Parameters(n Node) []*ParameterNode {
	var found []*ParameterNode

	Walk(n, func(node Node) Node {
		if p, ok := node.(*ParameterNode); ok {
			found = append(found, p)
		}

		return nil
	})

	return found
}
