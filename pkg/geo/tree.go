package geo

import "fmt"

// Tree is an immutable snapshot of the hierarchy. Updates return a new Tree
// that shares every untouched subtree with the old one, so a snapshot handed
// to a renderer never changes underneath it.
type Tree struct {
	roots []Node
}

// NewTree builds a snapshot over roots. The slice is copied.
func NewTree(roots []Node) Tree {
	cp := make([]Node, len(roots))
	copy(cp, roots)
	return Tree{roots: cp}
}

// Roots returns the top-level nodes. The result must be treated as read-only.
func (t Tree) Roots() []Node { return t.roots }

// Len is the number of top-level nodes.
func (t Tree) Len() int { return len(t.roots) }

// Find returns the node with the given key.
func (t Tree) Find(key string) (Node, bool) {
	chain, ok := AncestorChain(t.roots, key)
	if !ok {
		return Node{}, false
	}
	return chain[len(chain)-1], true
}

// Chain returns the nodes from the top-level region down to key.
func (t Tree) Chain(key string) ([]Node, bool) {
	return AncestorChain(t.roots, key)
}

// Attach returns a tree in which the node with key carries records as its
// children, each tagged with the next level down. Attaching to a city or to
// an unknown key fails.
func (t Tree) Attach(key string, records []Record) (Tree, error) {
	path, ok := pathTo(t.roots, key)
	if !ok {
		return t, fmt.Errorf("attach %s: %w", key, ErrNotFound)
	}
	target := nodeAt(t.roots, path)
	next, ok := target.Level.Next()
	if !ok {
		return t, fmt.Errorf("attach %s: %s nodes have no children", key, target.Level)
	}
	children := NewChildren(next, records)
	roots := replaceAt(t.roots, path, func(n Node) Node {
		n.Children = children
		n.Loaded = true
		return n
	})
	return Tree{roots: roots}, nil
}

// Count returns the number of nodes in the tree.
func (t Tree) Count() int {
	total := 0
	stack := append([]Node(nil), t.roots...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		total++
		stack = append(stack, n.Children...)
	}
	return total
}

type pathItem struct {
	node Node
	path []int
}

// pathTo runs a pre-order search with an explicit stack and returns the
// index path of the first node matching key.
func pathTo(roots []Node, key string) ([]int, bool) {
	stack := make([]pathItem, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, pathItem{node: roots[i], path: []int{i}})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.node.Key() == key {
			return it.path, true
		}
		for i := len(it.node.Children) - 1; i >= 0; i-- {
			p := make([]int, len(it.path)+1)
			copy(p, it.path)
			p[len(it.path)] = i
			stack = append(stack, pathItem{node: it.node.Children[i], path: p})
		}
	}
	return nil, false
}

func nodeAt(roots []Node, path []int) Node {
	n := roots[path[0]]
	for _, i := range path[1:] {
		n = n.Children[i]
	}
	return n
}

// replaceAt copies only the slices along path.
func replaceAt(nodes []Node, path []int, fn func(Node) Node) []Node {
	out := make([]Node, len(nodes))
	copy(out, nodes)
	i := path[0]
	if len(path) == 1 {
		out[i] = fn(out[i])
		return out
	}
	n := out[i]
	n.Children = replaceAt(n.Children, path[1:], fn)
	out[i] = n
	return out
}

// AncestorChain returns the nodes from a top-level entry down to the first
// node whose key matches.
func AncestorChain(roots []Node, key string) ([]Node, bool) {
	path, ok := pathTo(roots, key)
	if !ok {
		return nil, false
	}
	chain := make([]Node, 0, len(path))
	level := roots
	for _, i := range path {
		chain = append(chain, level[i])
		level = level[i].Children
	}
	return chain, true
}

// ExpandedKeys lists the sections that should render open so the target is
// visible: the target's ancestors and the target itself. With expandAll every
// loaded section is returned and key is ignored.
func ExpandedKeys(roots []Node, key string, expandAll bool) []string {
	if expandAll {
		var keys []string
		stack := make([]Node, 0, len(roots))
		for i := len(roots) - 1; i >= 0; i-- {
			stack = append(stack, roots[i])
		}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if n.Loaded {
				keys = append(keys, n.Key())
			}
			for i := len(n.Children) - 1; i >= 0; i-- {
				stack = append(stack, n.Children[i])
			}
		}
		return keys
	}
	if key == "" {
		return nil
	}
	chain, ok := AncestorChain(roots, key)
	if !ok {
		return nil
	}
	keys := make([]string, len(chain))
	for i, n := range chain {
		keys[i] = n.Key()
	}
	return keys
}
