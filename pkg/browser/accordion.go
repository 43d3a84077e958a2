package browser

import "github.com/adrianmross/geo-tree/pkg/geo"

// Accordion tracks which sections are open. Within one parent at most one
// child section is open; opening another closes it. Any section can be
// collapsed.
type Accordion struct {
	open map[string]bool
}

// NewAccordion opens keys in order, as returned by geo.ExpandedKeys.
func NewAccordion(keys ...string) *Accordion {
	a := &Accordion{open: make(map[string]bool)}
	for _, k := range keys {
		a.open[k] = true
	}
	return a
}

// IsOpen reports whether the section for key is expanded.
func (a *Accordion) IsOpen(key string) bool { return a.open[key] }

// Open expands key and collapses its open siblings.
func (a *Accordion) Open(tree geo.Tree, key string) {
	for _, sib := range siblingsOf(tree, key) {
		if k := sib.Key(); k != key {
			delete(a.open, k)
		}
	}
	a.open[key] = true
}

// Close collapses key. Descendants keep their state for the next open.
func (a *Accordion) Close(key string) { delete(a.open, key) }

// Toggle flips key and reports whether it ended up open.
func (a *Accordion) Toggle(tree geo.Tree, key string) bool {
	if a.open[key] {
		a.Close(key)
		return false
	}
	a.Open(tree, key)
	return true
}

// Reveal opens the chain of sections down to and including key.
func (a *Accordion) Reveal(tree geo.Tree, key string) {
	for _, k := range geo.ExpandedKeys(tree.Roots(), key, false) {
		a.Open(tree, k)
	}
}

func siblingsOf(tree geo.Tree, key string) []geo.Node {
	chain, ok := tree.Chain(key)
	if !ok {
		return nil
	}
	if len(chain) == 1 {
		return tree.Roots()
	}
	return chain[len(chain)-2].Children
}

// Row is one visible line of the rendered tree.
type Row struct {
	Depth    int
	Node     geo.Node
	Open     bool
	Selected bool
	Pending  bool
	Err      error
}

// Rows flattens the visible part of the tree in display order. A section's
// children are listed only when it is loaded and open.
func Rows(st State, a *Accordion) []Row {
	type item struct {
		node  geo.Node
		depth int
	}
	roots := st.Tree.Roots()
	stack := make([]item, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, item{node: roots[i]})
	}
	var rows []Row
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		key := it.node.Key()
		open := a.IsOpen(key) && it.node.Loaded
		rows = append(rows, Row{
			Depth:    it.depth,
			Node:     it.node,
			Open:     open,
			Selected: st.Selected == key,
			Pending:  st.Pending[key],
			Err:      st.Errors[key],
		})
		if !open {
			continue
		}
		for i := len(it.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{node: it.node.Children[i], depth: it.depth + 1})
		}
	}
	return rows
}
