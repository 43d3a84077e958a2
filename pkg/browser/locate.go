package browser

import (
	"strings"

	"github.com/adrianmross/geo-tree/pkg/geo"
)

// Match is a top-level entry returned by FilterArr, with the paths of the
// matching nodes below it.
type Match struct {
	Region string   `json:"region"`
	Key    string   `json:"key"`
	Paths  []string `json:"paths,omitempty"`
}

// Locate searches the loaded part of tree for value (name, code or id).
func Locate(tree geo.Tree, value string) []Match {
	var out []Match
	for _, root := range geo.FilterArr(tree.Roots(), value) {
		m := Match{Region: root.DisplayName(), Key: root.Key()}
		for _, hit := range geo.FilterArr(descendants(root), value) {
			chain, ok := geo.AncestorChain(tree.Roots(), hit.Key())
			if !ok {
				continue
			}
			names := make([]string, len(chain))
			for i, n := range chain {
				names[i] = n.DisplayName()
			}
			m.Paths = append(m.Paths, strings.Join(names, " > "))
		}
		out = append(out, m)
	}
	return out
}

// descendants lists the nodes below n in pre-order, as childless copies so
// FilterArr tests each one on its own fields.
func descendants(n geo.Node) []geo.Node {
	var out []geo.Node
	stack := make([]geo.Node, 0, len(n.Children))
	for i := len(n.Children) - 1; i >= 0; i-- {
		stack = append(stack, n.Children[i])
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
		cur.Children = nil
		out = append(out, cur)
	}
	return out
}
