package geo

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// ValidateName decodes percent escapes and turns literal "%20" into spaces.
// Decoding repeats until the text stops changing, so names that were encoded
// twice come out clean and the function is idempotent. A malformed escape,
// or one that decodes to invalid UTF-8, is left in place. "+" is kept as-is.
func ValidateName(name string) string {
	cur := name
	for {
		next := decodeStep(cur)
		if next == cur {
			return cur
		}
		cur = next
	}
}

func decodeStep(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	if dec, err := url.PathUnescape(s); err == nil && utf8.ValidString(dec) {
		return dec
	}
	return strings.ReplaceAll(s, "%20", " ")
}

// FindInArray returns the first node whose name equals ValidateName(value).
func FindInArray(list []Node, value string) (Node, bool) {
	want := ValidateName(value)
	for _, n := range list {
		if n.Record.Name == want {
			return n, true
		}
	}
	return Node{}, false
}

// FilterArr returns the top-level entries whose subtree, the entry itself
// included, carries a field equal to value (raw or normalized).
func FilterArr(roots []Node, value string) []Node {
	norm := ValidateName(value)
	var out []Node
	for _, root := range roots {
		if subtreeHas(root, value, norm) {
			out = append(out, root)
		}
	}
	return out
}

func subtreeHas(root Node, raw, norm string) bool {
	stack := []Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, v := range n.fieldValues() {
			if v == "" {
				continue
			}
			if v == raw || v == norm {
				return true
			}
		}
		stack = append(stack, n.Children...)
	}
	return false
}
