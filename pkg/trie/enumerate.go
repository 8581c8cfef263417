package trie

import "strings"

// frame is one pending step of the depth-first walk. depth is the length of
// the suffix (in runes) above the node, so the suffix buffer can be cut back
// to it before the node's rune is appended.
type frame struct {
	id    NodeID
	depth int
}

// Enumerate returns every stored sentence below pos, each spelled as prefix
// followed by the characters on the path from pos. A Missing position yields
// an empty slice.
func (t *Trie) Enumerate(pos Position, prefix string) []string {
	return t.EnumerateN(pos, prefix, 0)
}

// EnumerateN is Enumerate that stops after limit results. limit <= 0 means no limit.
//
// The walk is depth-first with children in insertion order. A terminal node is
// emitted before any of its descendants, including the start node itself.
func (t *Trie) EnumerateN(pos Position, prefix string, limit int) []string {
	results := []string{}
	if !pos.Found || int(pos.Node) >= len(t.nodes) {
		return results
	}

	start := &t.nodes[pos.Node]
	if start.terminal {
		results = append(results, prefix)
		if limit > 0 && len(results) >= limit {
			return results
		}
	}

	suffix := make([]rune, 0, 32)
	stack := make([]frame, 0, len(start.children))
	stack = pushChildren(stack, start.children, 0)

	var sb strings.Builder
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[f.id]
		suffix = append(suffix[:f.depth], n.char)

		if n.terminal {
			sb.Reset()
			sb.Grow(len(prefix) + len(suffix)*utf8Max)
			sb.WriteString(prefix)
			for _, r := range suffix {
				sb.WriteRune(r)
			}
			results = append(results, sb.String())
			if limit > 0 && len(results) >= limit {
				return results
			}
		}

		stack = pushChildren(stack, n.children, f.depth+1)
	}
	return results
}

const utf8Max = 4

// pushChildren pushes children in reverse so the first-inserted child is popped first.
func pushChildren(stack []frame, children []NodeID, depth int) []frame {
	for i := len(children) - 1; i >= 0; i-- {
		stack = append(stack, frame{id: children[i], depth: depth})
	}
	return stack
}

// Walk visits every node in depth-first insertion order, passing the node and
// its depth below the root. Returning false from fn stops the walk.
func (t *Trie) Walk(fn func(v NodeView, depth int) bool) {
	root := &t.nodes[RootID]
	stack := pushChildren(make([]frame, 0, len(root.children)), root.children, 1)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[f.id]
		if !fn(NodeView{ID: f.id, Char: n.char, Terminal: n.terminal, Children: len(n.children)}, f.depth) {
			return
		}
		stack = pushChildren(stack, n.children, f.depth+1)
	}
}
