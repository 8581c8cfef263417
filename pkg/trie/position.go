package trie

// Position is the outcome of Locate: either Found at a node, or Missing.
// The zero value is Missing.
type Position struct {
	Found bool
	Node  NodeID
}

// Missing is the Position returned when a prefix has no path in the trie.
var Missing = Position{}

// NodeView is a read-only copy of a node's fields.
type NodeView struct {
	ID       NodeID
	Char     rune
	Terminal bool
	Children int
}

// Stats describes the shape of a trie.
type Stats struct {
	Nodes     int
	Sentences int
	MaxDepth  int
}
