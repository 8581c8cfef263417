package trie

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// SnapshotVersion is the arena layout version written by Snapshot.
const SnapshotVersion = 1

// ErrCorruptSnapshot is returned by FromSnapshot when the arena is not a valid tree.
var ErrCorruptSnapshot = errors.New("trie: corrupt snapshot")

// Snapshot is the exported arena of a Trie. Entry i of each slice describes node i;
// Children lists child ids in insertion order. Storage formats live elsewhere.
type Snapshot struct {
	Version  int        `msgpack:"v" json:"v"`
	MaxLen   int        `msgpack:"max_len" json:"max_len"`
	Chars    []rune     `msgpack:"chars" json:"chars"`
	Terminal []bool     `msgpack:"term" json:"term"`
	Children [][]uint32 `msgpack:"kids" json:"kids"`
}

// Snapshot copies the trie into its exported form.
func (t *Trie) Snapshot() *Snapshot {
	s := &Snapshot{
		Version:  SnapshotVersion,
		MaxLen:   t.maxLen,
		Chars:    make([]rune, len(t.nodes)),
		Terminal: make([]bool, len(t.nodes)),
		Children: make([][]uint32, len(t.nodes)),
	}
	for i := range t.nodes {
		n := &t.nodes[i]
		s.Chars[i] = n.char
		s.Terminal[i] = n.terminal
		if len(n.children) == 0 {
			continue
		}
		kids := make([]uint32, len(n.children))
		for j, c := range n.children {
			kids[j] = uint32(c)
		}
		s.Children[i] = kids
	}
	return s
}

// FromSnapshot rebuilds a Trie, checking that the arena forms a strict tree
// rooted at node 0 with no duplicate characters among siblings.
func FromSnapshot(s *Snapshot) (*Trie, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrCorruptSnapshot)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, s.Version)
	}
	count := len(s.Chars)
	if count == 0 {
		return nil, fmt.Errorf("%w: missing root", ErrCorruptSnapshot)
	}
	if len(s.Terminal) != count || len(s.Children) != count {
		return nil, fmt.Errorf("%w: column lengths differ (%d chars, %d terminal, %d children)",
			ErrCorruptSnapshot, count, len(s.Terminal), len(s.Children))
	}
	if s.Terminal[RootID] {
		return nil, fmt.Errorf("%w: terminal root", ErrCorruptSnapshot)
	}

	t := &Trie{
		nodes:  make([]node, count),
		maxLen: s.MaxLen,
	}
	parented := make([]bool, count)
	for i := 0; i < count; i++ {
		n := &t.nodes[i]
		n.char = s.Chars[i]
		n.terminal = s.Terminal[i]
		if n.terminal {
			t.sentences++
		}
		kids := s.Children[i]
		if len(kids) == 0 {
			continue
		}
		n.children = make([]NodeID, len(kids))
		n.index = make(map[rune]NodeID, len(kids))
		for j, k := range kids {
			if k == 0 || int(k) >= count {
				return nil, fmt.Errorf("%w: node %d has child %d out of range", ErrCorruptSnapshot, i, k)
			}
			if parented[k] {
				return nil, fmt.Errorf("%w: node %d has more than one parent", ErrCorruptSnapshot, k)
			}
			parented[k] = true
			c := s.Chars[k]
			if !utf8.ValidRune(c) {
				return nil, fmt.Errorf("%w: node %d holds invalid rune %U", ErrCorruptSnapshot, k, c)
			}
			if _, dup := n.index[c]; dup {
				return nil, fmt.Errorf("%w: node %d has duplicate child %q", ErrCorruptSnapshot, i, c)
			}
			n.index[c] = NodeID(k)
			n.children[j] = NodeID(k)
		}
	}
	for i := 1; i < count; i++ {
		if !parented[i] {
			return nil, fmt.Errorf("%w: node %d is unreachable", ErrCorruptSnapshot, i)
		}
	}

	// A detached cycle passes the parent check but is not reachable from the root.
	reached := 0
	t.Walk(func(v NodeView, depth int) bool {
		reached++
		if depth > t.depth {
			t.depth = depth
		}
		return true
	})
	if reached != count-1 {
		return nil, fmt.Errorf("%w: %d of %d nodes reachable from root", ErrCorruptSnapshot, reached, count-1)
	}
	return t, nil
}
