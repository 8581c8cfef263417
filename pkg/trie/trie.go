/*
Package trie implements the character trie behind sentence completion.

Nodes live in a flat arena and are addressed by NodeID. Index 0 is always the
synthetic root, which holds no character and is never terminal. Every node keeps
its children twice: an ordered slice recording arrival order, which fixes the
enumeration order, and a rune -> child map for lookups.

Insert, Locate and Enumerate are all iterative, so sentence length is bounded by
memory and never by the goroutine stack.

A Trie is built once and then only read. Concurrent Locate and Enumerate calls
are safe as long as no Insert runs at the same time.

	t := trie.New(0)
	_ = t.Insert("What is your address?")
	pos, _ := t.Locate("What is")
	completions := t.Enumerate(pos, "What is")
*/
package trie

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrEmptySequence is returned when a sentence or prefix has no characters.
	ErrEmptySequence = errors.New("trie: empty character sequence")
	// ErrSequenceTooLong is returned when a sentence exceeds the configured maximum length.
	ErrSequenceTooLong = errors.New("trie: character sequence exceeds maximum length")
	// ErrInvalidEncoding is returned for input that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("trie: character sequence is not valid UTF-8")
)

// NodeID is a stable index into the node arena.
type NodeID uint32

// RootID is the arena index of the root node.
const RootID NodeID = 0

type node struct {
	char     rune
	terminal bool
	children []NodeID
	index    map[rune]NodeID
}

// Trie is a prefix tree over runes.
type Trie struct {
	nodes     []node
	sentences int
	maxLen    int
	depth     int
}

// New creates an empty trie. Sentences longer than maxLen runes are rejected;
// maxLen <= 0 disables the limit.
func New(maxLen int) *Trie {
	return &Trie{
		nodes:  []node{{}},
		maxLen: maxLen,
	}
}

// Insert adds a sentence. Inserting the same sentence twice is a no-op.
func (t *Trie) Insert(sentence string) error {
	if sentence == "" {
		return ErrEmptySequence
	}
	if !utf8.ValidString(sentence) {
		return ErrInvalidEncoding
	}
	if t.maxLen > 0 {
		if n := utf8.RuneCountInString(sentence); n > t.maxLen {
			return fmt.Errorf("%w: %d > %d runes", ErrSequenceTooLong, n, t.maxLen)
		}
	}

	current := RootID
	depth := 0
	for _, r := range sentence {
		child, ok := t.child(current, r)
		if !ok {
			child = t.appendChild(current, r)
		}
		current = child
		depth++
	}

	last := &t.nodes[current]
	if !last.terminal {
		last.terminal = true
		t.sentences++
	}
	if depth > t.depth {
		t.depth = depth
	}
	return nil
}

// Locate walks the path spelled by prefix without creating nodes.
// The returned Position is Found when every rune of prefix has a matching child,
// whether or not the final node is terminal.
func (t *Trie) Locate(prefix string) (Position, error) {
	if prefix == "" {
		return Missing, ErrEmptySequence
	}
	if !utf8.ValidString(prefix) {
		return Missing, ErrInvalidEncoding
	}
	current := RootID
	for _, r := range prefix {
		child, ok := t.child(current, r)
		if !ok {
			return Missing, nil
		}
		current = child
	}
	return Position{Found: true, Node: current}, nil
}

// Contains reports whether sentence was inserted as a whole sentence.
func (t *Trie) Contains(sentence string) bool {
	pos, err := t.Locate(sentence)
	if err != nil || !pos.Found {
		return false
	}
	return t.nodes[pos.Node].terminal
}

// Node returns a read-only view of the node with the given id.
func (t *Trie) Node(id NodeID) (NodeView, bool) {
	if int(id) >= len(t.nodes) {
		return NodeView{}, false
	}
	n := &t.nodes[id]
	return NodeView{ID: id, Char: n.char, Terminal: n.terminal, Children: len(n.children)}, true
}

// Stats reports the size of the trie.
func (t *Trie) Stats() Stats {
	return Stats{
		Nodes:     len(t.nodes),
		Sentences: t.sentences,
		MaxDepth:  t.depth,
	}
}

// Len returns the number of distinct sentences stored.
func (t *Trie) Len() int { return t.sentences }

func (t *Trie) child(parent NodeID, r rune) (NodeID, bool) {
	id, ok := t.nodes[parent].index[r]
	return id, ok
}

func (t *Trie) appendChild(parent NodeID, r rune) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, node{char: r})

	p := &t.nodes[parent]
	if p.index == nil {
		p.index = make(map[rune]NodeID, 1)
	}
	p.index[r] = id
	p.children = append(p.children, id)
	return id
}
