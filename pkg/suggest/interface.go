// Package suggest is the core orchestration: trie lookups, traversal truncation and the generative fallback.
package suggest

import "context"

// ICompleter defines the interface for sentence completion engines
type ICompleter interface {
	// Complete returns up to limit completions for prefix
	Complete(ctx context.Context, prefix string, limit int) (Result, error)

	// Stats returns statistics about the loaded trie
	Stats() map[string]int
}

var _ ICompleter = (*Completer)(nil)
