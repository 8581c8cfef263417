package corpus

import (
	"context"
	"errors"
	"time"

	"github.com/bastiangx/sentserve/pkg/trie"
	"github.com/charmbracelet/log"
)

// BuildStats summarizes a trie build.
type BuildStats struct {
	Read     int
	Inserted int
	Skipped  int
	Took     time.Duration
}

// BuildTrie loads every source and inserts the sentences into a new trie.
// Sentences longer than maxLen runes or not valid UTF-8 are skipped and counted.
func BuildTrie(ctx context.Context, maxLen int, sources ...Source) (*trie.Trie, BuildStats, error) {
	start := time.Now()
	sentences, err := LoadAll(ctx, sources...)
	if err != nil {
		return nil, BuildStats{}, err
	}

	t := trie.New(maxLen)
	stats := BuildStats{Read: len(sentences)}
	for _, s := range sentences {
		if err := t.Insert(s); err != nil {
			if errors.Is(err, trie.ErrSequenceTooLong) || errors.Is(err, trie.ErrInvalidEncoding) {
				stats.Skipped++
				log.Debugf("Skipping sentence: %v", err)
				continue
			}
			return nil, stats, err
		}
		stats.Inserted++
	}
	stats.Took = time.Since(start)

	if stats.Skipped > 0 {
		log.Warnf("Skipped %d sentences (over %d runes or invalid UTF-8)", stats.Skipped, maxLen)
	}
	log.Debugf("Built trie: %d sentences read, %d distinct, took [ %v ]", stats.Read, t.Len(), stats.Took)
	return t, stats, nil
}
