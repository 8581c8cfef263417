package suggest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/bastiangx/sentserve/pkg/fallback"
	"github.com/bastiangx/sentserve/pkg/trie"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidLimit is returned for a negative result limit.
var ErrInvalidLimit = errors.New("suggest: result limit must be >= 0")

// Source tells where a Result came from.
type Source string

const (
	SourceNone     Source = "none"
	SourceTrie     Source = "trie"
	SourceFallback Source = "fallback"
)

// Result is the ordered output of a completion request.
type Result struct {
	Completions []string
	Source      Source
}

// Completer answers prefixes from a trie and falls back to a generator on a miss.
// The trie is read-only while published; Swap replaces it wholesale.
type Completer struct {
	mu       sync.RWMutex
	trie     *trie.Trie
	gen      fallback.Generator
	cache    *FallbackCache
	inflight singleflight.Group
}

// Option configures a Completer.
type Option func(*Completer)

// WithFallback sets the generator used when a prefix is not in the trie.
func WithFallback(g fallback.Generator) Option {
	return func(c *Completer) { c.gen = g }
}

// WithCache caches generated completions for up to maxEntries prefixes.
func WithCache(maxEntries int) Option {
	return func(c *Completer) {
		if maxEntries > 0 {
			c.cache = NewFallbackCache(maxEntries)
		}
	}
}

// NewCompleter creates a Completer over t. A nil t starts with an empty trie.
func NewCompleter(t *trie.Trie, opts ...Option) *Completer {
	if t == nil {
		t = trie.New(0)
	}
	c := &Completer{trie: t}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete returns up to limit sentences starting with prefix, in trie
// traversal order. When the trie has no path for prefix, the fallback is
// asked once per wanted completion; its failures yield an empty or partial
// result rather than an error. Only an empty prefix or negative limit fail.
func (c *Completer) Complete(ctx context.Context, prefix string, limit int) (Result, error) {
	if limit < 0 {
		return Result{}, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}

	t := c.Trie()
	pos, err := t.Locate(prefix)
	if err != nil {
		return Result{}, err
	}
	if limit == 0 {
		return Result{Completions: []string{}, Source: SourceNone}, nil
	}

	if pos.Found {
		return Result{
			Completions: t.EnumerateN(pos, prefix, limit),
			Source:      SourceTrie,
		}, nil
	}

	if c.gen == nil {
		log.Debugf("No trie match for '%s' and no fallback configured", prefix)
		return Result{Completions: []string{}, Source: SourceNone}, nil
	}
	return Result{
		Completions: c.fallback(ctx, prefix, limit),
		Source:      SourceFallback,
	}, nil
}

func (c *Completer) fallback(ctx context.Context, prefix string, limit int) []string {
	if cached, ok := c.cache.Get(prefix, limit); ok {
		return cached
	}

	key := strconv.Itoa(limit) + "\x00" + prefix
	for {
		v, err, _ := c.inflight.Do(key, func() (any, error) {
			out := c.generate(ctx, prefix, limit)
			if err := ctx.Err(); err != nil {
				return out, err
			}
			if len(out) > 0 {
				c.cache.Put(prefix, out, limit)
			}
			return out, nil
		})
		// the caller that ran the round went away; ours is still live, so run again
		if err != nil && ctx.Err() == nil {
			continue
		}

		out := v.([]string)
		if len(out) > limit {
			out = out[:limit]
		}
		res := make([]string, len(out))
		copy(res, out)
		return res
	}
}

// generate calls the generator limit times and keeps distinct outputs.
func (c *Completer) generate(ctx context.Context, prefix string, limit int) []string {
	results := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)

	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			log.Warnf("Fallback for '%s' stopped after %d of %d: %v", prefix, i, limit, err)
			break
		}
		text, err := c.gen.Generate(ctx, prefix)
		if err != nil {
			log.Warnf("Fallback generation failed for '%s': %v", prefix, err)
			continue
		}
		if text == "" || text == prefix {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		results = append(results, text)
	}
	return results
}

// Trie returns the currently published trie.
func (c *Completer) Trie() *trie.Trie {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trie
}

// Swap publishes t and returns the previous trie. Cached fallback results are
// dropped since prefixes that used to miss may now be found.
func (c *Completer) Swap(t *trie.Trie) *trie.Trie {
	if t == nil {
		t = trie.New(0)
	}
	c.mu.Lock()
	old := c.trie
	c.trie = t
	c.mu.Unlock()

	c.cache.Reset()
	log.Debugf("Swapped trie: %d -> %d sentences", old.Len(), t.Len())
	return old
}

// Stats returns statistics about the loaded trie and fallback cache.
func (c *Completer) Stats() map[string]int {
	st := c.Trie().Stats()
	stats := map[string]int{
		"sentences": st.Sentences,
		"nodes":     st.Nodes,
		"maxDepth":  st.MaxDepth,
	}
	if c.gen != nil {
		stats["fallback"] = 1
	} else {
		stats["fallback"] = 0
	}
	for k, v := range c.cache.Stats() {
		stats[k] = v
	}
	return stats
}
