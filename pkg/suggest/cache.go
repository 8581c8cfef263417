package suggest

import (
	"math"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// FallbackCache keeps generated completions per prefix so repeated misses on
// the same prefix don't hit the generator again. Least recently used prefixes
// are evicted once maxEntries is reached.
type FallbackCache struct {
	entries     *patricia.Trie
	accessTime  map[string]int64
	accessCount int64
	hits        int
	misses      int
	maxEntries  int
	mu          sync.Mutex
}

// NewFallbackCache creates a cache holding up to maxEntries prefixes.
func NewFallbackCache(maxEntries int) *FallbackCache {
	return &FallbackCache{
		entries:    patricia.NewTrie(),
		accessTime: make(map[string]int64, maxEntries),
		maxEntries: maxEntries,
	}
}

// cacheEntry is one generation round: the distinct completions it produced
// and how many generator calls it made.
type cacheEntry struct {
	completions []string
	attempts    int
}

// Get returns up to limit cached completions for prefix. An entry answers the
// request when it already holds limit completions or when a round of at least
// limit attempts produced it; anything else counts as a miss.
func (fc *FallbackCache) Get(prefix string, limit int) ([]string, bool) {
	if fc == nil {
		return nil, false
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()

	item := fc.entries.Get(patricia.Prefix(prefix))
	if item == nil {
		fc.misses++
		return nil, false
	}
	entry, ok := item.(*cacheEntry)
	if !ok {
		log.Errorf("Unknown cache item type: %T for prefix %q", item, prefix)
		return nil, false
	}
	if len(entry.completions) < limit && entry.attempts < limit {
		fc.misses++
		return nil, false
	}
	fc.hits++
	fc.markAccessed(prefix)

	n := min(limit, len(entry.completions))
	out := make([]string, n)
	copy(out, entry.completions[:n])
	return out, true
}

// Put stores the outcome of a round of attempts generator calls for prefix,
// replacing any previous entry.
func (fc *FallbackCache) Put(prefix string, completions []string, attempts int) {
	if fc == nil || fc.maxEntries <= 0 {
		return
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if _, exists := fc.accessTime[prefix]; !exists && len(fc.accessTime) >= fc.maxEntries {
		fc.evictLRU()
	}
	stored := make([]string, len(completions))
	copy(stored, completions)
	fc.entries.Set(patricia.Prefix(prefix), &cacheEntry{completions: stored, attempts: attempts})
	fc.markAccessed(prefix)
}

// Invalidate drops every cached prefix that starts with prefix.
func (fc *FallbackCache) Invalidate(prefix string) int {
	if fc == nil {
		return 0
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()

	var doomed []string
	_ = fc.entries.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, _ patricia.Item) error {
		doomed = append(doomed, string(p))
		return nil
	})
	for _, p := range doomed {
		fc.entries.Delete(patricia.Prefix(p))
		delete(fc.accessTime, p)
	}
	return len(doomed)
}

// Reset empties the cache.
func (fc *FallbackCache) Reset() {
	if fc == nil {
		return
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.entries = patricia.NewTrie()
	fc.accessTime = make(map[string]int64, fc.maxEntries)
	log.Debug("Fallback cache reset")
}

// Stats reports cache size and hit counters.
func (fc *FallbackCache) Stats() map[string]int {
	if fc == nil {
		return map[string]int{}
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()

	return map[string]int{
		"cacheEntries":    len(fc.accessTime),
		"cacheMaxEntries": fc.maxEntries,
		"cacheHits":       fc.hits,
		"cacheMisses":     fc.misses,
	}
}

func (fc *FallbackCache) markAccessed(prefix string) {
	fc.accessCount++
	fc.accessTime[prefix] = fc.accessCount
}

func (fc *FallbackCache) evictLRU() {
	var oldest string
	var oldestTime int64 = math.MaxInt64

	for prefix, accessTime := range fc.accessTime {
		if accessTime < oldestTime {
			oldestTime = accessTime
			oldest = prefix
		}
	}

	if oldestTime != math.MaxInt64 {
		fc.entries.Delete(patricia.Prefix(oldest))
		delete(fc.accessTime, oldest)
		log.Debugf("Evicted prefix '%s' from fallback cache", oldest)
	}
}
