package pipeline

import (
	"container/list"
	"sync"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/ast"
)

// parseCacheKey keys the parse cache on (dialect, text), never on text
// alone — two dialects can parse the same text into different ASTs (e.g.
// a dialect-specific keyword), so collapsing the key to text would
// silently serve the wrong AST.
type parseCacheKey struct {
	dialect sqlspec.Dialect
	text    string
}

// parseCache is a bounded least-recently-used cache of parsed ASTs with
// a real eviction policy: an unbounded map of arbitrary caller-supplied
// SQL text is an easy memory leak in a long-lived service. No
// third-party LRU dependency is wired in, so this is a small stdlib
// container/list implementation rather than an import.
type parseCache struct {
	mu         sync.Mutex
	maxEntries int
	ll         *list.List
	items      map[parseCacheKey]*list.Element
	evictions  int
}

type cacheEntry struct {
	key  parseCacheKey
	root ast.Root
}

// newParseCache builds a cache holding at most maxEntries parsed ASTs. A
// non-positive maxEntries disables caching (every Get misses).
func newParseCache(maxEntries int) *parseCache {
	return &parseCache{
		maxEntries: maxEntries,
		ll:         list.New(),
		items:      map[parseCacheKey]*list.Element{},
	}
}

func (c *parseCache) get(dialect sqlspec.Dialect, text string) (ast.Root, bool) {
	if c == nil || c.maxEntries <= 0 {
		return nil, false
	}

	key := parseCacheKey{dialect: dialect, text: text}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}

	c.ll.MoveToFront(el)

	return el.Value.(*cacheEntry).root, true
}

func (c *parseCache) put(dialect sqlspec.Dialect, text string, root ast.Root) {
	if c == nil || c.maxEntries <= 0 {
		return
	}

	key := parseCacheKey{dialect: dialect, text: text}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*cacheEntry).root = root

		return
	}

	el := c.ll.PushFront(&cacheEntry{key: key, root: root})
	c.items[key] = el

	for c.ll.Len() > c.maxEntries {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}

		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
		c.evictions++
	}
}

// Len reports the number of entries currently cached.
func (c *parseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ll.Len()
}

// Evictions reports the running count of entries dropped for exceeding
// maxEntries, exposed for tests/diagnostics.
func (c *parseCache) Evictions() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.evictions
}
