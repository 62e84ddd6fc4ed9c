package index

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache holds one similarity tree per project, keyed by the project's
// generation counter. A tree built at generation G is served only while the
// project is still at G; a lagging entry is rebuilt before use.
//
// Rebuilds are guarded by singleflight: concurrent queries against the same
// stale project share a single in-flight build per generation bump instead of
// each paying the O(n log n) cost.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	group   singleflight.Group
}

type cacheEntry struct {
	tree       *Tree
	generation uint64
}

// NewCache creates an empty index cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*cacheEntry)}
}

// Builder produces a fresh tree from the project's current embedded blocks.
type Builder func() (*Tree, error)

// Get returns the project's tree for the given generation, invoking build at
// most once per (project, generation) when the cached entry is absent or stale.
func (c *Cache) Get(project string, generation uint64, build Builder) (*Tree, error) {
	c.mu.RLock()
	entry, ok := c.entries[project]
	c.mu.RUnlock()
	if ok && entry.generation == generation {
		return entry.tree, nil
	}

	key := fmt.Sprintf("%s@%d", project, generation)
	v, err, _ := c.group.Do(key, func() (any, error) {
		// Another waiter may have stored this generation already
		c.mu.RLock()
		entry, ok := c.entries[project]
		c.mu.RUnlock()
		if ok && entry.generation == generation {
			return entry.tree, nil
		}

		tree, err := build()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		// Never replace a newer tree with an older build
		if cur, ok := c.entries[project]; !ok || cur.generation <= generation {
			c.entries[project] = &cacheEntry{tree: tree, generation: generation}
		}
		c.mu.Unlock()
		return tree, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Tree), nil
}

// Invalidate drops the project's cached tree. Called when a project is
// deleted; plain mutations are handled by the generation key instead.
func (c *Cache) Invalidate(project string) {
	c.mu.Lock()
	delete(c.entries, project)
	c.mu.Unlock()
}

// Len returns the number of cached trees, for status reporting.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
