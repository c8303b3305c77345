package layers

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// cachedIndex is an index together with its build time.
type cachedIndex struct {
	index *Index
	built time.Time
}

// Cache keeps built indices so repeated runs over the same layer root skip
// the directory walk. Entries expire after TTL; a zero TTL disables caching.
type Cache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]cachedIndex
	sf      singleflight.Group
}

// NewCache creates a cache with the given time-to-live.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cachedIndex),
	}
}

func cacheKey(root string, opts Options) string {
	return root + "|" + opts.ManifestPath + "|" + opts.PrefixSeparator
}

func (c *Cache) fresh(e cachedIndex) bool {
	return c.ttl > 0 && time.Since(e.built) <= c.ttl
}

// GetOrBuild returns a cached index for root, building it when absent or
// expired. Concurrent callers for the same key share one build.
func (c *Cache) GetOrBuild(root string, opts Options) (*Index, error) {
	key := cacheKey(root, opts)

	// Fast path
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.fresh(entry) {
		return entry.index, nil
	}

	result, err, _ := c.sf.Do(key, func() (any, error) {
		c.mu.RLock()
		entry, ok := c.entries[key]
		c.mu.RUnlock()
		if ok && c.fresh(entry) {
			return entry.index, nil
		}

		idx, err := Build(root, opts)
		if err != nil {
			return nil, err
		}

		if c.ttl > 0 {
			c.mu.Lock()
			c.entries[key] = cachedIndex{index: idx, built: time.Now()}
			c.mu.Unlock()
		}
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Index), nil
}

// Invalidate drops the cached index for root.
func (c *Cache) Invalidate(root string, opts Options) {
	c.mu.Lock()
	delete(c.entries, cacheKey(root, opts))
	c.mu.Unlock()
}
