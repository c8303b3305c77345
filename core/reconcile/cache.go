package reconcile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Cache holds pre-built indices for fast targeted reconciliation.
type Cache struct {
	// Metadata is the index of declared tokens.
	Metadata map[string]Entry

	// Output is the index of rebuilt images.
	Output map[string]Entry

	// Bucket is the index of published images. Nil without a bucket source.
	Bucket map[string]Entry

	// Built is the timestamp when this cache was built.
	Built time.Time

	// TTL is the time-to-live for this cache.
	TTL time.Duration
}

// IsExpired returns true if this cache has expired based on its TTL.
func (c *Cache) IsExpired() bool {
	if c.TTL == 0 {
		return true
	}
	return time.Since(c.Built) > c.TTL
}

// cacheStore holds all reconcile caches keyed by spec cache key.
type cacheStore struct {
	mu     sync.RWMutex
	caches map[string]*Cache
	sf     singleflight.Group
}

var globalCacheStore = &cacheStore{
	caches: make(map[string]*Cache),
}

// BuildCache loads every source concurrently. It does NOT store the cache;
// use GetOrBuildCache for that.
func BuildCache(ctx context.Context, spec *Spec) (*Cache, error) {
	cache := &Cache{TTL: spec.CacheTTL}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cache.Metadata, err = spec.Metadata.Load(gctx)
		return err
	})
	g.Go(func() (err error) {
		cache.Output, err = spec.Output.Load(gctx)
		return err
	})
	if spec.Bucket != nil {
		g.Go(func() (err error) {
			cache.Bucket, err = spec.Bucket.Load(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cache.Built = time.Now()
	return cache, nil
}

// GetOrBuildCache retrieves a cache for the given spec from the store,
// or builds a new one if it doesn't exist or has expired.
// Uses singleflight to prevent cache stampedes.
func GetOrBuildCache(ctx context.Context, spec *Spec) (*Cache, error) {
	cacheKey := spec.CacheKey()

	globalCacheStore.mu.RLock()
	cache, exists := globalCacheStore.caches[cacheKey]
	globalCacheStore.mu.RUnlock()

	if exists && !cache.IsExpired() {
		return cache, nil
	}

	result, err, _ := globalCacheStore.sf.Do(cacheKey, func() (interface{}, error) {
		globalCacheStore.mu.RLock()
		cache, exists := globalCacheStore.caches[cacheKey]
		globalCacheStore.mu.RUnlock()

		if exists && !cache.IsExpired() {
			return cache, nil
		}

		newCache, err := BuildCache(ctx, spec)
		if err != nil {
			return nil, err
		}

		globalCacheStore.mu.Lock()
		globalCacheStore.caches[cacheKey] = newCache
		globalCacheStore.mu.Unlock()

		return newCache, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*Cache), nil
}

// InvalidateCache removes the cache for the given spec from the store.
func InvalidateCache(spec *Spec) {
	cacheKey := spec.CacheKey()
	globalCacheStore.mu.Lock()
	delete(globalCacheStore.caches, cacheKey)
	globalCacheStore.mu.Unlock()
}
