package loader

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/chrissnell/trafficdash/internal/traffic"
	"golang.org/x/sync/singleflight"
)

// CacheObserver is notified of cache lookups. It is satisfied by observability.Metrics.
type CacheObserver interface {
	ObserveCacheLookup(hit bool)
	ObserveDatasetLoaded(rows int)
}

type cacheKey struct {
	source string
	loader string
}

// Cache memoizes datasets by (source path, loader identity). Entries are filled lazily on
// first access and never invalidated; the source file is treated as immutable for the
// lifetime of the process. Failed loads are not stored.
type Cache struct {
	mu       sync.RWMutex
	entries  map[cacheKey]*traffic.Dataset
	group    singleflight.Group
	observer CacheObserver
}

// NewCache creates an empty cache. observer may be nil.
func NewCache(observer CacheObserver) *Cache {
	return &Cache{
		entries:  make(map[cacheKey]*traffic.Dataset),
		observer: observer,
	}
}

// Get returns the cached dataset for the loader's source, loading it on first use.
// Concurrent first callers share a single load.
func (c *Cache) Get(ctx context.Context, l Loader) (*traffic.Dataset, error) {
	key := keyFor(l)

	c.mu.RLock()
	ds, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.observeLookup(true)
		return ds, nil
	}
	c.observeLookup(false)

	v, err, _ := c.group.Do(key.source+"\x00"+key.loader, func() (interface{}, error) {
		// Another caller may have finished while we waited for the flight
		c.mu.RLock()
		existing, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}

		loaded, err := l.Load(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = loaded
		c.mu.Unlock()

		if c.observer != nil {
			c.observer.ObserveDatasetLoaded(loaded.Len())
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*traffic.Dataset), nil
}

// Cached reports whether the loader's dataset is already in the cache
func (c *Cache) Cached(l Loader) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[keyFor(l)]
	return ok
}

// Len returns the number of cached datasets
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) observeLookup(hit bool) {
	if c.observer != nil {
		c.observer.ObserveCacheLookup(hit)
	}
}

func keyFor(l Loader) cacheKey {
	src := l.Source()
	if abs, err := filepath.Abs(src); err == nil {
		src = abs
	}
	return cacheKey{source: src, loader: l.ID()}
}
