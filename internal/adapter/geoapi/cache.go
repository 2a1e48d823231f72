package geoapi

import (
	"context"
	"sync"

	"github.com/couchcryptid/brew-water-service/internal/domain"
	"github.com/couchcryptid/brew-water-service/internal/observability"
)

const departementsKey = "departements"

// CachedDirectory wraps a Directory with an in-memory LRU cache. The
// administrative map changes a few times a year, so entries never expire.
type CachedDirectory struct {
	inner        domain.Directory
	departements *lruCache[[]domain.Departement]
	communes     *lruCache[[]domain.Commune]
	metrics      *observability.Metrics
}

// NewCachedDirectory creates a cache decorator around a directory. maxEntries
// bounds the number of départements whose communes are kept.
func NewCachedDirectory(inner domain.Directory, maxEntries int, metrics *observability.Metrics) *CachedDirectory {
	return &CachedDirectory{
		inner:        inner,
		departements: newLRUCache[[]domain.Departement](1),
		communes:     newLRUCache[[]domain.Commune](maxEntries),
		metrics:      metrics,
	}
}

func (c *CachedDirectory) Departements(ctx context.Context) ([]domain.Departement, error) {
	if deps, ok := c.departements.get(departementsKey); ok {
		c.metrics.DirectoryCache.WithLabelValues("departements", "hit").Inc()
		return clone(deps), nil
	}
	c.metrics.DirectoryCache.WithLabelValues("departements", "miss").Inc()
	deps, err := c.inner.Departements(ctx)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty results so a transient empty answer can be retried.
	if len(deps) > 0 {
		c.departements.put(departementsKey, clone(deps))
	}
	return deps, nil
}

func (c *CachedDirectory) Communes(ctx context.Context, departementCode string) ([]domain.Commune, error) {
	if communes, ok := c.communes.get(departementCode); ok {
		c.metrics.DirectoryCache.WithLabelValues("communes", "hit").Inc()
		return clone(communes), nil
	}
	c.metrics.DirectoryCache.WithLabelValues("communes", "miss").Inc()
	communes, err := c.inner.Communes(ctx, departementCode)
	if err != nil {
		return nil, err
	}
	if len(communes) > 0 {
		c.communes.put(departementCode, clone(communes))
	}
	return communes, nil
}

// clone keeps callers that sort the result in place from reordering the
// cached copy.
func clone[T any](s []T) []T {
	return append([]T(nil), s...)
}

// lruCache is a small thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
