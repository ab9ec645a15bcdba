// Package cache keeps backend responses keyed by query so views do not
// refetch on every navigation. Entries go stale after a fixed time.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultStaleTime = 5 * time.Minute
	DefaultSize      = 256
)

var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swiftel_query_cache_hits_total",
		Help: "Query cache hits, by query root.",
	}, []string{"query"})
	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swiftel_query_cache_misses_total",
		Help: "Query cache misses, by query root.",
	}, []string{"query"})
)

// Cache is a bounded LRU of query results. Keys are colon separated, the
// first segment being the query root ("notifications", "requests:42").
//
// Every Clear starts a new generation. A fetch only stores its result if
// no Clear happened while it ran, and fetches of different generations
// never share a call.
type Cache struct {
	lru   *expirable.LRU[string, any]
	group singleflight.Group

	mu  sync.Mutex
	gen uint64
}

func New(size int, staleTime time.Duration) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	return &Cache{lru: expirable.NewLRU[string, any](size, nil, staleTime)}
}

func (c *Cache) Get(key string) (any, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		cacheHitsTotal.WithLabelValues(root(key)).Inc()
		return v, true
	}
	cacheMissesTotal.WithLabelValues(root(key)).Inc()
	return nil, false
}

func (c *Cache) Set(key string, v any) {
	c.lru.Add(key, v)
}

// Invalidate drops key and every key below it ("requests" also drops
// "requests:42" and "requests:status:pending").
func (c *Cache) Invalidate(key string) {
	for _, k := range c.lru.Keys() {
		if k == key || strings.HasPrefix(k, key+":") {
			c.lru.Remove(k)
		}
	}
}

// Clear drops everything. Called on logout so nothing fetched for the
// previous session is served again, including fetches still in flight.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.lru.Purge()
}

func (c *Cache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// setIfCurrent stores v unless the cache was cleared since gen.
func (c *Cache) setIfCurrent(gen uint64, key string, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.lru.Add(key, v)
	return true
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

// Fetch returns the cached value for key or calls fn and caches its result.
// Concurrent misses on the same key share one call. Errors are not cached.
func Fetch[T any](ctx context.Context, c *Cache, key string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
		c.lru.Remove(key)
	}

	gen := c.generation()
	v, err, _ := c.group.Do(strconv.FormatUint(gen, 10)+"/"+key, func() (any, error) {
		res, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.setIfCurrent(gen, key, res)
		return res, nil
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: %s holds %T", key, v)
	}
	return typed, nil
}

// Key joins parts into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

func root(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}
