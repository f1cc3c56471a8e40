package resolver

import (
	"reflect"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Cache memoises successful resolutions per concrete request type. Entries are
// never evicted; the set of request types is bounded by the program's types.
type Cache[V any] struct {
	entries sync.Map
	group   singleflight.Group

	disabled bool
	size     atomic.Int64
	hits     atomic.Uint64
	misses   atomic.Uint64
}

// CacheStats is a point-in-time view of a cache.
type CacheStats struct {
	Enabled bool   `json:"enabled"`
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

type flight[V any] struct {
	key   reflect.Type
	value V
}

// NewCache returns a cache. A disabled cache calls compute on every lookup and
// stores nothing, which must not change any resolution outcome.
func NewCache[V any](enabled bool) *Cache[V] {
	return &Cache[V]{disabled: !enabled}
}

// Get returns the cached value for t, computing it on a miss. Concurrent misses
// for the same type share one computation and all observe the stored value.
// Failed computations are not cached.
func (c *Cache[V]) Get(t reflect.Type, compute func() (V, error)) (V, error) {
	if c.disabled {
		c.misses.Add(1)
		return compute()
	}
	if v, ok := c.entries.Load(t); ok {
		c.hits.Add(1)
		return v.(V), nil
	}
	c.misses.Add(1)

	res, err, _ := c.group.Do(t.String(), func() (any, error) {
		if v, ok := c.entries.Load(t); ok {
			return flight[V]{key: t, value: v.(V)}, nil
		}
		v, err := compute()
		if err != nil {
			return flight[V]{key: t}, err
		}
		return flight[V]{key: t, value: c.store(t, v)}, nil
	})
	f := res.(flight[V])
	if f.key != t {
		// Two distinct types rendered to the same name shared a flight.
		v, err := compute()
		if err != nil {
			return v, err
		}
		return c.store(t, v), nil
	}
	return f.value, err
}

func (c *Cache[V]) store(t reflect.Type, v V) V {
	actual, loaded := c.entries.LoadOrStore(t, v)
	if !loaded {
		c.size.Add(1)
	}
	return actual.(V)
}

// Len returns the number of cached request types.
func (c *Cache[V]) Len() int {
	return int(c.size.Load())
}

func (c *Cache[V]) Stats() CacheStats {
	return CacheStats{
		Enabled: !c.disabled,
		Entries: c.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}
