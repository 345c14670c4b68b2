package memcache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultSize is the number of entries kept when New is given no size.
const DefaultSize = 1024

var NowFunc = time.Now // mockable

type item struct {
	value   []byte
	expires time.Time // zero means never
}

func (it item) expired(now time.Time) bool {
	return !it.expires.IsZero() && !now.Before(it.expires)
}

// Cache is an in-process key/value cache holding at most size entries, least recently used ones evicted first.
// Entries older than the cache TTL are swept in the background; a shorter TTL given to Set is checked on read.
// Counters are kept apart from the entries and are never evicted.
type Cache struct {
	entries *expirable.LRU[string, item]

	mu       sync.Mutex
	counters map[string]int64
}

// New creates a cache of the given size (DefaultSize if size <= 0) sweeping entries after ttl (never if ttl <= 0).
func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	return &Cache{
		entries:  expirable.NewLRU[string, item](size, nil, ttl),
		counters: make(map[string]int64),
	}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	it, ok := c.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if it.expired(NowFunc()) {
		c.entries.Remove(key)
		return nil, false, nil
	}

	value := make([]byte, len(it.value))
	copy(value, it.value)
	return value, true, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	it := item{value: make([]byte, len(value))}
	copy(it.value, value)
	if ttl > 0 {
		it.expires = NowFunc().Add(ttl)
	}
	c.entries.Add(key, it)
	return nil
}

func (c *Cache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		c.entries.Remove(key)
	}
	return nil
}

func (c *Cache) Incr(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		c.counters[key]++
	}
	return nil
}

func (c *Cache) Counters(_ context.Context, keys ...string) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	values := make([]int64, len(keys))
	for i, key := range keys {
		values[i] = c.counters[key]
	}
	return values, nil
}

// Len returns the number of entries, expired ones included until swept.
func (c *Cache) Len() int {
	return c.entries.Len()
}
