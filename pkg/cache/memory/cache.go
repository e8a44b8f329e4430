package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/homely-rentals/homely/pkg/models"
)

// DefaultTTL is the age after which an entry is treated as absent.
const DefaultTTL = 5 * time.Minute

// Cache is a process-wide key-value store with lazy TTL expiry.
// Expired entries stay in memory until the next Get on their key or a Clear.
type Cache struct {
	mu      sync.Mutex
	entries map[string]models.CacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the time source used for storedAt and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty Cache. A non-positive ttl falls back to DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: make(map[string]models.CacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the value stored under key. An entry older than the TTL is
// deleted and reported as absent.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.StoredAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.Value, true
}

// Set stores value under key, overwriting any previous entry.
func (c *Cache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = models.CacheEntry{
		Key:      key,
		Value:    value,
		StoredAt: c.now(),
	}
}

// Clear removes every key containing pattern as a substring, or every key
// when pattern is empty. It returns the number of entries removed.
func (c *Cache) Clear(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "" {
		n := len(c.entries)
		c.entries = make(map[string]models.CacheEntry)
		return n
	}

	removed := 0
	for key := range c.entries {
		if strings.Contains(key, pattern) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of physically stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ApproxBytes estimates memory held by keys and values.
func (c *Cache) ApproxBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	for key, e := range c.entries {
		total += int64(len(key) + len(e.Value))
	}
	return total
}

// Keys returns the stored keys in sorted order.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
