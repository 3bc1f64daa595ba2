// Package cache implements a bounded TTL memo of chat responses.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/justsum66/cheersin-gateway/internal/model"
)

// keyPrefixLen bounds how much of the normalized question participates in the
// key, so trailing noise doesn't defeat the cache.
const keyPrefixLen = 200

type entry struct {
	value     model.ChatResponse
	createdAt time.Time
}

// Cache memoizes finished chat responses keyed on the last user question plus
// the caller's tier. Entries expire after ttl and the oldest entry is evicted
// once capacity is reached. Shared across requests; all access is mutex-guarded.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]entry
	ttl      time.Duration
	capacity int

	now func() time.Time
}

// New creates a cache with the given TTL and capacity.
func New(ttl time.Duration, capacity int) *Cache {
	if capacity <= 0 {
		capacity = 100
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{
		entries:  make(map[string]entry),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Key derives the cache key from the last user question and tier. The tier is
// canonicalized so an unknown label can never read a premium entry.
func Key(lastUserText, tier string) string {
	text := strings.ToLower(strings.TrimSpace(lastUserText))
	if len(text) > keyPrefixLen {
		text = text[:keyPrefixLen]
	}
	return text + "|" + model.CanonicalTier(tier)
}

// Lookup returns the cached response for (lastUserText, tier) if present and
// within the TTL.
func (c *Cache) Lookup(lastUserText, tier string) (model.ChatResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[Key(lastUserText, tier)]
	if !ok {
		return model.ChatResponse{}, false
	}
	if c.now().Sub(e.createdAt) > c.ttl {
		return model.ChatResponse{}, false
	}
	return e.value, true
}

// Store inserts a response, evicting the globally oldest entry when at
// capacity. Eviction and insert happen under one lock acquisition so the
// entry count stays bounded under concurrent writers.
func (c *Cache) Store(lastUserText, tier string, value model.ChatResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(lastUserText, tier)
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[key] = entry{value: value, createdAt: c.now()}
}

// Len returns the current entry count, expired entries included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.createdAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
