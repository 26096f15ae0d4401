package orchestrator

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Key is the structured composite cache key: result kind, subject entity,
// and a hash of the context snapshot the result was computed against.
// Struct keys avoid the collision classes string concatenation invites.
type Key struct {
	Kind        string
	EntityID    uuid.UUID
	ContextHash uint64
}

// HashContext folds the mutable inputs of a computation into a context hash.
// Callers pass whatever identifies the snapshot: updated-at stamps, worker
// revision counters, option values.
func HashContext(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

type cacheEntry struct {
	value   any
	expires time.Time
}

// Cache is a TTL cache for scoring and prediction results. Entries expire
// after the configured TTL and are invalidated eagerly when a mutation
// touches their entity.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[Key]cacheEntry

	hits   uint64
	misses uint64
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, entries: make(map[Key]cacheEntry)}
}

func (c *Cache) Get(k Key) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expires) {
		c.mu.Lock()
		if ok {
			delete(c.entries, k)
		}
		c.misses++
		c.mu.Unlock()
		return nil, false
	}
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return e.value, true
}

func (c *Cache) Put(k Key, v any) {
	c.mu.Lock()
	c.entries[k] = cacheEntry{value: v, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// InvalidateEntity drops every cached result keyed to the entity, across all
// kinds and context hashes.
func (c *Cache) InvalidateEntity(id uuid.UUID) {
	c.mu.Lock()
	for k := range c.entries {
		if k.EntityID == id {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// InvalidateAll clears the cache, used when a worker-profile refresh changes
// the inputs of every cached computation.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[Key]cacheEntry)
	c.mu.Unlock()
}

// Stats returns cumulative hit/miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
