package cache

import (
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Entry is a cached task result with an absolute expiry instant.
// Entries are immutable once stored; expiry is checked on read.
type Entry struct {
	Value     json.RawMessage `json:"value"`
	TaskID    string          `json:"task_id"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// ExpiredAt reports whether the entry has passed its expiry at the given
// instant.
func (e *Entry) ExpiredAt(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Store is the optional persistent backend for cache entries.
// Implementations may use SQLite or other embedded storage.
type Store interface {
	GetEntry(key string) (*Entry, error)
	SetEntry(key string, entry *Entry) error
	DeleteExpired(now time.Time) (int64, error)
	DeleteAll() error
}

// Cache is the in-memory response cache shared by all tasks. It is
// content-addressed (see Key), bounded by an LRU as a defensive measure,
// and expires entries lazily on read. An optional persistent Store acts
// as a second tier that survives restarts.
type Cache struct {
	memory *lru.Cache[string, *Entry]
	store  Store
	now    func() time.Time
}

// New creates a Cache bounded to maxEntries. store may be nil for a
// memory-only cache.
func New(maxEntries int, store Store) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}

	memory, err := lru.New[string, *Entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("cache: creating LRU: %w", err)
	}

	return &Cache{
		memory: memory,
		store:  store,
		now:    time.Now,
	}, nil
}

// SetClock replaces the cache's time source. Tests use this to simulate
// TTL expiry without waiting on real timers.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// Get returns the cached value for key, or ok=false if the key is absent
// or its entry has expired. Expired entries are evicted on read.
func (c *Cache) Get(key string) (json.RawMessage, bool) {
	now := c.now()

	if entry, ok := c.memory.Get(key); ok {
		if !entry.ExpiredAt(now) {
			return entry.Value, true
		}
		c.memory.Remove(key)
	}

	if c.store != nil {
		entry, err := c.store.GetEntry(key)
		if err == nil && entry != nil && !entry.ExpiredAt(now) {
			// Promote to the memory tier.
			c.memory.Add(key, entry)
			return entry.Value, true
		}
	}

	return nil, false
}

// Set stores value under key with the given TTL. The absolute expiry is
// computed at write time. A non-positive TTL stores nothing: tasks with
// ttl=0 opt out of caching entirely.
func (c *Cache) Set(key, taskID string, value json.RawMessage, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	now := c.now()
	entry := &Entry{
		Value:     value,
		TaskID:    taskID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	c.memory.Add(key, entry)

	if c.store != nil {
		// Persistence failures must not fail the task run.
		_ = c.store.SetEntry(key, entry)
	}
}

// Clear empties both cache tiers.
func (c *Cache) Clear() {
	c.memory.Purge()
	if c.store != nil {
		_ = c.store.DeleteAll()
	}
}

// Len returns the number of entries currently held in the memory tier,
// including any that have expired but not yet been evicted.
func (c *Cache) Len() int {
	return c.memory.Len()
}

// Purge removes expired entries from both tiers. The daemon calls this
// periodically; correctness does not depend on it because expiry is also
// checked on every read.
func (c *Cache) Purge() {
	now := c.now()

	for _, key := range c.memory.Keys() {
		if entry, ok := c.memory.Peek(key); ok && entry.ExpiredAt(now) {
			c.memory.Remove(key)
		}
	}

	if c.store != nil {
		_, _ = c.store.DeleteExpired(now)
	}
}
