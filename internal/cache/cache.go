// Package cache holds recently resolved spike definitions.
//
// Entries expire after a fixed time-to-live and, when the cache is full,
// the entry inserted earliest is evicted first. This is insertion-order
// eviction, not LRU: a hit does not refresh an entry's timestamp.
package cache

import (
	"sync"
	"time"

	"github.com/HendryAvila/spikeforge/internal/catalog"
)

const (
	// DefaultCapacity is the number of definitions kept per engine.
	DefaultCapacity = 256
	// DefaultTTL is how long a definition stays valid after insertion.
	DefaultTTL = 10 * time.Minute
)

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time

// Entry is a cached definition with its insertion time.
type Entry struct {
	Definition *catalog.Definition
	InsertedAt time.Time
	seq        uint64
}

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Evictions   uint64  `json:"evictions"`
	Expirations uint64  `json:"expirations"`
	Size        int     `json:"size"`
	Capacity    int     `json:"capacity"`
	HitRatio    float64 `json:"hit_ratio"`
}

// Cache is a bounded, time-expiring store of definitions keyed by id.
// It is best-effort: a miss is never an error.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	capacity int
	ttl      time.Duration
	now      Clock
	seq      uint64
	stats    Stats
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now as the cache's time source.
func WithClock(now Clock) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache. Non-positive capacity or ttl fall back to the defaults.
func New(capacity int, ttl time.Duration, opts ...Option) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries:  make(map[string]*Entry, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the definition cached under id. Entries older than the TTL
// are removed and reported as absent.
func (c *Cache) Get(id string) (*catalog.Definition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if c.expired(e) {
		delete(c.entries, id)
		c.stats.Expirations++
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return e.Definition, true
}

// Peek is Get without touching the counters or removing expired entries.
// Ranking uses it so a catalog scan does not flood the miss count.
func (c *Cache) Peek(id string) (*catalog.Definition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok || c.expired(e) {
		return nil, false
	}
	return e.Definition, true
}

// Put stores def under id, evicting the oldest insertion when full.
func (c *Cache) Put(id string, def *catalog.Definition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[id]; !exists && len(c.entries) >= c.capacity {
		c.evictLocked()
	}
	c.seq++
	c.entries[id] = &Entry{Definition: def, InsertedAt: c.now(), seq: c.seq}
}

// Delete drops id from the cache if present.
func (c *Cache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Purge drops every entry. Counters are kept.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry, c.capacity)
}

// Len returns the number of entries, including ones that have expired but
// not yet been observed.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.entries)
	s.Capacity = c.capacity
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRatio = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *Cache) expired(e *Entry) bool {
	return c.now().Sub(e.InsertedAt) > c.ttl
}

// evictLocked removes expired entries if there are any, otherwise the
// single entry with the earliest insertion. Caller holds mu.
func (c *Cache) evictLocked() {
	var (
		oldestID string
		oldest   *Entry
		dropped  bool
	)
	for id, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, id)
			c.stats.Expirations++
			dropped = true
			continue
		}
		if oldest == nil || e.seq < oldest.seq {
			oldestID, oldest = id, e
		}
	}
	if dropped || oldest == nil {
		return
	}
	delete(c.entries, oldestID)
	c.stats.Evictions++
}
