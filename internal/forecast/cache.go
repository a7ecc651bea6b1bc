package forecast

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sunsetscout/sunsetscout/internal/grid"
)

// DefaultCacheTTL is half of the provider's ~6 hour refresh cycle.
const DefaultCacheTTL = 3 * time.Hour

// CacheConfig holds configuration for the forecast cache.
type CacheConfig struct {
	// TTL is how long an entry is served before it is treated as absent (default: 3 hours).
	TTL time.Duration

	// Clock returns the current time (default: time.Now).
	Clock func() time.Time

	// Logger for cache operations.
	Logger zerolog.Logger
}

// Entry is a cached forecast payload.
type Entry struct {
	FetchedAt time.Time
	Payload   *Payload
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Entries int
	Hits    int64
	Misses  int64
}

// Cache is an in-memory forecast store keyed by grid cell. Entries expire
// lazily on read; there is no background sweeper.
type Cache struct {
	ttl    time.Duration
	clock  func() time.Time
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[grid.Cell]Entry
	hits    int64
	misses  int64
}

// NewCache creates a new forecast cache.
func NewCache(cfg CacheConfig) *Cache {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Cache{
		ttl:     ttl,
		clock:   clock,
		logger:  cfg.Logger,
		entries: make(map[grid.Cell]Entry),
	}
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached payload for the cell containing coord.
// An entry older than the TTL is evicted and reported as a miss.
func (c *Cache) Get(coord grid.Coordinate) (*Payload, bool) {
	cell := grid.CellFor(coord)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[cell]
	if !ok {
		c.misses++
		return nil, false
	}

	if c.clock().Sub(entry.FetchedAt) > c.ttl {
		delete(c.entries, cell)
		c.misses++
		c.logger.Debug().
			Str("cell", cell.String()).
			Time("fetched_at", entry.FetchedAt).
			Msg("evicted expired forecast")
		return nil, false
	}

	c.hits++
	return entry.Payload, true
}

// peek returns a fresh entry for cell without touching the counters.
func (c *Cache) peek(cell grid.Cell) (*Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[cell]
	if !ok || c.clock().Sub(entry.FetchedAt) > c.ttl {
		return nil, false
	}
	return entry.Payload, true
}

// Put stores a payload under the cell it belongs to, replacing any existing
// entry. Payloads without a resolvable location are not cached.
func (c *Cache) Put(p *Payload) {
	if p == nil {
		return
	}

	cell, ok := p.Cell()
	if !ok {
		c.logger.Debug().Msg("forecast payload has no location, not caching")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cell] = Entry{
		FetchedAt: c.clock(),
		Payload:   p,
	}
}

// ResetStats zeroes the hit and miss counters without touching entries.
func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits = 0
	c.misses = 0
}

// Clear drops all entries and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[grid.Cell]Entry)
	c.hits = 0
	c.misses = 0
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
}
