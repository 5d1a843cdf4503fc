package cache

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// Cache is an in-memory response cache with per-entry TTL and optional LRU eviction
type Cache struct {
	cfg     Config
	mu      sync.RWMutex
	entries *lru.Cache[string, *entry]
	stats   counters
	now     func() time.Time
	logger  zerolog.Logger

	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a cache and starts its cleanup goroutine
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	if cfg.MaxEntries <= 0 {
		return nil, errors.New("maxEntries must be positive")
	}
	if cfg.DefaultTTL <= 0 {
		return nil, errors.New("defaultTTL must be positive")
	}

	entries, err := lru.New[string, *entry](cfg.MaxEntries)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		cfg:     cfg,
		entries: entries,
		now:     time.Now,
		logger:  logger.With().Str("component", "cache").Logger(),
		stop:    make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		c.wg.Add(1)
		go c.cleanupLoop()
	}

	return c, nil
}

// Get returns the value for key if it is present and not expired
func (c *Cache) Get(key string) (json.RawMessage, bool) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries.Get(key)
	if ok && !e.expired(now) {
		e.lastAccessed.Store(now.UnixNano())
		e.hits.Add(1)
		c.mu.RUnlock()
		c.stats.hits.Add(1)
		return e.value, true
	}
	c.mu.RUnlock()

	c.stats.misses.Add(1)
	if ok {
		c.mu.Lock()
		if cur, found := c.entries.Peek(key); found && cur == e {
			c.entries.Remove(key)
			c.stats.expiredRemovals.Add(1)
		}
		c.mu.Unlock()
	}
	return nil, false
}

// Insert stores value under key with the default TTL
func (c *Cache) Insert(key string, value json.RawMessage) {
	c.InsertWithTTL(key, value, c.cfg.DefaultTTL)
}

// InsertWithTTL stores value under key. A non-positive ttl means the default TTL.
func (c *Cache) InsertWithTTL(key string, value json.RawMessage, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}
	now := c.now()
	e := &entry{
		value:      append(json.RawMessage(nil), value...),
		insertedAt: now,
		expiresAt:  now.Add(ttl),
	}
	e.lastAccessed.Store(now.UnixNano())

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cfg.EnableLRU && c.entries.Len() >= c.cfg.MaxEntries && !c.entries.Contains(key) {
		c.stats.rejected.Add(1)
		return
	}
	if evicted := c.entries.Add(key, e); evicted {
		c.stats.evictions.Add(1)
	}
	c.stats.insertions.Add(1)
}

// Peek returns entry metadata without touching recency or hit count
func (c *Cache) Peek(key string) (EntryInfo, bool) {
	c.mu.RLock()
	e, ok := c.entries.Peek(key)
	c.mu.RUnlock()
	if !ok {
		return EntryInfo{}, false
	}
	return EntryInfo{
		InsertedAt:   e.insertedAt,
		ExpiresAt:    e.expiresAt,
		LastAccessed: time.Unix(0, e.lastAccessed.Load()),
		Hits:         e.hits.Load(),
	}, true
}

// Invalidate removes key and reports whether it was present
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Remove(key)
}

// InvalidatePrefix removes every key starting with prefix and returns how many were removed
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range c.entries.Keys() {
		if strings.HasPrefix(key, prefix) && c.entries.Remove(key) {
			removed++
		}
	}
	return removed
}

// Flush removes all entries
func (c *Cache) Flush() {
	c.mu.Lock()
	c.entries.Purge()
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones not yet removed included
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Stats returns current cache statistics
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:            c.stats.hits.Load(),
		Misses:          c.stats.misses.Load(),
		Insertions:      c.stats.insertions.Load(),
		Evictions:       c.stats.evictions.Load(),
		ExpiredRemovals: c.stats.expiredRemovals.Load(),
		Rejected:        c.stats.rejected.Load(),
		CurrentEntries:  c.entries.Len(),
	}
}

// Close stops the cleanup goroutine
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.wg.Wait()
	})
}

// cleanupLoop periodically removes expired entries
func (c *Cache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if n := c.removeExpired(); n > 0 {
				c.logger.Debug().Int("removed", n).Int("entries", c.entries.Len()).Msg("expired entries removed")
			}
		}
	}
}

// removeExpired removes all expired entries from the cache
func (c *Cache) removeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, key := range c.entries.Keys() {
		e, ok := c.entries.Peek(key)
		if ok && e.expired(now) {
			c.entries.Remove(key)
			removed++
		}
	}
	c.stats.expiredRemovals.Add(uint64(removed))
	return removed
}
