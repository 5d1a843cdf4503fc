package cache

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// Default values
const (
	DefaultMaxEntries      = 10000
	DefaultTTL             = 30 * time.Second
	DefaultCleanupInterval = time.Minute
)

// Config holds cache configuration
type Config struct {
	MaxEntries int
	// DefaultTTL applies to inserts without an explicit TTL
	DefaultTTL time.Duration
	// CleanupInterval enables the background expiry sweep when positive
	CleanupInterval time.Duration
	// EnableLRU evicts the least recently accessed entry when the cache is
	// full. Without it inserts of new keys into a full cache are dropped.
	EnableLRU bool
}

// DefaultConfig returns the configuration used when none is given
func DefaultConfig() Config {
	return Config{
		MaxEntries:      DefaultMaxEntries,
		DefaultTTL:      DefaultTTL,
		CleanupInterval: DefaultCleanupInterval,
		EnableLRU:       true,
	}
}

// entry is a cached response
type entry struct {
	value      json.RawMessage
	insertedAt time.Time
	expiresAt  time.Time

	lastAccessed atomic.Int64 // unix nanoseconds
	hits         atomic.Uint64
}

func (e *entry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// EntryInfo describes a cached entry without its value
type EntryInfo struct {
	InsertedAt   time.Time
	ExpiresAt    time.Time
	LastAccessed time.Time
	Hits         uint64
}

type counters struct {
	hits            atomic.Uint64
	misses          atomic.Uint64
	insertions      atomic.Uint64
	evictions       atomic.Uint64
	expiredRemovals atomic.Uint64
	rejected        atomic.Uint64
}

// Stats is a snapshot of cache counters
type Stats struct {
	Hits            uint64 `json:"hits"`
	Misses          uint64 `json:"misses"`
	Insertions      uint64 `json:"insertions"`
	Evictions       uint64 `json:"evictions"`
	ExpiredRemovals uint64 `json:"expiredRemovals"`
	Rejected        uint64 `json:"rejected"`
	CurrentEntries  int    `json:"currentEntries"`
}

// HitRate returns hits / (hits + misses), 0 when nothing was looked up
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
