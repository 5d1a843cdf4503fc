package pool

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"neorpc/internal/transport"
)

// Conn is a pooled session with the node. It is either idle in the pool or
// checked out by exactly one caller.
type Conn struct {
	id        uint64
	fetcher   transport.Fetcher
	createdAt time.Time

	lastUsed atomic.Int64 // unix nanoseconds
	healthy  atomic.Bool
	uses     atomic.Uint64
}

func newConn(id uint64, f transport.Fetcher, now time.Time) *Conn {
	c := &Conn{
		id:        id,
		fetcher:   f,
		createdAt: now,
	}
	c.lastUsed.Store(now.UnixNano())
	c.healthy.Store(true)
	return c
}

// ID returns the pool-local identifier of the connection
func (c *Conn) ID() uint64 {
	return c.id
}

// Fetch performs one JSON-RPC call on this connection
func (c *Conn) Fetch(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	return c.fetcher.Fetch(ctx, method, params)
}

// Endpoint returns the node URL
func (c *Conn) Endpoint() string {
	return c.fetcher.Endpoint()
}

// CreatedAt returns the time the connection was established
func (c *Conn) CreatedAt() time.Time {
	return c.createdAt
}

// LastUsed returns the time of the last successful operation
func (c *Conn) LastUsed() time.Time {
	return time.Unix(0, c.lastUsed.Load())
}

// IsHealthy returns the health status
func (c *Conn) IsHealthy() bool {
	return c.healthy.Load()
}

// Uses returns how many operations ran on the connection
func (c *Conn) Uses() uint64 {
	return c.uses.Load()
}

func (c *Conn) markUnhealthy() {
	c.healthy.Store(false)
}

func (c *Conn) touch(now time.Time) {
	c.lastUsed.Store(now.UnixNano())
}

func (c *Conn) idleExpired(now time.Time, maxIdle time.Duration) bool {
	return maxIdle > 0 && now.Sub(c.LastUsed()) > maxIdle
}

func (c *Conn) close() {
	_ = c.fetcher.Close()
}
