// Package pool bounds concurrency towards one node, reuses sessions with it,
// tracks their health and transparently retries connection-level failures.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"neorpc/internal/rpcerr"
	"neorpc/internal/transport"
)

// Default values
const (
	DefaultMaxConnections    = 10
	DefaultMaxIdleTime       = 90 * time.Second
	DefaultConnectionTimeout = 10 * time.Second
	DefaultRequestTimeout    = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultRetryDelay        = 100 * time.Millisecond
	DefaultHealthCheckMethod = "getversion"
)

// Config holds pool configuration
type Config struct {
	MaxConnections int
	MinIdle        int
	MaxIdleTime    time.Duration
	// ConnectionTimeout bounds the wait for a permit and the dial of a new connection
	ConnectionTimeout time.Duration
	RequestTimeout    time.Duration
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int
	// RetryDelay is multiplied by the retry number
	RetryDelay time.Duration
	// HealthCheckInterval enables the idle sweep when positive
	HealthCheckInterval time.Duration
	HealthCheckMethod   string
}

func (c *Config) applyDefaults() {
	if c.MaxConnections == 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.MaxIdleTime == 0 {
		c.MaxIdleTime = DefaultMaxIdleTime
	}
	if c.ConnectionTimeout == 0 {
		c.ConnectionTimeout = DefaultConnectionTimeout
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.HealthCheckMethod == "" {
		c.HealthCheckMethod = DefaultHealthCheckMethod
	}
}

func (c *Config) validate() error {
	switch {
	case c.MaxConnections < 1:
		return errors.New("maxConnections must be positive")
	case c.MinIdle < 0 || c.MinIdle > c.MaxConnections:
		return errors.New("minIdle must be between 0 and maxConnections")
	case c.MaxRetries < 0:
		return errors.New("maxRetries must be non-negative")
	case c.RetryDelay < 0 || c.RequestTimeout < 0 || c.ConnectionTimeout < 0 || c.MaxIdleTime < 0:
		return errors.New("durations must be non-negative")
	}
	return nil
}

// Dialer establishes a new session with the node
type Dialer func(ctx context.Context) (transport.Fetcher, error)

// Operation runs on a checked-out connection
type Operation func(ctx context.Context, conn *Conn) error

// Pool is a bounded pool of connections to a single endpoint
type Pool struct {
	endpoint string
	cfg      Config
	dial     Dialer
	sem      *semaphore.Weighted
	logger   zerolog.Logger

	mu     sync.Mutex
	idle   []*Conn
	closed bool

	nextID atomic.Uint64
	stats  counters
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a pool for endpoint. A nil dial uses transport.New.
func New(endpoint string, cfg Config, dial Dialer, logger zerolog.Logger) (*Pool, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, &rpcerr.Error{Kind: rpcerr.KindConfig, Endpoint: endpoint, Message: "invalid pool config", Err: err}
	}

	poolLogger := logger.With().Str("component", "pool").Str("endpoint", endpoint).Logger()
	if dial == nil {
		if _, err := transport.ParseEndpoint(endpoint); err != nil {
			return nil, err
		}
		opts := transport.Options{
			ConnectTimeout: cfg.ConnectionTimeout,
			RequestTimeout: cfg.RequestTimeout,
			Logger:         poolLogger,
		}
		dial = func(ctx context.Context) (transport.Fetcher, error) {
			return transport.New(ctx, endpoint, opts)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		endpoint: endpoint,
		cfg:      cfg,
		dial:     dial,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConnections)),
		logger:   poolLogger,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Endpoint returns the node URL
func (p *Pool) Endpoint() string {
	return p.endpoint
}

// Start starts the health sweep when it is configured
func (p *Pool) Start() {
	if p.cfg.HealthCheckInterval > 0 {
		p.wg.Add(1)
		go p.healthLoop()
	}
	p.logger.Info().
		Int("maxConnections", p.cfg.MaxConnections).
		Int("minIdle", p.cfg.MinIdle).
		Dur("healthCheckInterval", p.cfg.HealthCheckInterval).
		Msg("pool started")
}

// Close stops the pool and closes idle connections. Connections still checked
// out are closed when they come back; waiting callers fail with PoolShutdown.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	for _, c := range idle {
		p.discard(c)
	}
	p.logger.Info().Msg("pool stopped")
}

// Execute runs op on a pooled connection. Connection-level failures are
// retried on fresh connections, application-level failures are returned as is.
func (p *Pool) Execute(ctx context.Context, op Operation) error {
	p.stats.totalRequests.Add(1)
	if p.isClosed() {
		p.stats.failed.Add(1)
		return p.shutdownErr()
	}

	if err := p.acquire(ctx); err != nil {
		p.stats.failed.Add(1)
		return err
	}
	defer p.sem.Release(1)
	p.stats.active.Add(1)
	defer p.stats.active.Add(-1)

	retries := 0
	for {
		conn, err := p.checkout(ctx)
		if err == nil {
			err = p.run(ctx, conn, op)
			switch {
			case err == nil:
				conn.touch(p.now())
				p.checkin(conn)
				p.stats.successful.Add(1)
				return nil
			case ctx.Err() != nil:
				// The caller is gone, the request may still be in flight on
				// this connection.
				p.discard(conn)
				p.stats.failed.Add(1)
				return err
			case rpcerr.IsConnectionFailure(err):
				conn.markUnhealthy()
				p.discard(conn)
			default:
				conn.touch(p.now())
				p.checkin(conn)
				p.stats.failed.Add(1)
				return err
			}
		} else if ctx.Err() != nil || !rpcerr.IsConnectionFailure(err) {
			p.stats.failed.Add(1)
			return err
		}

		if retries >= p.cfg.MaxRetries {
			p.stats.failed.Add(1)
			return err
		}
		retries++
		p.stats.retried.Add(1)
		p.logger.Warn().
			Err(err).
			Int("retry", retries).
			Int("maxRetries", p.cfg.MaxRetries).
			Msg("connection failed, retrying")

		if err := p.backoff(ctx, retries); err != nil {
			p.stats.failed.Add(1)
			return err
		}
	}
}

// Run executes op through p and returns its value
func Run[T any](ctx context.Context, p *Pool, op func(ctx context.Context, conn *Conn) (T, error)) (T, error) {
	var out T
	err := p.Execute(ctx, func(ctx context.Context, conn *Conn) error {
		v, err := op(ctx, conn)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// acquire waits for a permit, bounded by ConnectionTimeout and pool shutdown
func (p *Pool) acquire(ctx context.Context) error {
	actx, cancel := context.WithTimeout(ctx, p.cfg.ConnectionTimeout)
	defer cancel()
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()

	if err := p.sem.Acquire(actx, 1); err != nil {
		switch {
		case p.ctx.Err() != nil:
			return p.shutdownErr()
		case errors.Is(ctx.Err(), context.Canceled):
			return ctx.Err()
		case ctx.Err() != nil:
			return &rpcerr.Error{Kind: rpcerr.KindTimeout, Endpoint: p.endpoint,
				Message: "deadline exceeded while waiting for a connection", Err: ctx.Err()}
		default:
			return &rpcerr.Error{Kind: rpcerr.KindPoolExhausted, Endpoint: p.endpoint,
				Message: fmt.Sprintf("no connection available within %s", p.cfg.ConnectionTimeout)}
		}
	}
	if p.isClosed() {
		p.sem.Release(1)
		return p.shutdownErr()
	}
	return nil
}

// checkout pops the first reusable idle connection or dials a new one
func (p *Pool) checkout(ctx context.Context) (*Conn, error) {
	now := p.now()
	var stale []*Conn

	p.mu.Lock()
	for len(p.idle) > 0 {
		c := p.idle[0]
		p.idle[0] = nil
		p.idle = p.idle[1:]
		if !c.IsHealthy() || c.idleExpired(now, p.cfg.MaxIdleTime) {
			stale = append(stale, c)
			continue
		}
		p.mu.Unlock()
		p.discardAll(stale)
		p.stats.reused.Add(1)
		return c, nil
	}
	p.mu.Unlock()
	p.discardAll(stale)

	return p.dialConn(ctx)
}

func (p *Pool) dialConn(ctx context.Context) (*Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, p.cfg.ConnectionTimeout)
	defer cancel()

	f, err := p.dial(dctx)
	if err != nil {
		var rpcErr *rpcerr.Error
		if errors.As(err, &rpcErr) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &rpcerr.Error{Kind: rpcerr.KindTransport, Endpoint: p.endpoint, Message: "dial failed", Err: err}
	}
	c := newConn(p.nextID.Add(1), f, p.now())
	p.stats.created.Add(1)
	p.logger.Debug().Uint64("conn", c.ID()).Msg("connection created")
	return c, nil
}

// run applies op under RequestTimeout
func (p *Pool) run(ctx context.Context, conn *Conn, op Operation) error {
	conn.uses.Add(1)
	opCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	err := op(opCtx, conn)
	if err != nil && ctx.Err() == nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) &&
		rpcerr.KindOf(err) != rpcerr.KindTimeout {
		return &rpcerr.Error{Kind: rpcerr.KindTimeout, Endpoint: p.endpoint,
			Message: fmt.Sprintf("request timeout %s exceeded", p.cfg.RequestTimeout), Err: err}
	}
	return err
}

// checkin returns a connection to the idle queue
func (p *Pool) checkin(c *Conn) {
	p.mu.Lock()
	if p.closed || len(p.idle) >= p.cfg.MaxConnections {
		p.mu.Unlock()
		p.discard(c)
		return
	}
	p.idle = append(p.idle, c)
	p.mu.Unlock()
}

func (p *Pool) discard(c *Conn) {
	c.close()
	p.stats.discarded.Add(1)
}

func (p *Pool) discardAll(conns []*Conn) {
	for _, c := range conns {
		p.discard(c)
	}
}

func (p *Pool) backoff(ctx context.Context, retry int) error {
	delay := p.cfg.RetryDelay * time.Duration(retry)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.shutdownErr()
	}
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pool) shutdownErr() error {
	return &rpcerr.Error{Kind: rpcerr.KindPoolShutdown, Endpoint: p.endpoint, Message: "pool is shut down"}
}
