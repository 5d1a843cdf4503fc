// Package client composes the transport, pool, cache and circuit breaker into
// a Neo N3 JSON-RPC client with typed method wrappers.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"neorpc/internal/breaker"
	"neorpc/internal/cache"
	"neorpc/internal/config"
	"neorpc/internal/pool"
	"neorpc/internal/result"
	"neorpc/internal/rpcerr"
)

// Option customizes a Client
type Option func(*options)

type options struct {
	dialer     pool.Dialer
	registerer prometheus.Registerer
}

// WithDialer replaces the transport dialer used by the pool
func WithDialer(d pool.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithRegisterer registers the client metrics collector with r
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = r
	}
}

// Client is a Neo N3 JSON-RPC client bound to a single node
type Client struct {
	endpoint string
	pool     *pool.Pool
	breaker  *breaker.Breaker
	cache    *cache.Cache // nil when caching is disabled
	policy   *cache.Policy
	group    *singleflight.Group // nil unless single-flight is enabled
	logger   zerolog.Logger

	// sharedTimeout bounds a coalesced fetch, which outlives its first caller
	sharedTimeout time.Duration

	registerer prometheus.Registerer
	collector  *Collector

	stats counters
	now   func() time.Time
}

type counters struct {
	total        atomic.Uint64
	successful   atomic.Uint64
	failed       atomic.Uint64
	cacheHits    atomic.Uint64
	cacheMisses  atomic.Uint64
	coalesced    atomic.Uint64
	latencyNanos atomic.Int64
	timed        atomic.Uint64
}

// New creates a client from cfg. A nil cfg means config.Default().
// Invalid configuration is reported as an rpcerr.KindConfig error.
func New(cfg *config.Config, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	clientLogger := logger.With().Str("component", "client").Str("endpoint", cfg.Endpoint).Logger()

	p, err := pool.New(cfg.Endpoint, poolConfig(cfg), o.dialer, logger)
	if err != nil {
		return nil, err
	}

	c := &Client{
		endpoint:   cfg.Endpoint,
		pool:       p,
		breaker:    breaker.New(cfg.Endpoint, breakerConfig(cfg), logger),
		logger:     clientLogger,
		registerer: o.registerer,
		now:        time.Now,
	}

	if cfg.IsCacheEnabled() {
		ccfg := cacheConfig(cfg)
		cc, err := cache.New(ccfg, logger)
		if err != nil {
			p.Close()
			return nil, &rpcerr.Error{Kind: rpcerr.KindConfig, Endpoint: cfg.Endpoint, Message: "invalid cache config", Err: err}
		}
		c.cache = cc
		c.policy = cache.NewPolicy(ccfg.DefaultTTL, cfg.Cache.GetMethodTTLDurations(), cfg.Cache.DisabledMethods)
	}
	if cfg.SingleFlight {
		c.group = &singleflight.Group{}
		c.sharedTimeout = sharedTimeout(poolConfig(cfg))
	}

	if o.registerer != nil {
		c.collector = NewCollector(c, cfg.MetricsNamespace)
		if err := o.registerer.Register(c.collector); err != nil {
			c.Close()
			return nil, &rpcerr.Error{Kind: rpcerr.KindConfig, Endpoint: cfg.Endpoint, Message: "failed to register metrics", Err: err}
		}
	}

	p.Start()

	c.logger.Info().
		Bool("cache", c.cache != nil).
		Bool("singleFlight", c.group != nil).
		Int("maxConnections", cfg.Pool.MaxConnections).
		Msg("client created")

	return c, nil
}

func poolConfig(cfg *config.Config) pool.Config {
	return pool.Config{
		MaxConnections:      cfg.Pool.MaxConnections,
		MinIdle:             cfg.Pool.MinIdle,
		MaxIdleTime:         cfg.Pool.GetMaxIdleTimeDuration(),
		ConnectionTimeout:   cfg.Pool.GetConnectionTimeoutDuration(),
		RequestTimeout:      cfg.Pool.GetRequestTimeoutDuration(),
		MaxRetries:          cfg.Pool.GetMaxRetries(),
		RetryDelay:          cfg.Pool.GetRetryDelayDuration(),
		HealthCheckInterval: cfg.Pool.GetHealthCheckIntervalDuration(),
		HealthCheckMethod:   cfg.Pool.HealthCheckMethod,
	}
}

// sharedTimeout is the longest a pool run with every retry can take
func sharedTimeout(pc pool.Config) time.Duration {
	attempts := time.Duration(pc.MaxRetries + 1)
	return attempts*pc.RequestTimeout + attempts*attempts*pc.RetryDelay
}

func breakerConfig(cfg *config.Config) breaker.Config {
	b := cfg.CircuitBreaker
	return breaker.Config{
		FailureThreshold:    b.FailureThreshold,
		Timeout:             b.GetTimeoutDuration(),
		SuccessThreshold:    b.SuccessThreshold,
		FailureWindow:       b.GetFailureWindowDuration(),
		HalfOpenMaxRequests: b.HalfOpenMaxRequests,
	}
}

func cacheConfig(cfg *config.Config) cache.Config {
	return cache.Config{
		MaxEntries:      cfg.Cache.MaxEntries,
		DefaultTTL:      cfg.Cache.GetDefaultTTLDuration(),
		CleanupInterval: cfg.Cache.GetCleanupIntervalDuration(),
		EnableLRU:       cfg.Cache.IsLRUEnabled(),
	}
}

// Endpoint returns the node URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Call sends a JSON-RPC request and returns the raw result.
// Cacheable methods are answered from the cache when possible.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	c.stats.total.Add(1)
	if params == nil {
		params = []any{}
	}

	key, ttl, cacheable := c.cacheKey(method, params)
	if cacheable {
		if v, ok := c.cache.Get(key); ok {
			c.stats.cacheHits.Add(1)
			c.stats.successful.Add(1)
			c.logger.Debug().Str("method", method).Msg("cache hit")
			return append(json.RawMessage(nil), v...), nil
		}
		c.stats.cacheMisses.Add(1)
	}

	start := c.now()
	var (
		res json.RawMessage
		err error
	)
	if cacheable && c.group != nil {
		res, err = c.fetchShared(ctx, key, method, params)
	} else {
		res, err = c.fetch(ctx, method, params)
	}
	c.observe(start)

	if err != nil {
		c.stats.failed.Add(1)
		err = c.annotate(method, err)
		c.logger.Debug().Err(err).Str("method", method).Msg("request failed")
		return nil, err
	}
	c.stats.successful.Add(1)

	if cacheable {
		c.cache.InsertWithTTL(key, res, ttl)
	}
	return res, nil
}

// cacheKey returns the fingerprint and TTL of a cacheable request
func (c *Client) cacheKey(method string, params []any) (string, time.Duration, bool) {
	if c.cache == nil {
		return "", 0, false
	}
	ttl, ok := c.policy.TTL(method)
	if !ok {
		return "", 0, false
	}
	key, err := cache.Fingerprint(method, params)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Msg("request is not cacheable")
		return "", 0, false
	}
	return key, ttl, true
}

// fetch runs one request through the breaker and the pool
func (c *Client) fetch(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	return breaker.Do(ctx, c.breaker, func(ctx context.Context) (json.RawMessage, error) {
		return pool.Run(ctx, c.pool, func(ctx context.Context, conn *pool.Conn) (json.RawMessage, error) {
			return conn.Fetch(ctx, method, params)
		})
	})
}

// fetchShared coalesces concurrent identical requests into one fetch. The
// fetch keeps the first caller's values but not its cancellation and is
// bounded by sharedTimeout. Every caller stops waiting when its own context ends.
func (c *Client) fetchShared(ctx context.Context, key, method string, params []any) (json.RawMessage, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.sharedTimeout)
		defer cancel()
		return c.fetch(fctx, method, params)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		res, _ := r.Val.(json.RawMessage)
		if r.Shared {
			c.stats.coalesced.Add(1)
			res = append(json.RawMessage(nil), res...)
		}
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) observe(start time.Time) {
	c.stats.latencyNanos.Add(int64(c.now().Sub(start)))
	c.stats.timed.Add(1)
}

// annotate attaches method and endpoint to classified errors. Context errors
// are returned unchanged.
func (c *Client) annotate(method string, err error) error {
	var e *rpcerr.Error
	if errors.As(err, &e) {
		return e.WithRequest(method, c.endpoint)
	}
	return err
}

// InvalidateCache drops cached results of method, or every result if method is empty.
// It returns the number of dropped entries.
func (c *Client) InvalidateCache(method string) int {
	if c.cache == nil {
		return 0
	}
	if method == "" {
		n := c.cache.Len()
		c.cache.Flush()
		return n
	}
	return c.cache.InvalidatePrefix(cache.MethodPrefix(method))
}

// FlushCache drops every cached result
func (c *Client) FlushCache() {
	if c.cache != nil {
		c.cache.Flush()
	}
}

// CircuitState returns the current breaker state
func (c *Client) CircuitState() breaker.State {
	return c.breaker.State()
}

// OnCircuitStateChange sets a hook called after every breaker transition
func (c *Client) OnCircuitStateChange(fn breaker.StateChangeFunc) {
	c.breaker.OnStateChange(fn)
}

// Health is the result of a health check
type Health struct {
	Healthy      bool          `json:"healthy"`
	CircuitState breaker.State `json:"circuitState"`
	Latency      time.Duration `json:"latency"`
	UserAgent    string        `json:"userAgent,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// HealthCheck calls getversion through the breaker and the pool, bypassing the cache
func (c *Client) HealthCheck(ctx context.Context) Health {
	start := c.now()
	raw, err := c.fetch(ctx, "getversion", []any{})
	h := Health{Latency: c.now().Sub(start)}

	if err == nil {
		var v result.Version
		if uerr := json.Unmarshal(raw, &v); uerr != nil {
			err = &rpcerr.Error{Kind: rpcerr.KindSerialization, Message: "failed to decode getversion result", Err: uerr}
		} else {
			h.UserAgent = v.UserAgent
		}
	}
	h.CircuitState = c.breaker.State()
	if err != nil {
		h.Error = c.annotate("getversion", err).Error()
		c.logger.Warn().Err(err).Str("circuit", h.CircuitState.String()).Msg("health check failed")
		return h
	}
	h.Healthy = true
	return h
}

// Stats is a snapshot of client, pool, cache and breaker statistics
type Stats struct {
	TotalRequests uint64        `json:"totalRequests"`
	Successful    uint64        `json:"successful"`
	Failed        uint64        `json:"failed"`
	CacheHits     uint64        `json:"cacheHits"`
	CacheMisses   uint64        `json:"cacheMisses"`
	Coalesced     uint64        `json:"coalesced"`
	AvgLatency    time.Duration `json:"avgLatency"`
	Pool          pool.Stats    `json:"pool"`
	Cache         *cache.Stats  `json:"cache,omitempty"`
	Breaker       breaker.Stats `json:"breaker"`
}

// Stats returns current statistics
func (c *Client) Stats() Stats {
	s := Stats{
		TotalRequests: c.stats.total.Load(),
		Successful:    c.stats.successful.Load(),
		Failed:        c.stats.failed.Load(),
		CacheHits:     c.stats.cacheHits.Load(),
		CacheMisses:   c.stats.cacheMisses.Load(),
		Coalesced:     c.stats.coalesced.Load(),
		Pool:          c.pool.Stats(),
		Breaker:       c.breaker.Stats(),
	}
	if n := c.stats.timed.Load(); n > 0 {
		s.AvgLatency = time.Duration(c.stats.latencyNanos.Load() / int64(n))
	}
	if c.cache != nil {
		cs := c.cache.Stats()
		s.Cache = &cs
	}
	return s
}

// Close stops background tasks and releases connections
func (c *Client) Close() {
	if c.collector != nil && c.registerer != nil {
		c.registerer.Unregister(c.collector)
	}
	c.pool.Close()
	if c.cache != nil {
		c.cache.Close()
	}
	c.logger.Info().Msg("client closed")
}
