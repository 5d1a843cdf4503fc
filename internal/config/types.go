package config

import "time"

// Config represents the client configuration
type Config struct {
	Endpoint         string        `json:"endpoint" yaml:"endpoint"`
	LogLevel         string        `json:"logLevel" yaml:"logLevel"`
	Pool             PoolConfig    `json:"pool" yaml:"pool"`
	Cache            *CacheConfig  `json:"cache,omitempty" yaml:"cache,omitempty"`
	CircuitBreaker   BreakerConfig `json:"circuitBreaker" yaml:"circuitBreaker"`
	SingleFlight     bool          `json:"singleFlight" yaml:"singleFlight"`
	MetricsNamespace string        `json:"metricsNamespace" yaml:"metricsNamespace"`
}

// PoolConfig represents connection pool configuration
type PoolConfig struct {
	MaxConnections      int    `json:"maxConnections" yaml:"maxConnections"`
	MinIdle             int    `json:"minIdle" yaml:"minIdle"`
	MaxIdleTime         int    `json:"maxIdleTime" yaml:"maxIdleTime"`             // ms
	ConnectionTimeout   int    `json:"connectionTimeout" yaml:"connectionTimeout"` // ms - permit wait and dial
	RequestTimeout      int    `json:"requestTimeout" yaml:"requestTimeout"`       // ms
	MaxRetries          *int   `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`
	RetryDelay          int    `json:"retryDelay" yaml:"retryDelay"`                   // ms, multiplied by the retry number
	HealthCheckInterval int    `json:"healthCheckInterval" yaml:"healthCheckInterval"` // ms, negative disables
	HealthCheckMethod   string `json:"healthCheckMethod" yaml:"healthCheckMethod"`
}

// CacheConfig represents response cache configuration
type CacheConfig struct {
	Enabled         bool           `json:"enabled" yaml:"enabled"`
	MaxEntries      int            `json:"maxEntries" yaml:"maxEntries"`
	DefaultTTL      int            `json:"defaultTtl" yaml:"defaultTtl"`           // ms
	CleanupInterval int            `json:"cleanupInterval" yaml:"cleanupInterval"` // ms
	EnableLRU       *bool          `json:"enableLru,omitempty" yaml:"enableLru,omitempty"`
	MethodTTLs      map[string]int `json:"methodTtls,omitempty" yaml:"methodTtls,omitempty"` // ms per method
	DisabledMethods []string       `json:"disabledMethods" yaml:"disabledMethods"`           // methods to exclude from caching
}

// BreakerConfig represents circuit breaker configuration
type BreakerConfig struct {
	FailureThreshold    int  `json:"failureThreshold" yaml:"failureThreshold"`
	Timeout             int  `json:"timeout" yaml:"timeout"` // ms
	SuccessThreshold    int  `json:"successThreshold" yaml:"successThreshold"`
	FailureWindow       *int `json:"failureWindow,omitempty" yaml:"failureWindow,omitempty"` // ms, 0 disables the window
	HalfOpenMaxRequests int  `json:"halfOpenMaxRequests" yaml:"halfOpenMaxRequests"`
}

// Default values
const (
	DefaultEndpoint             = "http://localhost:10332"
	DefaultLogLevel             = "info"
	DefaultMetricsNamespace     = "neorpc"
	DefaultMaxConnections       = 10
	DefaultMinIdle              = 0
	DefaultMaxIdleTime          = 90000 // ms
	DefaultConnectionTimeout    = 10000 // ms
	DefaultRequestTimeout       = 30000 // ms
	DefaultMaxRetries           = 3
	DefaultRetryDelay           = 100   // ms
	DefaultHealthCheckInterval  = 30000 // ms
	DefaultHealthCheckMethod    = "getversion"
	DefaultCacheMaxEntries      = 10000
	DefaultCacheTTL             = 30000 // ms
	DefaultCacheCleanupInterval = 60000 // ms
	DefaultCacheEnableLRU       = true
	DefaultFailureThreshold     = 5
	DefaultBreakerTimeout       = 30000 // ms
	DefaultSuccessThreshold     = 2
	DefaultFailureWindow        = 60000 // ms
	DefaultHalfOpenMaxRequests  = 3
)

// Environment variables that override file values
const (
	EnvEndpoint       = "NEORPC_ENDPOINT"
	EnvLogLevel       = "NEORPC_LOG_LEVEL"
	EnvMaxConnections = "NEORPC_MAX_CONNECTIONS"
	EnvRequestTimeout = "NEORPC_REQUEST_TIMEOUT"
	EnvCacheEnabled   = "NEORPC_CACHE_ENABLED"
)

// GetMaxIdleTimeDuration returns max idle time as time.Duration
func (p *PoolConfig) GetMaxIdleTimeDuration() time.Duration {
	return time.Duration(p.MaxIdleTime) * time.Millisecond
}

// GetConnectionTimeoutDuration returns connection timeout as time.Duration
func (p *PoolConfig) GetConnectionTimeoutDuration() time.Duration {
	return time.Duration(p.ConnectionTimeout) * time.Millisecond
}

// GetRequestTimeoutDuration returns request timeout as time.Duration
func (p *PoolConfig) GetRequestTimeoutDuration() time.Duration {
	return time.Duration(p.RequestTimeout) * time.Millisecond
}

// GetRetryDelayDuration returns retry delay as time.Duration
func (p *PoolConfig) GetRetryDelayDuration() time.Duration {
	return time.Duration(p.RetryDelay) * time.Millisecond
}

// GetHealthCheckIntervalDuration returns health check interval as time.Duration, 0 when disabled
func (p *PoolConfig) GetHealthCheckIntervalDuration() time.Duration {
	if p.HealthCheckInterval < 0 {
		return 0
	}
	return time.Duration(p.HealthCheckInterval) * time.Millisecond
}

// GetMaxRetries returns the configured number of retries
func (p *PoolConfig) GetMaxRetries() int {
	if p.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *p.MaxRetries
}

// GetDefaultTTLDuration returns the default cache TTL as time.Duration
func (c *CacheConfig) GetDefaultTTLDuration() time.Duration {
	return time.Duration(c.DefaultTTL) * time.Millisecond
}

// GetCleanupIntervalDuration returns cleanup interval as time.Duration
func (c *CacheConfig) GetCleanupIntervalDuration() time.Duration {
	return time.Duration(c.CleanupInterval) * time.Millisecond
}

// IsLRUEnabled returns true if LRU eviction is enabled
func (c *CacheConfig) IsLRUEnabled() bool {
	if c.EnableLRU == nil {
		return DefaultCacheEnableLRU
	}
	return *c.EnableLRU
}

// GetMethodTTLDurations returns per-method TTL overrides as time.Duration
func (c *CacheConfig) GetMethodTTLDurations() map[string]time.Duration {
	if len(c.MethodTTLs) == 0 {
		return nil
	}
	out := make(map[string]time.Duration, len(c.MethodTTLs))
	for m, ttl := range c.MethodTTLs {
		out[m] = time.Duration(ttl) * time.Millisecond
	}
	return out
}

// GetTimeoutDuration returns the open state duration as time.Duration
func (b *BreakerConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(b.Timeout) * time.Millisecond
}

// GetFailureWindowDuration returns the failure window as time.Duration
func (b *BreakerConfig) GetFailureWindowDuration() time.Duration {
	if b.FailureWindow == nil {
		return DefaultFailureWindow * time.Millisecond
	}
	return time.Duration(*b.FailureWindow) * time.Millisecond
}

// IsCacheEnabled returns true if cache is configured and enabled
func (c *Config) IsCacheEnabled() bool {
	return c.Cache != nil && c.Cache.Enabled
}
