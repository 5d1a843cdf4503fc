package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and parses the configuration file.
// Files with a .yaml or .yml extension are parsed as YAML, everything else as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return finish(cfg)
}

// FromEnv returns the default configuration with environment overrides applied
func FromEnv() (*Config, error) {
	return finish(Default())
}

// Default returns a configuration with every field set to its default value
func Default() *Config {
	cfg := &Config{
		Cache: &CacheConfig{Enabled: true},
	}
	applyDefaults(cfg)
	return cfg
}

func finish(cfg *Config) (*Config, error) {
	applyDefaults(cfg)

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.MetricsNamespace == "" {
		cfg.MetricsNamespace = DefaultMetricsNamespace
	}

	p := &cfg.Pool
	if p.MaxConnections == 0 {
		p.MaxConnections = DefaultMaxConnections
	}
	if p.MaxIdleTime == 0 {
		p.MaxIdleTime = DefaultMaxIdleTime
	}
	if p.ConnectionTimeout == 0 {
		p.ConnectionTimeout = DefaultConnectionTimeout
	}
	if p.RequestTimeout == 0 {
		p.RequestTimeout = DefaultRequestTimeout
	}
	if p.MaxRetries == nil {
		retries := DefaultMaxRetries
		p.MaxRetries = &retries
	}
	if p.RetryDelay == 0 {
		p.RetryDelay = DefaultRetryDelay
	}
	if p.HealthCheckInterval == 0 {
		p.HealthCheckInterval = DefaultHealthCheckInterval
	}
	if p.HealthCheckMethod == "" {
		p.HealthCheckMethod = DefaultHealthCheckMethod
	}

	if c := cfg.Cache; c != nil {
		if c.MaxEntries == 0 {
			c.MaxEntries = DefaultCacheMaxEntries
		}
		if c.DefaultTTL == 0 {
			c.DefaultTTL = DefaultCacheTTL
		}
		if c.CleanupInterval == 0 {
			c.CleanupInterval = DefaultCacheCleanupInterval
		}
		if c.EnableLRU == nil {
			lru := DefaultCacheEnableLRU
			c.EnableLRU = &lru
		}
	}

	b := &cfg.CircuitBreaker
	if b.FailureThreshold == 0 {
		b.FailureThreshold = DefaultFailureThreshold
	}
	if b.Timeout == 0 {
		b.Timeout = DefaultBreakerTimeout
	}
	if b.SuccessThreshold == 0 {
		b.SuccessThreshold = DefaultSuccessThreshold
	}
	if b.HalfOpenMaxRequests == 0 {
		b.HalfOpenMaxRequests = DefaultHalfOpenMaxRequests
	}
}

// applyEnv overrides file values with NEORPC_* environment variables
func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvEndpoint); ok && v != "" {
		cfg.Endpoint = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv(EnvMaxConnections); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxConnections, err)
		}
		cfg.Pool.MaxConnections = n
	}
	if v, ok := os.LookupEnv(EnvRequestTimeout); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRequestTimeout, err)
		}
		cfg.Pool.RequestTimeout = n
	}
	if v, ok := os.LookupEnv(EnvCacheEnabled); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheEnabled, err)
		}
		if cfg.Cache == nil {
			if !enabled {
				return nil
			}
			cfg.Cache = &CacheConfig{}
			applyDefaults(cfg)
		}
		cfg.Cache.Enabled = enabled
	}
	return nil
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("endpoint must use http, https, ws or wss scheme, got '%s'", cfg.Endpoint)
	}
	if u.Host == "" {
		return errors.New("endpoint must include a host")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("logLevel must be one of: debug, info, warn, error")
	}

	p := cfg.Pool
	if p.MaxConnections <= 0 {
		return fmt.Errorf("pool.maxConnections must be positive")
	}
	if p.MinIdle < 0 || p.MinIdle > p.MaxConnections {
		return fmt.Errorf("pool.minIdle must be between 0 and pool.maxConnections")
	}
	if p.MaxIdleTime < 0 {
		return fmt.Errorf("pool.maxIdleTime must be non-negative")
	}
	if p.ConnectionTimeout < 0 {
		return fmt.Errorf("pool.connectionTimeout must be non-negative")
	}
	if p.RequestTimeout < 0 {
		return fmt.Errorf("pool.requestTimeout must be non-negative")
	}
	if p.GetMaxRetries() < 0 {
		return fmt.Errorf("pool.maxRetries must be non-negative")
	}
	if p.RetryDelay < 0 {
		return fmt.Errorf("pool.retryDelay must be non-negative")
	}

	if cfg.Cache != nil && cfg.Cache.Enabled {
		if cfg.Cache.DefaultTTL <= 0 {
			return fmt.Errorf("cache.defaultTtl must be positive when cache is enabled")
		}
		if cfg.Cache.MaxEntries <= 0 {
			return fmt.Errorf("cache.maxEntries must be positive when cache is enabled")
		}
		if cfg.Cache.CleanupInterval < 0 {
			return fmt.Errorf("cache.cleanupInterval must be non-negative")
		}
		for method, ttl := range cfg.Cache.MethodTTLs {
			if ttl <= 0 {
				return fmt.Errorf("cache.methodTtls['%s'] must be positive", method)
			}
		}
	}

	b := cfg.CircuitBreaker
	if b.FailureThreshold < 0 || b.SuccessThreshold < 0 || b.HalfOpenMaxRequests < 0 {
		return fmt.Errorf("circuitBreaker thresholds must be non-negative")
	}
	if b.Timeout < 0 || (b.FailureWindow != nil && *b.FailureWindow < 0) {
		return fmt.Errorf("circuitBreaker durations must be non-negative")
	}

	return nil
}
