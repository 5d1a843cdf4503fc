package cache

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// methodTTLs lists cacheable methods. Zero means the cache default TTL.
var methodTTLs = map[string]time.Duration{
	// Immutable once persisted
	"getblock":          time.Hour,
	"getrawtransaction": time.Hour,

	// Changes on contract update
	"getcontractstate": time.Minute,

	// Changes every block
	"getnep17balances": 10 * time.Second,
	"getblockcount":    5 * time.Second,

	// Node information
	"getversion":         0,
	"getpeers":           0,
	"getconnectioncount": 0,
}

// Policy decides which methods are cached and for how long
type Policy struct {
	defaultTTL time.Duration
	ttls       map[string]time.Duration
	disabled   map[string]bool
}

// NewPolicy creates a policy from the built-in table. Overrides change or add
// method TTLs, disabled methods are never cached.
func NewPolicy(defaultTTL time.Duration, overrides map[string]time.Duration, disabled []string) *Policy {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	p := &Policy{
		defaultTTL: defaultTTL,
		ttls:       make(map[string]time.Duration, len(methodTTLs)+len(overrides)),
		disabled:   make(map[string]bool, len(disabled)),
	}
	for m, ttl := range methodTTLs {
		p.ttls[m] = ttl
	}
	for m, ttl := range overrides {
		p.ttls[strings.ToLower(m)] = ttl
	}
	for _, m := range disabled {
		p.disabled[strings.ToLower(m)] = true
	}
	return p
}

// TTL returns the TTL for method and whether the method is cacheable
func (p *Policy) TTL(method string) (time.Duration, bool) {
	method = strings.ToLower(method)
	if p.disabled[method] {
		return 0, false
	}
	ttl, ok := p.ttls[method]
	if !ok {
		return 0, false
	}
	if ttl <= 0 {
		ttl = p.defaultTTL
	}
	return ttl, true
}

// IsCacheable returns true if responses of method may be cached
func (p *Policy) IsCacheable(method string) bool {
	_, ok := p.TTL(method)
	return ok
}

// Fingerprint returns the cache key of a request: the method name followed by
// the JSON encoding of params. Map keys are encoded sorted, so equal params
// give equal keys.
func Fingerprint(method string, params []any) (string, error) {
	if params == nil {
		params = []any{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode params: %w", err)
	}
	return method + string(data), nil
}

// MethodPrefix returns the prefix shared by all fingerprints of method
func MethodPrefix(method string) string {
	return method + "["
}
