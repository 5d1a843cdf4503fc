package client

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports client statistics as Prometheus metrics. Values are read
// from Stats on every scrape.
type Collector struct {
	client *Client

	requests       *prometheus.Desc
	failures       *prometheus.Desc
	cacheHits      *prometheus.Desc
	cacheMisses    *prometheus.Desc
	coalesced      *prometheus.Desc
	avgLatency     *prometheus.Desc
	poolCreated    *prometheus.Desc
	poolRetries    *prometheus.Desc
	poolDiscarded  *prometheus.Desc
	poolIdle       *prometheus.Desc
	poolActive     *prometheus.Desc
	cacheEntries   *prometheus.Desc
	cacheEvictions *prometheus.Desc
	breakerState   *prometheus.Desc
	breakerReject  *prometheus.Desc
	breakerChanges *prometheus.Desc
}

// NewCollector creates a collector for c. Metric names are prefixed with namespace.
func NewCollector(c *Client, namespace string) *Collector {
	labels := prometheus.Labels{"endpoint": c.endpoint}
	desc := func(subsystem, name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, labels)
	}
	return &Collector{
		client:         c,
		requests:       desc("", "requests_total", "Total number of RPC calls"),
		failures:       desc("", "request_failures_total", "Total number of failed RPC calls"),
		cacheHits:      desc("cache", "hits_total", "Total number of calls answered from the cache"),
		cacheMisses:    desc("cache", "misses_total", "Total number of cacheable calls sent to the node"),
		coalesced:      desc("", "coalesced_total", "Total number of calls that shared an in-flight request"),
		avgLatency:     desc("", "request_latency_avg_seconds", "Average latency of calls sent to the node"),
		poolCreated:    desc("pool", "connections_created_total", "Total number of connections created"),
		poolRetries:    desc("pool", "retries_total", "Total number of retries after connection failures"),
		poolDiscarded:  desc("pool", "connections_discarded_total", "Total number of connections dropped"),
		poolIdle:       desc("pool", "idle_connections", "Number of idle connections"),
		poolActive:     desc("pool", "active_requests", "Number of requests holding a pool permit"),
		cacheEntries:   desc("cache", "entries", "Number of cached results"),
		cacheEvictions: desc("cache", "evictions_total", "Total number of LRU evictions"),
		breakerState:   desc("circuit_breaker", "state", "Circuit state (0=closed, 1=open, 2=half-open)"),
		breakerReject:  desc("circuit_breaker", "rejected_total", "Total number of calls rejected by the open circuit"),
		breakerChanges: desc("circuit_breaker", "transitions_total", "Total number of circuit state transitions"),
	}
}

// Describe implements prometheus.Collector
func (col *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		col.requests, col.failures, col.cacheHits, col.cacheMisses, col.coalesced, col.avgLatency,
		col.poolCreated, col.poolRetries, col.poolDiscarded, col.poolIdle, col.poolActive,
		col.cacheEntries, col.cacheEvictions,
		col.breakerState, col.breakerReject, col.breakerChanges,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector
func (col *Collector) Collect(ch chan<- prometheus.Metric) {
	s := col.client.Stats()

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}

	counter(col.requests, s.TotalRequests)
	counter(col.failures, s.Failed)
	counter(col.cacheHits, s.CacheHits)
	counter(col.cacheMisses, s.CacheMisses)
	counter(col.coalesced, s.Coalesced)
	gauge(col.avgLatency, s.AvgLatency.Seconds())

	counter(col.poolCreated, s.Pool.Created)
	counter(col.poolRetries, s.Pool.Retried)
	counter(col.poolDiscarded, s.Pool.Discarded)
	gauge(col.poolIdle, float64(s.Pool.Idle))
	gauge(col.poolActive, float64(s.Pool.Active))

	entries := 0
	var evictions uint64
	if s.Cache != nil {
		entries = s.Cache.CurrentEntries
		evictions = s.Cache.Evictions
	}
	gauge(col.cacheEntries, float64(entries))
	counter(col.cacheEvictions, evictions)

	gauge(col.breakerState, float64(s.Breaker.State))
	counter(col.breakerReject, s.Breaker.Rejected)
	counter(col.breakerChanges, s.Breaker.StateTransitions)
}
