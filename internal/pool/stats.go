package pool

import "sync/atomic"

type counters struct {
	created       atomic.Uint64
	totalRequests atomic.Uint64
	successful    atomic.Uint64
	failed        atomic.Uint64
	retried       atomic.Uint64
	reused        atomic.Uint64
	discarded     atomic.Uint64
	healthChecks  atomic.Uint64
	active        atomic.Int64
}

// Stats is a snapshot of pool counters
type Stats struct {
	Created       uint64 `json:"created"`
	TotalRequests uint64 `json:"totalRequests"`
	Successful    uint64 `json:"successful"`
	Failed        uint64 `json:"failed"`
	Retried       uint64 `json:"retried"`
	Reused        uint64 `json:"reused"`
	Discarded     uint64 `json:"discarded"`
	HealthChecks  uint64 `json:"healthChecks"`
	Idle          int    `json:"idle"`
	Active        int    `json:"active"`
}

// Stats returns current pool statistics
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	idle := len(p.idle)
	p.mu.Unlock()

	return Stats{
		Created:       p.stats.created.Load(),
		TotalRequests: p.stats.totalRequests.Load(),
		Successful:    p.stats.successful.Load(),
		Failed:        p.stats.failed.Load(),
		Retried:       p.stats.retried.Load(),
		Reused:        p.stats.reused.Load(),
		Discarded:     p.stats.discarded.Load(),
		HealthChecks:  p.stats.healthChecks.Load(),
		Idle:          idle,
		Active:        int(p.stats.active.Load()),
	}
}
