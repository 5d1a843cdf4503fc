package pool

import (
	"context"
	"time"

	"neorpc/internal/rpcerr"
)

// healthLoop periodically checks idle connections and keeps MinIdle warm
func (p *Pool) healthLoop() {
	defer p.wg.Done()

	p.fillMinIdle()

	ticker := time.NewTicker(p.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

// sweep pings every idle connection and returns only the healthy ones.
// A ping takes a permit so health checks never push the pool past MaxConnections.
func (p *Pool) sweep() {
	p.mu.Lock()
	conns := p.idle
	p.idle = nil
	p.mu.Unlock()

	now := p.now()
	healthy := make([]*Conn, 0, len(conns))
	var evicted int
	for _, c := range conns {
		if !c.IsHealthy() || c.idleExpired(now, p.cfg.MaxIdleTime) {
			p.discard(c)
			evicted++
			continue
		}
		if !p.sem.TryAcquire(1) {
			healthy = append(healthy, c)
			continue
		}
		ok := p.ping(c)
		p.sem.Release(1)
		if !ok {
			c.markUnhealthy()
			p.discard(c)
			evicted++
			continue
		}
		healthy = append(healthy, c)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.discardAll(healthy)
		return
	}
	p.idle = append(healthy, p.idle...)
	var overflow []*Conn
	if len(p.idle) > p.cfg.MaxConnections {
		overflow = append(overflow, p.idle[p.cfg.MaxConnections:]...)
		p.idle = p.idle[:p.cfg.MaxConnections]
	}
	p.mu.Unlock()
	p.discardAll(overflow)

	if evicted > 0 {
		p.logger.Debug().Int("evicted", evicted).Int("healthy", len(healthy)).Msg("health sweep finished")
	}

	p.fillMinIdle()
}

// ping reports whether the connection still answers. An application-level
// error is still an answer.
func (p *Pool) ping(c *Conn) bool {
	p.stats.healthChecks.Add(1)
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.RequestTimeout)
	defer cancel()

	_, err := c.Fetch(ctx, p.cfg.HealthCheckMethod, nil)
	if err == nil || rpcerr.IsApplication(err) {
		return true
	}
	p.logger.Warn().Err(err).Uint64("conn", c.ID()).Msg("health check failed")
	return false
}

// fillMinIdle dials connections until MinIdle are idle
func (p *Pool) fillMinIdle() {
	for {
		p.mu.Lock()
		need := !p.closed && len(p.idle) < p.cfg.MinIdle
		p.mu.Unlock()
		if !need || !p.sem.TryAcquire(1) {
			return
		}

		c, err := p.dialConn(p.ctx)
		p.sem.Release(1)
		if err != nil {
			if p.ctx.Err() == nil {
				p.logger.Warn().Err(err).Msg("failed to warm up connection")
			}
			return
		}
		p.checkin(c)
	}
}
