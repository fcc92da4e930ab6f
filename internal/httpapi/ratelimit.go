package httpapi

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// minIdleTTL is the shortest time an unused bucket is kept.
const minIdleTTL = 10 * time.Minute

// participantLimiter keeps one token bucket per participant key and forgets
// buckets that have been idle for longer than ttl.
type participantLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
	visitors  map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newParticipantLimiter(limit rate.Limit, burst int) *participantLimiter {
	if burst <= 0 {
		burst = 1
	}
	p := &participantLimiter{
		limit:    limit,
		burst:    burst,
		ttl:      minIdleTTL,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
	// ttl covers a full refill, so an evicted bucket was already full.
	if limit > 0 && limit != rate.Inf {
		refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second))
		if refill > p.ttl {
			p.ttl = refill
		}
	}
	p.lastSweep = p.now()
	return p
}

// Allow reports whether key may submit now. Always true when limiting is
// disabled.
func (p *participantLimiter) Allow(key string) bool {
	if p.limit == 0 {
		return true
	}

	p.mu.Lock()
	now := p.now()
	if now.Sub(p.lastSweep) >= p.ttl {
		p.sweep(now)
	}
	v, ok := p.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.visitors[key] = v
	}
	v.lastSeen = now
	p.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// sweep drops buckets idle for at least ttl. Caller holds mu.
func (p *participantLimiter) sweep(now time.Time) {
	for key, v := range p.visitors {
		if now.Sub(v.lastSeen) >= p.ttl {
			delete(p.visitors, key)
		}
	}
	p.lastSweep = now
}

