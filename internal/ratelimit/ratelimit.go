// Package ratelimit implements the gateway's global and per-IP token
// buckets. QPS values below 1 are coerced up to 1, matching the
// original gateway's NonZeroU32 floor.
package ratelimit

import (
	"sync"
	"time"
)

// bucket is a simple token bucket refilled continuously at ratePerSec,
// capped at burst tokens.
type bucket struct {
	mu         sync.Mutex
	ratePerSec float64
	burst      float64
	tokens     float64
	lastRefill time.Time
}

func newBucket(qps int) *bucket {
	if qps < 1 {
		qps = 1
	}
	rate := float64(qps)
	return &bucket{
		ratePerSec: rate,
		burst:      rate,
		tokens:     rate,
		lastRefill: time.Now(),
	}
}

func (b *bucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.lastRefill = now

	b.tokens += elapsed * b.ratePerSec
	if b.tokens > b.burst {
		b.tokens = b.burst
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Limits holds the gateway's two rate-limiting layers: one global
// bucket shared by every request, and one bucket per client IP.
type Limits struct {
	global     *bucket
	clientQPS  int
	perIPMu    sync.Mutex
	perIP      map[string]*bucket
}

// New builds Limits from the configured global and per-client QPS.
func New(globalQPS, clientQPS int) *Limits {
	return &Limits{
		global:    newBucket(globalQPS),
		clientQPS: clientQPS,
		perIP:     make(map[string]*bucket),
	}
}

// AllowGlobal reports whether the shared global bucket has a token to
// spend for this request.
func (l *Limits) AllowGlobal() bool {
	return l.global.allow()
}

// AllowClient reports whether the per-IP bucket for clientIP has a
// token to spend, creating that bucket on first use.
func (l *Limits) AllowClient(clientIP string) bool {
	l.perIPMu.Lock()
	b, ok := l.perIP[clientIP]
	if !ok {
		b = newBucket(l.clientQPS)
		l.perIP[clientIP] = b
	}
	l.perIPMu.Unlock()
	return b.allow()
}

// Exact response bodies for the two rate-limit failure cases, matching
// the original gateway verbatim.
const (
	GlobalLimitBody = "Too Many Requests (global)"
	ClientLimitBody = "Too Many Requests (client)"
)
