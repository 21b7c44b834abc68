package balancer

import (
	"sync/atomic"
)

// roundRobin cycles through its upstream list with an atomic counter.
type roundRobin struct {
	upstreams atomic.Pointer[[]string]
	counter   atomic.Uint64
}

func newRoundRobin(upstreams []string) *roundRobin {
	rr := &roundRobin{}
	ups := append([]string(nil), upstreams...)
	rr.upstreams.Store(&ups)
	return rr
}

func (rr *roundRobin) Select(_ string) (string, bool) {
	ups := *rr.upstreams.Load()
	if len(ups) == 0 {
		return "", false
	}
	idx := (rr.counter.Add(1) - 1) % uint64(len(ups))
	return ups[idx], true
}

func (rr *roundRobin) UpdateUpstreams(upstreams []string) {
	ups := append([]string(nil), upstreams...)
	rr.upstreams.Store(&ups)
}

func (rr *roundRobin) Upstreams() []string {
	return append([]string(nil), (*rr.upstreams.Load())...)
}
