package balancer

import (
	"crypto/rand"
	"math/big"
	"sort"
	"sync/atomic"
)

type weightedState struct {
	urls        []string
	prefixSums  []int
	totalWeight int
}

// weightedRandom draws an upstream with probability proportional to its
// configured weight, via a prefix-sum array and a uniform draw over
// [1, totalWeight].
type weightedRandom struct {
	state atomic.Pointer[weightedState]
}

func newWeightedRandom(upstreams []Upstream) *weightedRandom {
	wr := &weightedRandom{}
	wr.state.Store(buildWeightedState(upstreams))
	return wr
}

func buildWeightedState(upstreams []Upstream) *weightedState {
	var urls []string
	var prefixSums []int
	total := 0
	for _, u := range upstreams {
		if u.Weight <= 0 {
			continue
		}
		total += u.Weight
		urls = append(urls, u.URL)
		prefixSums = append(prefixSums, total)
	}
	return &weightedState{urls: urls, prefixSums: prefixSums, totalWeight: total}
}

func (wr *weightedRandom) Select(_ string) (string, bool) {
	s := wr.state.Load()
	if s == nil || len(s.urls) == 0 || s.totalWeight == 0 {
		return "", false
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(s.totalWeight)))
	if err != nil {
		return s.urls[0], true
	}
	draw := int(n.Int64()) + 1 // uniform over [1, totalWeight]

	idx := sort.SearchInts(s.prefixSums, draw)
	if idx >= len(s.urls) {
		idx = len(s.urls) - 1
	}
	return s.urls[idx], true
}

func (wr *weightedRandom) UpdateUpstreams(upstreams []string) {
	ups := make([]Upstream, len(upstreams))
	for i, u := range upstreams {
		ups[i] = Upstream{URL: u, Weight: 1}
	}
	wr.state.Store(buildWeightedState(ups))
}

func (wr *weightedRandom) Upstreams() []string {
	s := wr.state.Load()
	urls := make([]string, len(s.urls))
	copy(urls, s.urls)
	return urls
}
