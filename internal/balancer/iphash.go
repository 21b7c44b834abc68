package balancer

import (
	"fmt"
	"net"
	"sort"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

const virtualNodesPerUpstream = 150

type hashRingEntry struct {
	hash     uint64
	upstream string
}

type hashRing struct {
	entries []hashRingEntry // sorted by hash
	urls    []string
}

// ipHash implements consistent hashing over the upstream set so that
// repeated requests from the same client IP land on the same upstream,
// using a 150-virtual-node ring per upstream.
type ipHash struct {
	ring atomic.Pointer[hashRing]
}

func newIPHash(upstreams []string) *ipHash {
	h := &ipHash{}
	h.ring.Store(buildHashRing(upstreams))
	return h
}

func buildHashRing(upstreams []string) *hashRing {
	entries := make([]hashRingEntry, 0, len(upstreams)*virtualNodesPerUpstream)
	for _, u := range upstreams {
		for i := 0; i < virtualNodesPerUpstream; i++ {
			key := fmt.Sprintf("%s#%d", u, i)
			entries = append(entries, hashRingEntry{hash: xxhash.Sum64String(key), upstream: u})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].hash < entries[j].hash })
	return &hashRing{entries: entries, urls: append([]string(nil), upstreams...)}
}

// Select picks the upstream owning the first ring position at or after
// hash(clientIP), wrapping around to the first entry if clientIP's hash
// is past the last one. An empty clientIP defaults to "127.0.0.1",
// matching the original gateway's behavior when no peer address is known.
func (h *ipHash) Select(clientIP string) (string, bool) {
	ring := h.ring.Load()
	if ring == nil || len(ring.entries) == 0 {
		return "", false
	}
	if clientIP == "" {
		clientIP = "127.0.0.1"
	}
	hash := hashClientIP(clientIP)

	idx := sort.Search(len(ring.entries), func(i int) bool { return ring.entries[i].hash >= hash })
	if idx == len(ring.entries) {
		idx = 0
	}
	return ring.entries[idx].upstream, true
}

func hashClientIP(clientIP string) uint64 {
	if ip := net.ParseIP(clientIP); ip != nil {
		return xxhash.Sum64(ip)
	}
	return xxhash.Sum64String(clientIP)
}

func (h *ipHash) UpdateUpstreams(upstreams []string) {
	h.ring.Store(buildHashRing(upstreams))
}

func (h *ipHash) Upstreams() []string {
	return append([]string(nil), h.ring.Load().urls...)
}
