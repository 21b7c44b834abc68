// Package balancer implements the gateway's load-balancing strategies
// (round_robin, weighted_random, ip_hash) and a registry that hands out
// one balancer instance per (strategy, upstream-set) pair.
package balancer

import (
	"fmt"
	"strings"
	"sync"
)

// Balancer picks an upstream URL for a request, optionally keyed by the
// caller's IP address (used only by ip_hash; ignored elsewhere).
type Balancer interface {
	Select(clientIP string) (string, bool)
	UpdateUpstreams(upstreams []string)
	Upstreams() []string
}

// Upstream pairs a URL with an optional weight (weighted_random only).
type Upstream struct {
	URL    string
	Weight int
}

// New constructs a Balancer for the given strategy and initial upstream
// set. upstreams carries weights for weighted_random and is otherwise
// read via URL only.
func New(strategy string, upstreams []Upstream) (Balancer, error) {
	switch strategy {
	case "", "round_robin":
		return newRoundRobin(urlsOf(upstreams)), nil
	case "weighted_random":
		return newWeightedRandom(upstreams), nil
	case "ip_hash":
		return newIPHash(urlsOf(upstreams)), nil
	default:
		return nil, fmt.Errorf("unknown load balancing strategy %q", strategy)
	}
}

func urlsOf(ups []Upstream) []string {
	urls := make([]string, len(ups))
	for i, u := range ups {
		urls[i] = u.URL
	}
	return urls
}

// Registry hands out a shared Balancer for a given (strategy,
// upstream-set) key, constructing one lazily on first use.
type Registry struct {
	mu    sync.Mutex
	byKey map[string]Balancer
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Balancer)}
}

// Key derives the registry key for a strategy and upstream set, per
// §4.3: the strategy name plus the upstream list joined in config order.
func Key(strategy string, upstreams []string) string {
	if strategy == "" {
		strategy = "round_robin"
	}
	return strategy + ":" + strings.Join(upstreams, ",")
}

// GetOrCreate returns the Balancer registered under key, constructing
// and storing one via New(strategy, upstreams) if absent.
func (r *Registry) GetOrCreate(key, strategy string, upstreams []Upstream) (Balancer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.byKey[key]; ok {
		return b, nil
	}
	b, err := New(strategy, upstreams)
	if err != nil {
		return nil, err
	}
	r.byKey[key] = b
	return b, nil
}

// UpdateUpstreams atomically replaces the upstream set for an existing
// registry entry, leaving other entries untouched.
func (r *Registry) UpdateUpstreams(key string, upstreams []string) bool {
	r.mu.Lock()
	b, ok := r.byKey[key]
	r.mu.Unlock()
	if !ok {
		return false
	}
	b.UpdateUpstreams(upstreams)
	return true
}
