// Package route holds the gateway's route table: rules matched against
// an inbound path by pattern score, with the highest-scoring rule
// winning and config order breaking ties.
package route

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edgecomet/gateway/internal/pattern"
)

// Rule is one configured routing rule: a set of prefixes/patterns that
// all forward to the same upstream set via the same balancing strategy.
type Rule struct {
	Patterns         []string
	Upstreams        []string
	Weights          []int
	Strategy         string
	WhitelistPattern []string

	compiled []*pattern.Compiled
	score    int
}

// NewRule validates and compiles a Rule's patterns.
func NewRule(patterns, upstreams []string, strategy string, whitelist []string) (*Rule, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("route rule has no patterns")
	}
	if len(upstreams) == 0 {
		return nil, fmt.Errorf("route rule has no upstreams")
	}
	if strategy == "" {
		strategy = "round_robin"
	}
	switch strategy {
	case "round_robin", "weighted_random", "ip_hash":
	default:
		return nil, fmt.Errorf("unknown load balancing strategy %q", strategy)
	}

	bareUpstreams := make([]string, len(upstreams))
	weights := make([]int, len(upstreams))
	for i, u := range upstreams {
		bareUpstreams[i], weights[i] = parseUpstreamWeight(u)
	}

	r := &Rule{
		Patterns:         patterns,
		Upstreams:        bareUpstreams,
		Weights:          weights,
		Strategy:         strategy,
		WhitelistPattern: whitelist,
	}

	best := 0
	for _, p := range patterns {
		if p == "" {
			return nil, fmt.Errorf("route rule has an empty pattern")
		}
		c := pattern.Compile(p)
		r.compiled = append(r.compiled, c)
		best = max(best, scorePattern(p))
	}
	r.score = best

	return r, nil
}

// parseUpstreamWeight splits an optional ";weight=N" suffix off an
// upstream URL, per §6's upstream-field weight-suffix decision. An
// absent or malformed suffix defaults to weight 1.
func parseUpstreamWeight(upstream string) (url string, weight int) {
	url, suffix, found := strings.Cut(upstream, ";weight=")
	if !found {
		return upstream, 1
	}
	w, err := strconv.Atoi(strings.TrimSpace(suffix))
	if err != nil || w < 0 {
		return url, 1
	}
	return url, w
}

// scorePattern implements the §4.2 scoring rule: a pattern containing
// dynamic tokens scores its length plus 1000, a pure literal prefix scores
// its length, so a matching variable/wildcard rule wins over any matching
// literal rule shorter than 1000 characters, even a longer one.
func scorePattern(p string) int {
	if pattern.HasVariablesOrWildcards(p) {
		return len(p) + 1000
	}
	return len(p)
}

// Match reports whether path matches any of the rule's patterns and
// returns the captured path variables for the first pattern that
// matches. Per §4.2, a literal-only pattern S matches path == S or
// path starting with S + "/" (a prefix with segment boundary); a
// wildcard/variable pattern delegates to the compiled matcher's exact
// anchored match.
func (r *Rule) Match(path string) (map[string]string, bool) {
	for i, p := range r.Patterns {
		if pattern.HasVariablesOrWildcards(p) {
			if vars := r.compiled[i].Extract(path); vars != nil {
				return vars, true
			}
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return map[string]string{}, true
		}
	}
	return nil, false
}

// IsWhitelisted reports whether path matches one of the rule's whitelist
// patterns, making it eligible for the auth bypass of §4.5/§4.6.
func (r *Rule) IsWhitelisted(path string) bool {
	if len(r.WhitelistPattern) == 0 {
		return false
	}
	return MatchesAny(r.WhitelistPattern, path)
}

// ForwardPath computes the §4.7 forward path for matchPath: if any of the
// rule's literal patterns is a prefix matchPath actually starts with, that
// prefix is stripped (a matchPath equal to the prefix forwards "/");
// otherwise matchPath is forwarded unchanged. A rule
// can carry several literal patterns (e.g. ["/v2", "/user"]), so every one
// of them is checked rather than just the first.
func (r *Rule) ForwardPath(matchPath string) string {
	for _, p := range r.Patterns {
		if pattern.HasVariablesOrWildcards(p) {
			continue
		}
		if matchPath == p {
			return "/"
		}
		if strings.HasPrefix(matchPath, p+"/") {
			return matchPath[len(p):]
		}
	}
	return matchPath
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// MatchesAny reports whether path matches any pattern in patterns, under
// the same literal-prefix-or-wildcard-exact rule used for rule matching.
// Used for whitelist checks, which are a bare pattern list rather than a
// full Rule.
func MatchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if pattern.HasVariablesOrWildcards(p) {
			if pattern.Compile(p).Matches(path) {
				return true
			}
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// Table is an ordered collection of rules, matched by highest score with
// config order breaking ties.
type Table struct {
	rules []*Rule
}

// NewTable builds a Table from rules in configuration order.
func NewTable(rules []*Rule) *Table {
	return &Table{rules: rules}
}

// Match finds, among the rules whose patterns match path, the
// highest-scoring one (ties broken by earliest config order), and
// returns it along with the variables captured by the first of its
// patterns that matches (see Rule.Match).
func (t *Table) Match(path string) (*Rule, map[string]string) {
	var best *Rule
	var bestVars map[string]string
	bestScore := -1

	for _, r := range t.rules {
		vars, ok := r.Match(path)
		if !ok {
			continue
		}
		if r.score > bestScore {
			best = r
			bestVars = vars
			bestScore = r.score
		}
	}
	return best, bestVars
}
