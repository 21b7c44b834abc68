// Package pattern compiles route prefixes into anchored matchers that
// support single-segment wildcards, greedy double-star segments, and
// named path variables, and extracts the variables a match captures.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Compiled is a single compiled route pattern: the anchored regex it
// produced plus the ordered variable names it declares.
type Compiled struct {
	Source   string
	re       *regexp.Regexp
	varNames []string
}

// Matches reports whether path satisfies the compiled pattern.
func (c *Compiled) Matches(path string) bool {
	if c.re == nil {
		return strings.HasPrefix(path, c.Source)
	}
	return c.re.MatchString(path)
}

// Extract returns the named path variables captured by matching path, or
// nil if path does not match.
func (c *Compiled) Extract(path string) map[string]string {
	if c.re == nil {
		if strings.HasPrefix(path, c.Source) {
			return map[string]string{}
		}
		return nil
	}
	m := c.re.FindStringSubmatch(path)
	if m == nil {
		return nil
	}
	vars := make(map[string]string, len(c.varNames))
	for _, name := range c.re.SubexpNames() {
		if name == "" {
			continue
		}
		idx := c.re.SubexpIndex(name)
		if idx >= 0 && idx < len(m) {
			vars[name] = m[idx]
		}
	}
	return vars
}

// HasVariablesOrWildcards reports whether the pattern source contains any
// of the dynamic-matching tokens that make it a "pattern" rather than a
// plain literal prefix, per the route-scoring rule.
func HasVariablesOrWildcards(source string) bool {
	return strings.ContainsAny(source, "{*?")
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*Compiled{}
)

// Compile returns the Compiled form of pattern, memoized by the exact
// pattern string. On a compile failure it falls back silently to a
// literal-prefix matcher for the raw pattern text, matching the original
// gateway's degraded-but-available behavior.
func Compile(source string) *Compiled {
	cacheMu.Lock()
	if c, ok := cache[source]; ok {
		cacheMu.Unlock()
		return c
	}
	cacheMu.Unlock()

	c, err := compile(source)
	if err != nil {
		c = &Compiled{Source: source}
	}

	cacheMu.Lock()
	cache[source] = c
	cacheMu.Unlock()
	return c
}

func compile(source string) (*Compiled, error) {
	segments := strings.Split(source, "/")
	var b strings.Builder
	b.WriteByte('^')
	var varNames []string

	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('/')
		}
		if seg == "**" {
			// A whole "**" segment matches zero or more characters,
			// including further slashes, so this and the remainder of
			// the path become optional.
			b.WriteString("(?:.*)?")
			continue
		}
		if err := compileSegment(&b, seg, &varNames); err != nil {
			return nil, err
		}
	}
	b.WriteByte('$')

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", source, err)
	}
	return &Compiled{Source: source, re: re, varNames: varNames}, nil
}

// compileSegment translates one path segment into its regex fragment,
// handling literal runs, single-char/single-segment wildcards, and
// {name} / {name:re} variable captures within the segment.
func compileSegment(b *strings.Builder, seg string, varNames *[]string) error {
	i := 0
	for i < len(seg) {
		switch seg[i] {
		case '*':
			b.WriteString("[^/]*")
			i++
		case '?':
			b.WriteString("[^/]")
			i++
		case '{':
			end := strings.IndexByte(seg[i:], '}')
			if end < 0 {
				return fmt.Errorf("unterminated variable in segment %q", seg)
			}
			inner := seg[i+1 : i+end]
			name := inner
			innerRe := "[^/]+"
			if colon := strings.IndexByte(inner, ':'); colon >= 0 {
				name = inner[:colon]
				innerRe = inner[colon+1:]
			}
			if name == "" {
				return fmt.Errorf("empty variable name in segment %q", seg)
			}
			*varNames = append(*varNames, name)
			fmt.Fprintf(b, "(?P<%s>%s)", name, innerRe)
			i += end + 1
		default:
			start := i
			for i < len(seg) && seg[i] != '*' && seg[i] != '?' && seg[i] != '{' {
				i++
			}
			b.WriteString(regexp.QuoteMeta(seg[start:i]))
		}
	}
	return nil
}
