package proxy

import "strings"

// hopByHop is the RFC 7230 §6.1 set of header fields that are
// connection-specific and must never be forwarded by an intermediary.
// The original gateway only filtered Transfer-Encoding; §9's REDESIGN
// FLAG calls for the full set on both legs.
var hopByHop = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// isHopByHop reports whether header (any case) is hop-by-hop, including
// any header named in a Connection header's value for this message.
func isHopByHop(header string, connectionHeaderValues []string) bool {
	if hopByHop[canonicalHeaderKey(header)] {
		return true
	}
	for _, v := range connectionHeaderValues {
		for _, tok := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(tok), header) {
				return true
			}
		}
	}
	return false
}

// canonicalHeaderKey title-cases a header name the way net/http does,
// for case-insensitive comparison against the hopByHop set.
func canonicalHeaderKey(key string) string {
	if key == "" {
		return key
	}
	parts := strings.Split(key, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, "-")
}
