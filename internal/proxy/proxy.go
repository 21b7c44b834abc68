// Package proxy implements the gateway's outbound request/response
// rewrite and the shared pooled HTTP client, grounded on the teacher's
// bypass fetch service adapted to full reverse-proxy semantics.
package proxy

import (
	"fmt"
	"strings"
	"time"

	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
	"golang.org/x/net/http/httpguts"

	"github.com/edgecomet/gateway/internal/balancer"
	"github.com/edgecomet/gateway/internal/route"
)

// Engine rewrites and forwards a matched request to its chosen upstream
// via a single process-wide pooled fasthttp.Client.
type Engine struct {
	client          *fasthttp.Client
	registry        *balancer.Registry
	defaultUpstream string
	requestTimeout  time.Duration
	maxBodyBytes    int64
}

// Config holds the knobs the engine's pooled client is built from,
// matching §4.7's "HTTP client pool" paragraph.
type Config struct {
	DefaultUpstream     string
	RequestTimeout      time.Duration
	MaxBodyBytes        int64
	MaxIdleConnsPerHost int
	MaxConnWaitTimeout  time.Duration
}

// New builds an Engine with its own pooled client and balancer registry.
func New(cfg Config, registry *balancer.Registry) *Engine {
	maxIdle := cfg.MaxIdleConnsPerHost
	if maxIdle <= 0 {
		maxIdle = 1000
	}
	return &Engine{
		client: &fasthttp.Client{
			MaxIdleConnDuration: 90 * time.Second,
			MaxConnsPerHost:     maxIdle,
			ReadTimeout:         cfg.RequestTimeout,
			WriteTimeout:        cfg.RequestTimeout,
			MaxConnWaitTimeout:  cfg.MaxConnWaitTimeout,
		},
		registry:        registry,
		defaultUpstream: cfg.DefaultUpstream,
		requestTimeout:  cfg.RequestTimeout,
		maxBodyBytes:    cfg.MaxBodyBytes,
	}
}

// Result describes the outcome of forwarding one request, used by the
// middleware chain to write the reply and record metrics.
type Result struct {
	StatusCode int
	Body       []byte
	Headers    map[string][]string
	Error      string // non-empty ⇒ an engine-synthesized error response
}

// Plan is the path-rewrite decision computed ahead of the outbound call.
type Plan struct {
	ForwardPath string
	Upstream    string
}

// stripProxyPrefix removes an optional leading "/proxy" segment from
// the raw request path, per §4.7 and §9's optional-stripping decision.
func stripProxyPrefix(path string) string {
	if path == "/proxy" {
		return "/"
	}
	if strings.HasPrefix(path, "/proxy/") {
		return path[len("/proxy"):]
	}
	return path
}

// MatchPath computes the §4.6-step-3 match path ("path - /proxy") that
// routing, whitelist, and the proxy engine all operate on.
func MatchPath(rawPath string) string {
	return stripProxyPrefix(rawPath)
}

// Plan computes the forward path and upstream pick for a matched rule,
// implementing §4.7's forward-path rule: strip the winning literal
// prefix if one exists and matches, otherwise forward the match path
// unchanged (variables are never substituted into the outbound URL).
func (e *Engine) Plan(rule *route.Rule, matchPath, clientIP string) (Plan, error) {
	forwardPath := rule.ForwardPath(matchPath)

	key := balancer.Key(rule.Strategy, rule.Upstreams)
	ups := make([]balancer.Upstream, len(rule.Upstreams))
	for i, u := range rule.Upstreams {
		weight := 1
		if i < len(rule.Weights) {
			weight = rule.Weights[i]
		}
		ups[i] = balancer.Upstream{URL: u, Weight: weight}
	}
	b, err := e.registry.GetOrCreate(key, rule.Strategy, ups)
	if err != nil {
		return Plan{}, err
	}

	upstream, ok := b.Select(clientIP)
	if !ok {
		upstream = rule.Upstreams[0]
	}

	return Plan{ForwardPath: forwardPath, Upstream: upstream}, nil
}

// PlanDefault builds a Plan that forwards matchPath unchanged to the
// engine's configured default upstream. The middleware chain does not
// call it: a request whose path matches no rule gets a 502 instead.
func (e *Engine) PlanDefault(matchPath string) Plan {
	return Plan{ForwardPath: matchPath, Upstream: e.defaultUpstream}
}

// Forward issues the outbound request described by plan, copying
// method, reqHeader and body from the inbound request and writing the
// rewritten response (or
// a synthesized error) into Result.
func (e *Engine) Forward(plan Plan, method string, reqHeader *fasthttp.RequestHeader, body []byte, query string) *Result {
	if int64(len(body)) > e.maxBodyBytes {
		return &Result{StatusCode: 413, Error: fmt.Sprintf("Body too large: %d bytes exceeds limit of %d", len(body), e.maxBodyBytes)}
	}

	targetURL := plan.Upstream + plan.ForwardPath
	if query != "" {
		targetURL += "?" + query
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(targetURL)
	req.Header.SetMethod(method)
	req.SetBody(body)

	connectionValues := headerValues(reqHeader, "Connection")
	reqHeader.VisitAll(func(key, value []byte) {
		k := string(key)
		if strings.EqualFold(k, "Host") {
			return
		}
		if isHopByHop(k, connectionValues) {
			return
		}
		if !httpguts.ValidHeaderFieldValue(string(value)) {
			return
		}
		req.Header.Add(k, string(value))
	})

	timeout := e.requestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	if err := e.client.DoTimeout(req, resp, timeout); err != nil {
		return &Result{StatusCode: 500, Error: fmt.Sprintf("Proxy error: %v", err)}
	}

	return e.buildResult(resp)
}

func (e *Engine) buildResult(resp *fasthttp.Response) *Result {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	buf.Write(resp.Body())

	if int64(buf.Len()) > e.maxBodyBytes {
		return &Result{StatusCode: 500, Error: fmt.Sprintf("Response body error: body exceeds limit of %d bytes", e.maxBodyBytes)}
	}

	headers := make(map[string][]string)
	connectionValues := headerValuesFromResponse(resp, "Connection")
	resp.Header.VisitAll(func(key, value []byte) {
		k := string(key)
		if isHopByHop(k, connectionValues) {
			return
		}
		headers[k] = append(headers[k], string(value))
	})

	contentType := string(resp.Header.ContentType())
	if contentType == "" {
		contentType = "application/octet-stream"
		headers["Content-Type"] = []string{contentType}
	}

	body := append([]byte(nil), buf.B...)

	return &Result{
		StatusCode: resp.StatusCode(),
		Body:       body,
		Headers:    headers,
	}
}

func headerValues(h *fasthttp.RequestHeader, name string) []string {
	var vals []string
	h.VisitAll(func(key, value []byte) {
		if strings.EqualFold(string(key), name) {
			vals = append(vals, string(value))
		}
	})
	return vals
}

func headerValuesFromResponse(h *fasthttp.Response, name string) []string {
	var vals []string
	h.Header.VisitAll(func(key, value []byte) {
		if strings.EqualFold(string(key), name) {
			vals = append(vals, string(value))
		}
	})
	return vals
}
