// Package middleware composes the gateway's fixed request-handling
// order: metrics start, rate limiting, whitelist tagging, auth
// verification, header propagation, proxying, metrics finish — per §4.6.
package middleware

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/gateway/internal/auth"
	"github.com/edgecomet/gateway/internal/clientip"
	"github.com/edgecomet/gateway/internal/gwctx"
	"github.com/edgecomet/gateway/internal/metrics"
	"github.com/edgecomet/gateway/internal/proxy"
	"github.com/edgecomet/gateway/internal/ratelimit"
	"github.com/edgecomet/gateway/internal/requestid"
	"github.com/edgecomet/gateway/internal/route"
)

// Chain holds the shared state the middleware stages read from: the
// route table, rate limits, auth verifier, proxy engine, and metrics
// collector. It is immutable after construction; a request mutates only
// its own gwctx.Context.
type Chain struct {
	Routes  *route.Table
	Limits  *ratelimit.Limits
	Auth    *auth.Verifier
	Proxy   *proxy.Engine
	Metrics *metrics.Collector
	Logger  *zap.Logger

	TrustedIPHeaders []string
}

// Handle runs one inbound request through the full chain and writes the
// reply into httpCtx.Response.
func (c *Chain) Handle(httpCtx *fasthttp.RequestCtx) {
	method := string(httpCtx.Method())
	rawPath := string(httpCtx.Path())
	start := time.Now()

	clientIP := clientip.Extract(httpCtx, c.TrustedIPHeaders)
	reqID := requestid.GenerateRequestID(string(httpCtx.Request.Header.Peek("X-Request-ID")))
	httpCtx.Response.Header.Set("X-Request-ID", reqID)
	gwCtx := gwctx.New(httpCtx, c.Logger, reqID, clientIP)

	status := c.run(gwCtx, method, rawPath)
	elapsed := time.Since(start)

	gwCtx.Logger.Info("request handled",
		zap.String("method", method),
		zap.String("path", rawPath),
		zap.Int("status", status),
		zap.Duration("elapsed", elapsed))

	c.Metrics.Observe(method, rawPath, strconv.Itoa(status), elapsed)
}

// run executes steps 2–6 of §4.6 and returns the final status code for
// the metrics-finish step.
func (c *Chain) run(gwCtx *gwctx.Context, method, rawPath string) int {
	httpCtx := gwCtx.HTTP

	if !c.Limits.AllowGlobal() {
		writeText(httpCtx, 429, ratelimit.GlobalLimitBody)
		return 429
	}
	if !c.Limits.AllowClient(gwCtx.ClientIP) {
		writeText(httpCtx, 429, ratelimit.ClientLimitBody)
		return 429
	}

	matchPath := proxy.MatchPath(rawPath)
	rule, vars := c.Routes.Match(matchPath)
	gwCtx.WithRule(rule, vars)

	whitelisted := rule != nil && rule.IsWhitelisted(matchPath)
	gwCtx.Whitelisted = whitelisted

	authHeader := string(httpCtx.Request.Header.Peek("Authorization"))
	claims, err := c.Auth.Verify(authHeader, whitelisted)
	if err != nil {
		authErr, ok := err.(*auth.Error)
		if !ok {
			writeText(httpCtx, 500, "Config missing")
			return 500
		}
		writeText(httpCtx, authErr.Status, authErr.Body)
		return authErr.Status
	}
	gwCtx.WithClaims(claims)

	if claims.Subject != "" {
		httpCtx.Request.Header.Set("uid", claims.Subject)
	}
	if claims.TenantID != "" {
		httpCtx.Request.Header.Set("tenant_id", claims.TenantID)
	}

	return c.proxyRequest(gwCtx, method, matchPath)
}

func (c *Chain) proxyRequest(gwCtx *gwctx.Context, method, matchPath string) int {
	httpCtx := gwCtx.HTTP

	var plan proxy.Plan
	if gwCtx.MatchedRule != nil {
		p, err := c.Proxy.Plan(gwCtx.MatchedRule, matchPath, gwCtx.ClientIP)
		if err != nil {
			writeJSONError(httpCtx, 500, "Proxy error: "+err.Error())
			return 500
		}
		plan = p
	} else {
		writeJSONError(httpCtx, 502, "No upstream configured for path: "+matchPath)
		return 502
	}

	query := string(httpCtx.QueryArgs().QueryString())
	result := c.Proxy.Forward(plan, method, &httpCtx.Request.Header, httpCtx.Request.Body(), query)

	if result.Error != "" {
		writeJSONError(httpCtx, result.StatusCode, result.Error)
		return result.StatusCode
	}

	for name, values := range result.Headers {
		for _, v := range values {
			httpCtx.Response.Header.Add(name, v)
		}
	}
	httpCtx.SetStatusCode(result.StatusCode)
	httpCtx.SetBody(result.Body)
	return result.StatusCode
}

func writeText(ctx *fasthttp.RequestCtx, status int, body string) {
	ctx.SetStatusCode(status)
	ctx.SetBodyString(body)
}

func writeJSONError(ctx *fasthttp.RequestCtx, status int, message string) {
	payload, _ := json.Marshal(map[string]string{"error": message})
	ctx.SetStatusCode(status)
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetBody(payload)
}
