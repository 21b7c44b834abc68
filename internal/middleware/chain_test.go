package middleware

import (
	"net"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/gateway/internal/auth"
	"github.com/edgecomet/gateway/internal/balancer"
	"github.com/edgecomet/gateway/internal/metrics"
	"github.com/edgecomet/gateway/internal/proxy"
	"github.com/edgecomet/gateway/internal/ratelimit"
	"github.com/edgecomet/gateway/internal/route"

	"github.com/prometheus/client_golang/prometheus"
)

// startEchoUpstream runs a throwaway fasthttp server that reports the
// path it received, for the chain's Forward step to hit.
func startEchoUpstream(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			ctx.Response.Header.Set("X-Echo-Path", string(ctx.Path()))
			ctx.SetStatusCode(fasthttp.StatusOK)
			ctx.SetBodyString("upstream-ok")
		},
	}
	go srv.Serve(ln) //nolint:errcheck

	t.Cleanup(func() { _ = srv.Shutdown() })
	return "http://" + ln.Addr().String()
}

func newTestChain(t *testing.T, upstream string, secret string) *Chain {
	rule, err := route.NewRule([]string{"/api"}, []string{upstream}, "round_robin", []string{"/api/open"})
	require.NoError(t, err)
	table := route.NewTable([]*route.Rule{rule})

	registry := prometheus.NewRegistry()

	return &Chain{
		Routes:  table,
		Limits:  ratelimit.New(1000, 1000),
		Auth:    auth.NewVerifier(secret),
		Proxy:   proxy.New(proxy.Config{DefaultUpstream: upstream, RequestTimeout: time.Second, MaxBodyBytes: 1 << 20}, balancer.NewRegistry()),
		Metrics: metrics.New(registry),
		Logger:  zap.NewNop(),
	}
}

func signedToken(t *testing.T, secret, subject string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       subject,
		"tenant_id": "tenant-1",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestChain_WhitelistedRequestBypassesAuth(t *testing.T) {
	upstream := startEchoUpstream(t)
	c := newTestChain(t, upstream, "secret")

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI("/api/open")
	ctx.Request.Header.SetMethod("GET")

	c.Handle(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "/open", string(ctx.Response.Header.Peek("X-Echo-Path")))
}

func TestChain_MissingAuthHeaderReturns401(t *testing.T) {
	upstream := startEchoUpstream(t)
	c := newTestChain(t, upstream, "secret")

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI("/api/widgets")
	ctx.Request.Header.SetMethod("GET")

	c.Handle(ctx)

	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	assert.Equal(t, "Missing authorization header", string(ctx.Response.Body()))
}

func TestChain_ValidTokenForwardsAndPropagatesHeaders(t *testing.T) {
	upstream := startEchoUpstream(t)
	c := newTestChain(t, upstream, "secret")

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI("/api/widgets")
	ctx.Request.Header.SetMethod("GET")
	ctx.Request.Header.Set("Authorization", "Bearer "+signedToken(t, "secret", "user-42"))

	c.Handle(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "/widgets", string(ctx.Response.Header.Peek("X-Echo-Path")))
	assert.Equal(t, "user-42", string(ctx.Request.Header.Peek("uid")))
	assert.Equal(t, "tenant-1", string(ctx.Request.Header.Peek("tenant_id")))
	assert.NotEmpty(t, string(ctx.Response.Header.Peek("X-Request-ID")))
}

func TestChain_NoRouteMatchReturns502(t *testing.T) {
	upstream := startEchoUpstream(t)
	c := newTestChain(t, upstream, "secret")

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI("/nowhere")
	ctx.Request.Header.SetMethod("GET")
	ctx.Request.Header.Set("Authorization", "Bearer "+signedToken(t, "secret", "user-1"))

	c.Handle(ctx)

	assert.Equal(t, fasthttp.StatusBadGateway, ctx.Response.StatusCode())
}

func TestChain_NoRouteMatchAndNoAuthReturns401(t *testing.T) {
	upstream := startEchoUpstream(t)
	c := newTestChain(t, upstream, "secret")

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI("/nowhere")
	ctx.Request.Header.SetMethod("GET")

	c.Handle(ctx)

	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
}

func TestChain_GlobalRateLimitExhaustedReturns429(t *testing.T) {
	upstream := startEchoUpstream(t)
	c := newTestChain(t, upstream, "secret")
	c.Limits = ratelimit.New(1, 1000)

	ctx1 := &fasthttp.RequestCtx{}
	ctx1.Request.SetRequestURI("/api/open")
	ctx1.Request.Header.SetMethod("GET")
	c.Handle(ctx1)
	require.Equal(t, fasthttp.StatusOK, ctx1.Response.StatusCode())

	ctx2 := &fasthttp.RequestCtx{}
	ctx2.Request.SetRequestURI("/api/open")
	ctx2.Request.Header.SetMethod("GET")
	c.Handle(ctx2)

	assert.Equal(t, fasthttp.StatusTooManyRequests, ctx2.Response.StatusCode())
	assert.Equal(t, ratelimit.GlobalLimitBody, string(ctx2.Response.Body()))
}
