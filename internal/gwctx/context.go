// Package gwctx carries the per-request state threaded through the
// gateway's middleware chain, following the teacher's fluent
// request-context idiom.
package gwctx

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/gateway/internal/auth"
	"github.com/edgecomet/gateway/internal/route"
)

// Context bundles everything a middleware stage or the proxy engine
// needs for one inbound request.
type Context struct {
	HTTP      *fasthttp.RequestCtx
	Logger    *zap.Logger
	RequestID string
	ClientIP  string

	MatchedRule *route.Rule
	PathVars    map[string]string
	Whitelisted bool

	Claims *auth.Claims

	startedAt time.Time
}

// New builds a Context for an inbound fasthttp request.
func New(httpCtx *fasthttp.RequestCtx, logger *zap.Logger, requestID, clientIP string) *Context {
	return &Context{
		HTTP:      httpCtx,
		Logger:    logger.With(zap.String("request_id", requestID), zap.String("client_ip", clientIP)),
		RequestID: requestID,
		ClientIP:  clientIP,
		startedAt: time.Now(),
	}
}

// WithRule attaches the route table's best match and returns the
// Context for chaining, enriching the logger with the matched rule's
// upstream strategy for easier tracing.
func (c *Context) WithRule(rule *route.Rule, vars map[string]string) *Context {
	c.MatchedRule = rule
	c.PathVars = vars
	if rule != nil {
		c.Logger = c.Logger.With(zap.String("strategy", rule.Strategy))
	}
	return c
}

// WithClaims attaches verified bearer-token claims and enriches the
// logger with the caller's subject/tenant for audit trails.
func (c *Context) WithClaims(claims *auth.Claims) *Context {
	c.Claims = claims
	if claims != nil {
		c.Logger = c.Logger.With(zap.String("sub", claims.Subject), zap.String("tenant_id", claims.TenantID))
	}
	return c
}

// Elapsed returns the time spent on this request so far.
func (c *Context) Elapsed() time.Duration {
	return time.Since(c.startedAt)
}
