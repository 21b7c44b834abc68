// Package server wires the gateway's fasthttp request handler: the two
// bare system endpoints plus the proxying middleware chain, grounded on
// the teacher's path-switch HandleRequest shape.
package server

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/gateway/internal/middleware"
)

const livenessBody = "edgecomet gateway: ok"

// Server dispatches inbound requests by path before anything reaches
// the middleware chain, per §6's external interface table.
type Server struct {
	chain  *middleware.Chain
	logger *zap.Logger
}

// New builds a Server around an already-assembled middleware chain.
func New(chain *middleware.Chain, logger *zap.Logger) *Server {
	return &Server{chain: chain, logger: logger}
}

// HandleRequest is the fasthttp.RequestHandler registered on the
// gateway's listener. A panic anywhere below this point is recovered
// and converted to a 500 so that one bad request never takes down the
// worker processing it, per §7's panic-isolation requirement.
func (s *Server) HandleRequest(ctx *fasthttp.RequestCtx) {
	defer s.recoverPanic(ctx)

	switch string(ctx.Path()) {
	case "/":
		ctx.Response.Header.Set("Content-Type", "text/plain")
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString(livenessBody)
	case "/metrics":
		s.chain.Metrics.ServeHTTP(ctx)
	default:
		s.chain.Handle(ctx)
	}
}

func (s *Server) recoverPanic(ctx *fasthttp.RequestCtx) {
	if r := recover(); r != nil {
		s.logger.Error("recovered panic in request handler",
			zap.Any("panic", r),
			zap.String("path", string(ctx.Path())))
		ctx.Response.Reset()
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("Internal server error")
	}
}
