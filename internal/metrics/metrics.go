// Package metrics exposes the gateway's two request-level Prometheus
// series and the /metrics text-exposition handler, following the
// teacher's Prometheus-collector shape trimmed to the gateway's needs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Collector wraps the gateway's Prometheus counter and histogram plus
// the adapted promhttp handler for the /metrics path.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	httpHandler     func(*fasthttp.RequestCtx)
}

// New builds a Collector registered against registerer.
func New(registerer prometheus.Registerer) *Collector {
	c := &Collector{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_http_requests_total",
				Help: "Total number of proxied HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_request_duration_seconds",
				Help:    "Time taken to process a proxied HTTP request.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	registerer.MustRegister(c.requestsTotal, c.requestDuration)

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	c.httpHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return c
}

// Observe records one completed request. path is never "/metrics" —
// callers exempt that route from both series per §8 invariant 8.
func (c *Collector) Observe(method, path, status string, duration time.Duration) {
	c.requestsTotal.WithLabelValues(method, path, status).Inc()
	c.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ServeHTTP renders the Prometheus text exposition format.
func (c *Collector) ServeHTTP(ctx *fasthttp.RequestCtx) {
	c.httpHandler(ctx)
}
