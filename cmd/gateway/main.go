package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/gateway/internal/auth"
	"github.com/edgecomet/gateway/internal/balancer"
	"github.com/edgecomet/gateway/internal/gwconfig"
	"github.com/edgecomet/gateway/internal/gwlog"
	"github.com/edgecomet/gateway/internal/metrics"
	"github.com/edgecomet/gateway/internal/middleware"
	"github.com/edgecomet/gateway/internal/proxy"
	"github.com/edgecomet/gateway/internal/ratelimit"
	"github.com/edgecomet/gateway/internal/server"
)

func main() {
	settingsPath := flag.String("c", "configs/settings.yaml", "path to the gateway settings file")
	routesPath := flag.String("r", "configs/routes.yaml", "path to the route rules file")
	flag.Parse()

	initialLogger, err := gwlog.NewDefault()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	initialLogger.Info("starting gateway", zap.String("settings_path", *settingsPath), zap.String("routes_path", *routesPath))

	settings, err := gwconfig.LoadSettings(*settingsPath)
	if err != nil {
		initialLogger.Fatal("failed to load settings", zap.Error(err))
	}

	routes, err := gwconfig.LoadRouteRules(*routesPath)
	if err != nil {
		initialLogger.Fatal("failed to load route rules", zap.Error(err))
	}

	dynamicLogger, err := gwlog.NewLogger(settings.Log)
	if err != nil {
		initialLogger.Fatal("failed to create configured logger", zap.Error(err))
	}
	defer dynamicLogger.Sync() //nolint:errcheck

	logger := dynamicLogger.Logger

	registry := prometheus.NewRegistry()
	metricsCollector := metrics.New(registry)

	proxyEngine := proxy.New(proxy.Config{
		DefaultUpstream:     settings.UpstreamDefault,
		RequestTimeout:      settings.RequestTimeout(),
		MaxBodyBytes:        settings.MaxBodyBytes,
		MaxIdleConnsPerHost: 1000,
		MaxConnWaitTimeout:  5 * time.Second,
	}, balancer.NewRegistry())

	chain := &middleware.Chain{
		Routes:           routes,
		Limits:           ratelimit.New(settings.GlobalQPS, settings.ClientQPS),
		Auth:             auth.NewVerifier(settings.JWTDecodingKey),
		Proxy:            proxyEngine,
		Metrics:          metricsCollector,
		Logger:           logger,
		TrustedIPHeaders: settings.ClientIPHeaders,
	}

	srv := server.New(chain, logger)

	fastSrv := &fasthttp.Server{
		Handler:               srv.HandleRequest,
		Name:                  "edgecomet-gateway",
		ReadTimeout:           settings.RequestTimeout(),
		WriteTimeout:          settings.RequestTimeout(),
		MaxRequestBodySize:    int(settings.MaxBodyBytes),
		NoDefaultServerHeader: true,
		NoDefaultDate:         true,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", zap.String("address", settings.GatewayBind))
		if err := fastSrv.ListenAndServe(settings.GatewayBind); err != nil {
			serverErrors <- err
		}
	}()

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			dynamicLogger.SwitchToConfiguredLevel()
			logger.Info("log levels reset to configured values")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutting down gateway")
	case err := <-serverErrors:
		logger.Error("gateway server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := fastSrv.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("gateway shutdown error", zap.Error(err))
	}

	logger.Info("gateway stopped")
}
