package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pocket-calculator/internal/calculator"
	"pocket-calculator/internal/config"
	"pocket-calculator/internal/engine"
	"pocket-calculator/internal/observability"
	"pocket-calculator/internal/server"
	"pocket-calculator/internal/session"
)

func main() {

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Config
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		panic(err)
	}

	// Logger
	if err := observability.InitLogger(cfg.LogLevel); err != nil {
		panic(err)
	}
	defer observability.SyncLogger()

	// Tracing, metrics, log export
	telemetryShutdown, err := initTelemetry(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer telemetryShutdown(context.Background())

	// Sessions
	registry := engine.DefaultRegistry()
	store := session.NewStore(
		session.WithTTL(cfg.SessionTTL),
		session.WithMaxInputs(cfg.MaxInputs),
		session.WithEngineOptions(engine.WithRegistry(registry)),
		session.WithLogger(observability.Logger),
	)
	go store.Run(ctx, cfg.SweepInterval)

	// Prometheus
	metrics, err := observability.NewMetricsRegistry(store.Collector())
	if err != nil {
		panic(err)
	}

	// Router
	router := server.NewRouter(
		calculator.NewHandler(store, registry, cfg.MaxInputs),
		observability.PrometheusHandler(metrics),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		observability.Logger.Info("server started",
			zap.String("addr", cfg.Addr),
			zap.Bool("otel_enabled", cfg.OTelEnabled),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(err)
		}
	}()

	waitForShutdown(srv)
}

func waitForShutdown(srv *http.Server) {

	stop := make(chan os.Signal, 1)

	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		observability.Logger.Error("server shutdown", zap.Error(err))
	}
}
