package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/angeloszaimis/label-gateway/config"
	"github.com/angeloszaimis/label-gateway/internal/endpoint"
	"github.com/angeloszaimis/label-gateway/internal/handler"
	"github.com/angeloszaimis/label-gateway/internal/healthcheck"
	"github.com/angeloszaimis/label-gateway/internal/httpserver"
	"github.com/angeloszaimis/label-gateway/internal/labeling"
	"github.com/angeloszaimis/label-gateway/internal/metrics"
	"github.com/angeloszaimis/label-gateway/internal/router"
	"github.com/angeloszaimis/label-gateway/internal/store"
	"github.com/angeloszaimis/label-gateway/pkg/logger"
)

const metricsBufferSize = 1000

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Server.Environment == config.EnvDev, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Gateway stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	durations := cfg.Durations()

	endpoints, err := initializeEndpoints(cfg, log)
	if err != nil {
		return err
	}

	pointerStore, err := createStore(ctx, cfg.PointerStore)
	if err != nil {
		return fmt.Errorf("open pointer store: %w", err)
	}
	defer func() {
		if err := pointerStore.Close(); err != nil {
			log.Warn("Failed to close pointer store", slog.Any("err", err))
		}
	}()

	rt, err := router.New(ctx, endpoints, pointerStore, logger.Component(log, "router"))
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(metricsBufferSize, logger.Component(log, "metrics"))
	collector.Start(ctx)
	events := collector.EventChannel()

	forwarder := labeling.NewForwarder(
		logger.Component(log, "labeling"),
		rt,
		labeling.NewClient(durations.UpstreamTimeout),
		cfg.Upstream.Path,
		events,
	)

	prober := healthcheck.NewProber(cfg.WarmUp.Path, durations.WarmUpTimeout, logger.Component(log, "warmup"), events)
	if durations.WarmUpInterval > 0 {
		go prober.Run(ctx, endpoints, durations.WarmUpInterval)
	}

	gateway := handler.NewGatewayHandler(
		logger.Component(log, "handler"),
		forwarder,
		prober,
		endpoints,
		cfg.Server.MaxUploadBytes,
		events,
	)

	mux := setupRouter(gateway, collector, cfg.Assets)

	srv, err := httpserver.New(cfg.Server.Address, handler.WithRequestLogging(log, mux), httpserver.Timeouts{
		Read:  durations.ReadTimeout,
		Write: durations.WriteTimeout,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		log.Info("Gateway listening",
			slog.String("address", srv.Addr()),
			slog.Int("endpoints", len(endpoints)),
			slog.String("store", cfg.PointerStore.Driver))
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
		return nil
	case err := <-srvErrCh:
		return err
	}
}

func initializeEndpoints(cfg *config.Config, log *slog.Logger) ([]*endpoint.Endpoint, error) {
	endpoints, err := endpoint.ParseAll(cfg.Endpoints)
	if err != nil {
		return nil, err
	}

	if len(endpoints) == 0 {
		return nil, router.ErrNoEndpoints
	}

	for i, e := range endpoints {
		log.Info("Configured endpoint",
			slog.Int("index", i),
			slog.String("url", e.String()))
	}

	return endpoints, nil
}

func createStore(ctx context.Context, cfg config.PointerStoreConfig) (store.PointerStore, error) {
	switch cfg.Driver {
	case config.StoreDriverFile:
		return store.NewFileStore(cfg.Path), nil
	case config.StoreDriverSQLite:
		s, err := store.NewSQLiteStore(ctx, cfg.Path, store.DefaultPointerName)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreDriverMemory:
		return store.NewMemoryStore(0), nil
	default:
		return nil, fmt.Errorf("unknown pointer store driver %q", cfg.Driver)
	}
}
