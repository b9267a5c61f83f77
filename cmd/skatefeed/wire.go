package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/IshaanNene/skatefeed/internal/config"
	"github.com/IshaanNene/skatefeed/internal/engine"
	"github.com/IshaanNene/skatefeed/internal/fetcher"
	"github.com/IshaanNene/skatefeed/internal/notify"
	"github.com/IshaanNene/skatefeed/internal/observability"
	"github.com/IshaanNene/skatefeed/internal/rewrite"
	"github.com/IshaanNene/skatefeed/internal/storage"
)

// buildEngine wires the fetchers, the post store, the rewriter, the
// notifier and metrics into an Engine. The caller closes the engine.
func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Engine, *observability.Metrics, error) {
	httpFetcher, err := fetcher.NewHTTPFetcher(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create fetcher: %w", err)
	}

	// Declared as the interface so a missing browser stays a nil interface.
	var browser fetcher.Fetcher
	if cfg.Fetcher.Type == "browser" {
		bf, err := fetcher.NewBrowserFetcher(cfg, logger)
		if err != nil {
			logger.Warn("browser fetcher unavailable, rendering falls back to http", "error", err)
		} else {
			browser = bf
		}
	}
	router := fetcher.NewRouter(httpFetcher, browser)

	store, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		router.Close()
		return nil, nil, fmt.Errorf("open post store: %w", err)
	}

	notifier, err := notify.New(cfg.Notify, logger)
	if err != nil {
		logger.Warn("announcements disabled", "error", err)
		notifier = notify.Nop{}
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(logger)
	}

	eng := engine.New(cfg, engine.Deps{
		Fetcher:  router,
		Store:    store,
		Rewriter: rewrite.New(cfg.AI, logger),
		Notifier: notifier,
		Metrics:  metrics,
	}, logger)

	logger.Debug("engine ready",
		"fetcher", router.Type(),
		"store", store.Name(),
		"rewriting", cfg.AI.Enabled,
		"metrics", metrics != nil,
	)
	return eng, metrics, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down...", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
