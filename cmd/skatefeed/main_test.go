package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/IshaanNene/skatefeed/internal/config"
)

func TestApplyCLIOverrides(t *testing.T) {
	registryPath, storageType, storagePath = "/srv/settings.json", "SQLite", "/srv/posts.db"
	concurrent, noAI, natsURL = 3, true, "nats://localhost:4222"
	t.Cleanup(func() {
		registryPath, storageType, storagePath = "", "", ""
		concurrent, noAI, natsURL = 0, false, ""
	})

	cfg := config.DefaultConfig()
	applyCLIOverrides(cfg)

	if cfg.RegistryPath != "/srv/settings.json" {
		t.Errorf("registry = %q", cfg.RegistryPath)
	}
	if cfg.Storage.Type != "sqlite" || cfg.Storage.Path != "/srv/posts.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Aggregator.MaxConcurrency != 3 {
		t.Errorf("concurrency = %d", cfg.Aggregator.MaxConcurrency)
	}
	if cfg.AI.Enabled {
		t.Error("--no-ai should disable rewriting")
	}
	if cfg.Notify.NATSURL != "nats://localhost:4222" {
		t.Errorf("nats url = %q", cfg.Notify.NATSURL)
	}
	if err := config.Validate(cfg); err != nil {
		t.Errorf("overridden config should stay valid: %v", err)
	}
}

func TestApplyCLIOverridesKeepsDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	applyCLIOverrides(cfg)
	if cfg.Storage.Type != "json" || cfg.Aggregator.MaxConcurrency != 8 || !cfg.AI.Enabled {
		t.Errorf("unset flags changed the config: %+v", cfg)
	}
}

func TestSetupLogger(t *testing.T) {
	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "json"})
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("warn level should not log info")
	}

	verbose = true
	t.Cleanup(func() { verbose = false })
	logger = setupLogger(config.LoggingConfig{Level: "error", Format: "text"})
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("-v should force debug")
	}
}
