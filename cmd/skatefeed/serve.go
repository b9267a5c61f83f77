package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/skatefeed/internal/api"
	"github.com/IshaanNene/skatefeed/internal/engine"
)

var (
	servePort     int
	serveInterval time.Duration
)

// serveCmd creates the "serve" subcommand: the trigger server plus an
// optional run loop.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the trigger API and optionally run on an interval",
		RunE:  runServe,
	}
	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "API port (default from config)")
	cmd.Flags().DurationVar(&serveInterval, "interval", 0, "run the pipeline on this interval (0 = only on trigger)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if serveInterval > 0 {
		cfg.Server.Interval = serveInterval
	}
	logger := setupLogger(cfg.Logging)

	ctx, cancel := signalContext(logger)
	defer cancel()

	eng, metrics, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	var metricsHandler http.Handler
	if metrics != nil {
		metricsHandler = metrics.Handler()
	}

	if cfg.Server.Interval > 0 {
		go eng.RunEvery(ctx, cfg.Server.Interval, engine.RunOptions{})
	}

	srv := api.NewServer(cfg.Server.Port, eng, metricsHandler, logger)
	return srv.Start(ctx)
}
