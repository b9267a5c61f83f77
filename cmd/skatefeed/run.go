package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/skatefeed/internal/engine"
)

var (
	dryRun     bool
	jsonOutput bool
)

// runCmd creates the "run" subcommand: one full aggregation and publish.
func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Aggregate all sources once and publish new posts",
		RunE:  runOnce,
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run gates and rewriting without writing the post store")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the run result as JSON")
	return cmd
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	ctx, cancel := signalContext(logger)
	defer cancel()

	eng, metrics, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	if metrics != nil {
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	logger.Info("starting run",
		"registry", cfg.RegistryPath,
		"store", cfg.Storage.Type,
		"concurrency", cfg.Aggregator.MaxConcurrency,
		"dry_run", dryRun,
	)

	res, err := eng.Run(ctx, engine.RunOptions{DryRun: dryRun})
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	s := res.Summary
	rejected := 0
	for _, n := range s.Rejected {
		rejected += n
	}
	fmt.Printf("\nRun complete in %s\n", res.Duration.Round(time.Millisecond))
	fmt.Printf("   Sources:    %d tasks, %d failed\n", res.Report.Tasks, res.Report.Failed+res.Report.Panicked)
	fmt.Printf("   Candidates: %d found, %d rejected\n", s.Candidates, rejected)
	for reason, n := range s.Rejected {
		fmt.Printf("               %s: %d\n", reason, n)
	}
	fmt.Printf("   Rewritten:  %d (%d fallback)\n", s.Rewritten, s.Fallbacks)
	if s.DryRun {
		fmt.Printf("   Dry run:    %d posts would be published\n", len(s.Posts))
	} else {
		fmt.Printf("   Published:  %d\n", s.Published)
	}
	return nil
}

// scrapeCmd creates the "scrape" subcommand: aggregation only, candidates
// printed as JSON.
func scrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Aggregate all sources and print the candidates without publishing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.Logging)

			ctx, cancel := signalContext(logger)
			defer cancel()

			eng, _, err := buildEngine(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer eng.Close()

			articles, report, err := eng.Scrape(ctx, engine.RunOptions{})
			if err != nil {
				return err
			}
			logger.Info("scrape complete",
				"tasks", report.Tasks,
				"failed", report.Failed+report.Panicked,
				"articles", len(articles),
				"duration", report.Duration,
			)

			enc := json.NewEncoder(os.Stdout)
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(articles)
		},
	}
}
