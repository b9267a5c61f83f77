package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/skatefeed/internal/config"
)

var (
	cfgFile      string
	verbose      bool
	logFormat    string
	registryPath string
	storageType  string
	storagePath  string
	fetcherType  string
	concurrent   int
	noAI         bool
	natsURL      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "skatefeed",
		Short: "skatefeed aggregates skateboarding news, videos and posts",
		Long: `skatefeed collects skateboarding content from news sites, YouTube channels
and Instagram hashtags, filters and deduplicates it, rewrites it into German
and English copy and prepends the result to the site's post store.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text, json")
	rootCmd.PersistentFlags().StringVarP(&registryPath, "registry", "r", "", "source registry file (settings.json)")
	rootCmd.PersistentFlags().StringVar(&storageType, "storage", "", "post store: json, sqlite, mongo")
	rootCmd.PersistentFlags().StringVar(&storagePath, "store-path", "", "post store file path")
	rootCmd.PersistentFlags().StringVar(&fetcherType, "fetcher", "", "fetcher: http, browser")
	rootCmd.PersistentFlags().IntVarP(&concurrent, "concurrency", "n", 0, "maximum concurrent source tasks")
	rootCmd.PersistentFlags().BoolVar(&noAI, "no-ai", false, "skip the rewriting service and use fallback copy")
	rootCmd.PersistentFlags().StringVar(&natsURL, "nats-url", "", "announce published posts on this NATS server")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads, overrides and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("skatefeed %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			key := "not set"
			if cfg.AI.APIKey != "" {
				key = "set"
			}
			fmt.Printf("Registry:            %s\n", cfg.RegistryPath)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Type:              %s\n", cfg.Fetcher.Type)
			fmt.Printf("  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  TLS Insecure:      %v\n", cfg.Fetcher.TLSInsecure)
			fmt.Printf("  User Agents:       %d configured\n", len(cfg.Fetcher.UserAgents))
			fmt.Printf("\nScraper:\n")
			fmt.Printf("  Max Items:         %d\n", cfg.Scraper.MaxItems)
			fmt.Printf("  Recency:           %s\n", cfg.Scraper.Recency)
			fmt.Printf("  Min Text Length:   %d\n", cfg.Scraper.MinTextLength)
			fmt.Printf("  Max Gallery:       %d\n", cfg.Scraper.MaxGallery)
			fmt.Printf("  Concurrency:       %d\n", cfg.Aggregator.MaxConcurrency)
			fmt.Printf("\nInstagram:\n")
			fmt.Printf("  Search URL:        %s\n", cfg.Instagram.SearchURL)
			fmt.Printf("  Top:               %d of %d\n", cfg.Instagram.Top, cfg.Instagram.MaxResults)
			fmt.Printf("\nRewriting:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.AI.Enabled)
			fmt.Printf("  Provider:          %s\n", cfg.AI.Provider)
			fmt.Printf("  Model:             %s\n", cfg.AI.Model)
			fmt.Printf("  API Key:           %s\n", key)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			fmt.Printf("  Path:              %s\n", cfg.Storage.Path)
			fmt.Printf("\nNotify:\n")
			fmt.Printf("  NATS:              %s\n", orDash(cfg.Notify.NATSURL))
			fmt.Printf("  Subject:           %s\n", cfg.Notify.Subject)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// setupLogger creates a structured logger from the logging config and
// the -v flag.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if logFormat != "" {
		cfg.Logging.Format = strings.ToLower(logFormat)
	}
	if registryPath != "" {
		cfg.RegistryPath = registryPath
	}
	if storageType != "" {
		cfg.Storage.Type = strings.ToLower(storageType)
	}
	if storagePath != "" {
		cfg.Storage.Path = storagePath
	}
	if fetcherType != "" {
		cfg.Fetcher.Type = strings.ToLower(fetcherType)
	}
	if concurrent > 0 {
		cfg.Aggregator.MaxConcurrency = concurrent
	}
	if noAI {
		cfg.AI.Enabled = false
	}
	if natsURL != "" {
		cfg.Notify.NATSURL = natsURL
	}
}
