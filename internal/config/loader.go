package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and .env.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied on top by the caller.
func Load(configPath string) (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("SKATEFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("skatefeed")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".skatefeed"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg, nil
}

// setDefaults registers default values in viper so every key is also
// reachable through the environment.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("registry_path", cfg.RegistryPath)

	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.user_agents", cfg.Fetcher.UserAgents)
	v.SetDefault("fetcher.tls_insecure", cfg.Fetcher.TLSInsecure)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.stealth", cfg.Fetcher.Stealth)
	v.SetDefault("fetcher.browser_pages", cfg.Fetcher.BrowserPages)

	v.SetDefault("scraper.max_items", cfg.Scraper.MaxItems)
	v.SetDefault("scraper.recency", cfg.Scraper.Recency)
	v.SetDefault("scraper.min_text_length", cfg.Scraper.MinTextLength)
	v.SetDefault("scraper.min_paragraph_length", cfg.Scraper.MinParagraphLength)
	v.SetDefault("scraper.max_gallery", cfg.Scraper.MaxGallery)

	v.SetDefault("aggregator.max_concurrency", cfg.Aggregator.MaxConcurrency)

	v.SetDefault("youtube.feed_base_url", cfg.YouTube.FeedBaseURL)

	v.SetDefault("instagram.search_url", cfg.Instagram.SearchURL)
	v.SetDefault("instagram.max_results", cfg.Instagram.MaxResults)
	v.SetDefault("instagram.top", cfg.Instagram.Top)

	v.SetDefault("ai.enabled", cfg.AI.Enabled)
	v.SetDefault("ai.provider", cfg.AI.Provider)
	v.SetDefault("ai.model", cfg.AI.Model)
	v.SetDefault("ai.endpoint", cfg.AI.Endpoint)
	v.SetDefault("ai.api_key", cfg.AI.APIKey)
	v.SetDefault("ai.max_tokens", cfg.AI.MaxTokens)
	v.SetDefault("ai.temperature", cfg.AI.Temperature)
	v.SetDefault("ai.timeout", cfg.AI.Timeout)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)

	v.SetDefault("notify.nats_url", cfg.Notify.NATSURL)
	v.SetDefault("notify.subject", cfg.Notify.Subject)

	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.interval", cfg.Server.Interval)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
