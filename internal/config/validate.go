package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	if cfg.Scraper.MaxItems < 1 {
		return fmt.Errorf("scraper.max_items must be >= 1, got %d", cfg.Scraper.MaxItems)
	}
	if cfg.Scraper.Recency <= 0 {
		return fmt.Errorf("scraper.recency must be > 0")
	}
	if cfg.Scraper.MinTextLength < 0 || cfg.Scraper.MinParagraphLength < 0 {
		return fmt.Errorf("scraper text length limits must be >= 0")
	}
	if cfg.Scraper.MaxGallery < 1 {
		return fmt.Errorf("scraper.max_gallery must be >= 1, got %d", cfg.Scraper.MaxGallery)
	}

	if cfg.Aggregator.MaxConcurrency < 1 || cfg.Aggregator.MaxConcurrency > 256 {
		return fmt.Errorf("aggregator.max_concurrency must be 1-256, got %d", cfg.Aggregator.MaxConcurrency)
	}

	if err := ValidateURL(cfg.YouTube.FeedBaseURL); err != nil {
		return fmt.Errorf("youtube.feed_base_url: %w", err)
	}
	if err := ValidateURL(cfg.Instagram.SearchURL); err != nil {
		return fmt.Errorf("instagram.search_url: %w", err)
	}
	if cfg.Instagram.MaxResults < 1 || cfg.Instagram.Top < 1 {
		return fmt.Errorf("instagram.max_results and instagram.top must be >= 1")
	}

	validProviders := map[string]bool{"openai": true, "ollama": true, "custom": true}
	if cfg.AI.Enabled && !validProviders[cfg.AI.Provider] {
		return fmt.Errorf("ai.provider must be openai/ollama/custom, got %q", cfg.AI.Provider)
	}
	if cfg.AI.Enabled && cfg.AI.Provider != "openai" && cfg.AI.Endpoint == "" {
		return fmt.Errorf("ai.endpoint is required for provider %q", cfg.AI.Provider)
	}

	switch cfg.Storage.Type {
	case "json", "sqlite":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for storage.type %q", cfg.Storage.Type)
		}
	case "mongo":
		if cfg.Storage.MongoURI == "" {
			return fmt.Errorf("storage.mongo_uri is required for storage.type mongo")
		}
	default:
		return fmt.Errorf("storage.type %q is not supported (valid: json, sqlite, mongo)", cfg.Storage.Type)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.Interval < 0 {
		return fmt.Errorf("server.interval must be >= 0")
	}

	return nil
}

// ValidateURL checks if a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
