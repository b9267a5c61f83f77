package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for skatefeed.
type Config struct {
	RegistryPath string           `mapstructure:"registry_path" yaml:"registry_path"`
	Fetcher      FetcherConfig    `mapstructure:"fetcher"       yaml:"fetcher"`
	Scraper      ScraperConfig    `mapstructure:"scraper"       yaml:"scraper"`
	Aggregator   AggregatorConfig `mapstructure:"aggregator"    yaml:"aggregator"`
	YouTube      YouTubeConfig    `mapstructure:"youtube"       yaml:"youtube"`
	Instagram    InstagramConfig  `mapstructure:"instagram"     yaml:"instagram"`
	AI           AIConfig         `mapstructure:"ai"            yaml:"ai"`
	Storage      StorageConfig    `mapstructure:"storage"       yaml:"storage"`
	Notify       NotifyConfig     `mapstructure:"notify"        yaml:"notify"`
	Server       ServerConfig     `mapstructure:"server"        yaml:"server"`
	Logging      LoggingConfig    `mapstructure:"logging"       yaml:"logging"`
	Metrics      MetricsConfig    `mapstructure:"metrics"       yaml:"metrics"`
}

// FetcherConfig controls outbound page fetches.
type FetcherConfig struct {
	Type           string        `mapstructure:"type"            yaml:"type"` // http, browser
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	UserAgents     []string      `mapstructure:"user_agents"     yaml:"user_agents"`
	TLSInsecure    bool          `mapstructure:"tls_insecure"    yaml:"tls_insecure"`
	MaxBodySize    int64         `mapstructure:"max_body_size"   yaml:"max_body_size"`
	MaxRedirects   int           `mapstructure:"max_redirects"   yaml:"max_redirects"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns"  yaml:"max_idle_conns"`
	Stealth        bool          `mapstructure:"stealth"         yaml:"stealth"`
	BrowserPages   int           `mapstructure:"browser_pages"   yaml:"browser_pages"`
}

// ScraperConfig holds the extraction limits shared by the news scrapers.
type ScraperConfig struct {
	MaxItems           int           `mapstructure:"max_items"            yaml:"max_items"`
	Recency            time.Duration `mapstructure:"recency"              yaml:"recency"`
	MinTextLength      int           `mapstructure:"min_text_length"      yaml:"min_text_length"`
	MinParagraphLength int           `mapstructure:"min_paragraph_length" yaml:"min_paragraph_length"`
	MaxGallery         int           `mapstructure:"max_gallery"          yaml:"max_gallery"`
}

// AggregatorConfig bounds the fan-out across sources.
type AggregatorConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency" yaml:"max_concurrency"`
}

// YouTubeConfig controls the channel feed fetcher.
type YouTubeConfig struct {
	FeedBaseURL string `mapstructure:"feed_base_url" yaml:"feed_base_url"`
}

// InstagramConfig controls the hashtag searcher.
type InstagramConfig struct {
	SearchURL  string `mapstructure:"search_url"  yaml:"search_url"`
	MaxResults int    `mapstructure:"max_results" yaml:"max_results"`
	Top        int    `mapstructure:"top"         yaml:"top"`
}

// AIConfig controls the rewriting service.
type AIConfig struct {
	Enabled     bool          `mapstructure:"enabled"     yaml:"enabled"`
	Provider    string        `mapstructure:"provider"    yaml:"provider"`
	Model       string        `mapstructure:"model"       yaml:"model"`
	Endpoint    string        `mapstructure:"endpoint"    yaml:"endpoint"`
	APIKey      string        `mapstructure:"api_key"     yaml:"api_key"`
	MaxTokens   int           `mapstructure:"max_tokens"  yaml:"max_tokens"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"     yaml:"timeout"`
}

// StorageConfig selects the post store backend.
type StorageConfig struct {
	Type          string `mapstructure:"type"           yaml:"type"` // json, sqlite, mongo
	Path          string `mapstructure:"path"           yaml:"path"`
	MongoURI      string `mapstructure:"mongo_uri"      yaml:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database" yaml:"mongo_database"`
}

// NotifyConfig controls announcements of newly published posts.
type NotifyConfig struct {
	NATSURL string `mapstructure:"nats_url" yaml:"nats_url"`
	Subject string `mapstructure:"subject"  yaml:"subject"`
}

// ServerConfig controls the trigger server.
type ServerConfig struct {
	Port     int           `mapstructure:"port"     yaml:"port"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RegistryPath: "./data/settings.json",
		Fetcher: FetcherConfig{
			Type:           "http",
			RequestTimeout: 20 * time.Second,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			// Some configured sources serve broken certificate chains.
			TLSInsecure:  true,
			MaxBodySize:  10 * 1024 * 1024, // 10MB
			MaxRedirects: 10,
			MaxIdleConns: 100,
			BrowserPages: 4,
		},
		Scraper: ScraperConfig{
			MaxItems:           5,
			Recency:            7 * 24 * time.Hour,
			MinTextLength:      100,
			MinParagraphLength: 20,
			MaxGallery:         10,
		},
		Aggregator: AggregatorConfig{
			MaxConcurrency: 8,
		},
		YouTube: YouTubeConfig{
			FeedBaseURL: "https://www.youtube.com/feeds/videos.xml",
		},
		Instagram: InstagramConfig{
			SearchURL:  "https://html.duckduckgo.com/html/",
			MaxResults: 6,
			Top:        3,
		},
		AI: AIConfig{
			Enabled:     true,
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			MaxTokens:   1500,
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Storage: StorageConfig{
			Type:          "json",
			Path:          "./data/posts.json",
			MongoDatabase: "skatefeed",
		},
		Notify: NotifyConfig{
			Subject: "skatefeed.posts",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
