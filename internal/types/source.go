package types

// SourceType selects the scraping strategy for a news source.
type SourceType string

const (
	SourceRSS  SourceType = "rss"
	SourceHTML SourceType = "html"
)

// Source is a configured news origin. Identity is URL.
type Source struct {
	Name     string     `mapstructure:"name"     json:"name"`
	URL      string     `mapstructure:"url"      json:"url"`
	Selector string     `mapstructure:"selector" json:"selector"`
	Type     SourceType `mapstructure:"type"     json:"type"`

	// Render routes this source's fetches through the headless browser
	// when one is configured.
	Render bool `mapstructure:"render" json:"render,omitempty"`
}

// Channel is a configured YouTube channel. Identity is ID.
type Channel struct {
	Name string `mapstructure:"name" json:"name"`
	ID   string `mapstructure:"id"   json:"id"`
}
