package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/IshaanNene/skatefeed/internal/types"
)

// Registry is the set of sources an aggregation run reads from. It is
// loaded once per run and passed down explicitly.
type Registry struct {
	Sources  []types.Source  `mapstructure:"newsSources"       json:"newsSources"`
	Channels []types.Channel `mapstructure:"youtubeChannels"   json:"youtubeChannels"`
	Hashtags []string        `mapstructure:"instagramHashtags" json:"instagramHashtags"`
}

// LoadRegistry reads the settings file at path. JSON and YAML are both
// accepted, chosen by extension.
func LoadRegistry(path string) (*Registry, error) {
	v := viper.New()
	v.SetConfigFile(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		v.SetConfigType("yaml")
	default:
		v.SetConfigType("json")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}

	var reg Registry
	if err := v.Unmarshal(&reg); err != nil {
		return nil, fmt.Errorf("decode registry %s: %w", path, err)
	}

	reg.Normalize()
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	return &reg, nil
}

// Normalize trims values, strips leading '#' from hashtags, defaults an
// empty source type to rss and drops duplicate identities (first wins).
func (r *Registry) Normalize() {
	seenSources := make(map[string]bool, len(r.Sources))
	sources := r.Sources[:0]
	for _, src := range r.Sources {
		src.URL = strings.TrimSpace(src.URL)
		src.Name = strings.TrimSpace(src.Name)
		src.Type = types.SourceType(strings.ToLower(strings.TrimSpace(string(src.Type))))
		if src.Type == "" {
			src.Type = types.SourceRSS
		}
		if seenSources[src.URL] {
			continue
		}
		seenSources[src.URL] = true
		sources = append(sources, src)
	}
	r.Sources = sources

	seenChannels := make(map[string]bool, len(r.Channels))
	channels := r.Channels[:0]
	for _, ch := range r.Channels {
		ch.ID = strings.TrimSpace(ch.ID)
		if seenChannels[ch.ID] {
			continue
		}
		seenChannels[ch.ID] = true
		channels = append(channels, ch)
	}
	r.Channels = channels

	seenTags := make(map[string]bool, len(r.Hashtags))
	tags := r.Hashtags[:0]
	for _, tag := range r.Hashtags {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
		if tag == "" || seenTags[tag] {
			continue
		}
		seenTags[tag] = true
		tags = append(tags, tag)
	}
	r.Hashtags = tags
}

// Validate reports the first malformed entry.
func (r *Registry) Validate() error {
	for i, src := range r.Sources {
		if src.URL == "" {
			return fmt.Errorf("newsSources[%d] (%s): url is required", i, src.Name)
		}
		if err := ValidateURL(src.URL); err != nil {
			return fmt.Errorf("newsSources[%d] (%s): %w", i, src.Name, err)
		}
		if src.Type != types.SourceRSS && src.Type != types.SourceHTML {
			return fmt.Errorf("newsSources[%d] (%s): type must be rss or html, got %q", i, src.Name, src.Type)
		}
		if src.Type == types.SourceHTML && strings.TrimSpace(src.Selector) == "" {
			return fmt.Errorf("newsSources[%d] (%s): html sources need a selector", i, src.Name)
		}
	}
	for i, ch := range r.Channels {
		if ch.ID == "" {
			return fmt.Errorf("youtubeChannels[%d] (%s): id is required", i, ch.Name)
		}
	}
	return nil
}

// Empty reports whether the registry has nothing to aggregate.
func (r *Registry) Empty() bool {
	return len(r.Sources) == 0 && len(r.Channels) == 0 && len(r.Hashtags) == 0
}
