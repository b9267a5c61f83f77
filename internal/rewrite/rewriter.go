// Package rewrite produces bilingual post copy from scraped articles.
package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IshaanNene/skatefeed/internal/config"
	"github.com/IshaanNene/skatefeed/internal/types"
)

const (
	fallbackContentRunes = 500
	promptTextRunes      = 4000
	fallbackTag          = "skateboarding"
)

const systemPrompt = `You are an editor for a German skateboarding community site. ` +
	`You rewrite news in your own words and always answer with a single JSON object.`

// Input is what the rewriting service receives.
type Input struct {
	Title  string `json:"title"`
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Output is the bilingual copy produced for one article.
type Output struct {
	DE   types.Translation `json:"de"`
	EN   types.Translation `json:"en"`
	Tags []string          `json:"tags"`
}

// Generator turns a prompt into text. *LLMClient satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Rewriter calls the rewriting service.
type Rewriter struct {
	gen      Generator
	enabled  bool
	provider string
	logger   *slog.Logger
}

// New creates a Rewriter backed by the configured LLM provider.
// A provider without credentials leaves the rewriter disabled.
func New(cfg config.AIConfig, logger *slog.Logger) *Rewriter {
	client := NewLLMClient(cfg, logger)
	enabled := cfg.Enabled
	if enabled {
		if err := client.Ready(); err != nil {
			logger.Info("rewriting service unavailable, using fallback copy",
				"provider", cfg.Provider, "reason", err)
			enabled = false
		}
	}
	return NewWithGenerator(client, enabled, cfg.Provider, logger)
}

// NewWithGenerator creates a Rewriter over any Generator.
func NewWithGenerator(gen Generator, enabled bool, provider string, logger *slog.Logger) *Rewriter {
	return &Rewriter{
		gen:      gen,
		enabled:  enabled,
		provider: provider,
		logger:   logger.With("component", "rewriter"),
	}
}

// Rewrite asks the service for German and English copy plus tags. A
// disabled service reports types.ErrNoCredentials. Callers are expected
// to use Fallback on any error.
func (r *Rewriter) Rewrite(ctx context.Context, in Input) (Output, error) {
	if !r.enabled || r.gen == nil {
		return Output{}, &types.RewriteError{Provider: r.provider, Err: types.ErrNoCredentials}
	}

	raw, err := r.gen.Generate(ctx, buildPrompt(in))
	if err != nil {
		return Output{}, &types.RewriteError{Provider: r.provider, Err: err}
	}

	out, err := parseOutput(raw)
	if err != nil {
		return Output{}, &types.RewriteError{Provider: r.provider, Err: err}
	}
	return out, nil
}

// Fallback is the deterministic copy used when the service is unavailable:
// the original title in both languages, truncated text and a generic tag.
func Fallback(in Input) Output {
	content := Truncate(in.Text, fallbackContentRunes)
	if content != in.Text {
		content += "..."
	}
	return Output{
		DE:   types.Translation{Title: in.Title, Content: content},
		EN:   types.Translation{Title: in.Title, Content: content},
		Tags: []string{fallbackTag},
	}
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func buildPrompt(in Input) string {
	return fmt.Sprintf(`Rewrite the following skateboarding article for our community site.
Return JSON with exactly these keys:
{"de":{"title":"...","content":"..."},"en":{"title":"...","content":"..."},"tags":["..."]}
- "de" is German, "en" is English.
- content is 2-4 short paragraphs separated by blank lines, no markdown.
- tags are 3-6 lowercase keywords.

Source: %s
Title: %s

Text:
%s`, in.Source, in.Title, Truncate(in.Text, promptTextRunes))
}

func parseOutput(raw string) (Output, error) {
	var out Output
	if err := json.Unmarshal([]byte(extractJSON(raw)), &out); err != nil {
		return Output{}, fmt.Errorf("decode rewrite: %w", err)
	}
	out.DE.Title = strings.TrimSpace(out.DE.Title)
	out.EN.Title = strings.TrimSpace(out.EN.Title)
	out.DE.Content = strings.TrimSpace(out.DE.Content)
	out.EN.Content = strings.TrimSpace(out.EN.Content)
	if out.DE.Title == "" || out.EN.Title == "" || out.DE.Content == "" || out.EN.Content == "" {
		return Output{}, errors.New("rewrite is missing a title or content")
	}

	tags := out.Tags[:0]
	seen := make(map[string]bool, len(out.Tags))
	for _, tag := range out.Tags {
		tag = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(tag, "#")))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		tags = []string{fallbackTag}
	}
	out.Tags = tags
	return out, nil
}
