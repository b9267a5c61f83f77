// Package scraper turns configured news sources into candidate articles.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/skatefeed/internal/config"
	"github.com/IshaanNene/skatefeed/internal/extract"
	"github.com/IshaanNene/skatefeed/internal/fetcher"
	"github.com/IshaanNene/skatefeed/internal/types"
)

// DetailExtractor extracts the body and media of one article page.
// *extract.Extractor satisfies it.
type DetailExtractor interface {
	Extract(ctx context.Context, pageURL, selector string, render bool) extract.Detail
}

// Scraper scrapes RSS feeds and HTML listing pages.
type Scraper struct {
	fetcher   fetcher.Fetcher
	extractor DetailExtractor
	cfg       config.ScraperConfig
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithClock overrides the clock used for the recency window.
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// New creates a Scraper.
func New(f fetcher.Fetcher, ex DetailExtractor, cfg config.ScraperConfig, logger *slog.Logger, opts ...Option) *Scraper {
	s := &Scraper{
		fetcher:   f,
		extractor: ex,
		cfg:       cfg,
		logger:    logger.With("component", "scraper"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape dispatches on the source type.
func (s *Scraper) Scrape(ctx context.Context, src types.Source) types.Result[[]types.Article] {
	switch src.Type {
	case types.SourceRSS, "":
		return s.scrapeRSS(ctx, src)
	case types.SourceHTML:
		return s.scrapeHTML(ctx, src)
	default:
		return types.Fail[[]types.Article](fmt.Errorf("source %s: unknown type %q", src.Name, src.Type))
	}
}

// ScrapeRSS returns the usable articles of an RSS or Atom source. Failures
// are logged and produce an empty list.
func (s *Scraper) ScrapeRSS(ctx context.Context, src types.Source) []types.Article {
	return s.settle(src, s.scrapeRSS(ctx, src))
}

// ScrapeHTML returns the usable articles of an HTML listing source.
// Failures are logged and produce an empty list.
func (s *Scraper) ScrapeHTML(ctx context.Context, src types.Source) []types.Article {
	return s.settle(src, s.scrapeHTML(ctx, src))
}

func (s *Scraper) settle(src types.Source, res types.Result[[]types.Article]) []types.Article {
	if !res.IsOk() {
		s.logger.Warn("source failed", "source", src.Name, "url", src.URL, "error", res.Err)
	}
	return res.OrElse([]types.Article{})
}

// article builds a candidate from an extracted page, or reports false when
// the page carries too little text.
func (s *Scraper) article(src types.Source, title, link string, d extract.Detail) (types.Article, bool) {
	if len([]rune(d.Text)) < s.cfg.MinTextLength {
		return types.Article{}, false
	}
	a := types.Article{
		Title:  title,
		URL:    link,
		Text:   d.Text,
		Source: src.Name,
		Media:  types.Media{Images: d.Images, VideoURL: d.Video},
	}
	if a.Media.Images == nil {
		a.Media.Images = []string{}
	}
	switch {
	case d.Video != "":
		a.MediaType = types.MediaVideo
		a.MediaURL = d.Video
	default:
		a.MediaType = types.MediaImage
		a.MediaURL = d.Image
	}
	return a, true
}
