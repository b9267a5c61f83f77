package scraper

import (
	"bytes"
	"context"
	"html"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/skatefeed/internal/extract"
	"github.com/IshaanNene/skatefeed/internal/fetcher"
	"github.com/IshaanNene/skatefeed/internal/types"
)

func (s *Scraper) scrapeRSS(ctx context.Context, src types.Source) types.Result[[]types.Article] {
	resp, err := fetcher.Get(ctx, s.fetcher, src.URL, src.Render)
	if err != nil {
		return types.Fail[[]types.Article](err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return types.Fail[[]types.Article](&types.ParseError{URL: src.URL, Err: err})
	}

	items := feed.Items
	if len(items) > s.cfg.MaxItems {
		items = items[:s.cfg.MaxItems]
	}

	cutoff := s.now().Add(-s.cfg.Recency)
	var fresh []*gofeed.Item
	for _, item := range items {
		if ts := itemTime(item); !ts.IsZero() && ts.Before(cutoff) {
			continue
		}
		if strings.TrimSpace(item.Link) == "" {
			continue
		}
		fresh = append(fresh, item)
	}

	slots := make([]*types.Article, len(fresh))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range fresh {
		g.Go(func() error {
			link := extract.NormalizeURL(item.Link, resp.BaseURL())
			if link == "" {
				return nil
			}
			title := strings.TrimSpace(html.UnescapeString(item.Title))
			d := s.extractor.Extract(gctx, link, src.Selector, src.Render)
			if a, ok := s.article(src, title, link, d); ok {
				slots[i] = &a
			}
			return nil
		})
	}
	_ = g.Wait()

	articles := collect(slots)
	s.logger.Debug("rss source scraped",
		"source", src.Name,
		"items", len(feed.Items),
		"fresh", len(fresh),
		"articles", len(articles),
	)
	return types.Ok(articles)
}

// itemTime is the published date, else the updated date, else zero.
func itemTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

func collect(slots []*types.Article) []types.Article {
	out := make([]types.Article, 0, len(slots))
	for _, a := range slots {
		if a != nil {
			out = append(out, *a)
		}
	}
	return out
}
