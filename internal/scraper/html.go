package scraper

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/skatefeed/internal/extract"
	"github.com/IshaanNene/skatefeed/internal/fetcher"
	"github.com/IshaanNene/skatefeed/internal/types"
)

type listingItem struct {
	title string
	link  string
}

func (s *Scraper) scrapeHTML(ctx context.Context, src types.Source) types.Result[[]types.Article] {
	if strings.TrimSpace(src.Selector) == "" {
		return types.Fail[[]types.Article](&types.ParseError{URL: src.URL, Err: errors.New("html source without selector")})
	}

	resp, err := fetcher.Get(ctx, s.fetcher, src.URL, src.Render)
	if err != nil {
		return types.Fail[[]types.Article](err)
	}
	doc, err := resp.Document()
	if err != nil {
		return types.Fail[[]types.Article](&types.ParseError{URL: src.URL, Err: err})
	}

	// The cap applies to selector matches, including those without a link.
	var items []listingItem
	doc.Find(src.Selector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= s.cfg.MaxItems {
			return false
		}
		link := extract.NormalizeURL(listingHref(sel), resp.BaseURL())
		if link == "" {
			return true
		}
		items = append(items, listingItem{title: listingTitle(sel), link: link})
		return true
	})

	slots := make([]*types.Article, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, it := range items {
		g.Go(func() error {
			d := s.extractor.Extract(gctx, it.link, src.Selector, src.Render)
			a, ok := s.article(src, it.title, it.link, d)
			if !ok {
				return nil
			}
			if a.Title == "" {
				a.Title = truncateRunes(d.Text, 80)
			}
			if d.Video == "" && d.Image == "" {
				a.MediaType = types.MediaText
			}
			slots[i] = &a
			return nil
		})
	}
	_ = g.Wait()

	articles := collect(slots)
	s.logger.Debug("html source scraped",
		"source", src.Name,
		"matches", len(items),
		"articles", len(articles),
	)
	return types.Ok(articles)
}

// listingTitle prefers a heading, then the match's own text when it is a
// link, then the first anchor's text.
func listingTitle(sel *goquery.Selection) string {
	if h := sel.Find("h1, h2, h3, h4, h5, h6").First(); h.Length() > 0 {
		if t := strings.TrimSpace(h.Text()); t != "" {
			return t
		}
	}
	if goquery.NodeName(sel) == "a" {
		return strings.TrimSpace(sel.Text())
	}
	return strings.TrimSpace(sel.Find("a").First().Text())
}

func listingHref(sel *goquery.Selection) string {
	if href, ok := sel.Find("a[href]").First().Attr("href"); ok {
		return href
	}
	href, _ := sel.Attr("href")
	return href
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
