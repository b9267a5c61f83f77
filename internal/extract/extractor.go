// Package extract pulls article body text and media out of a single
// article page.
package extract

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/skatefeed/internal/config"
	"github.com/IshaanNene/skatefeed/internal/fetcher"
	"github.com/IshaanNene/skatefeed/internal/types"
)

// Detail is what an article page yields. A failed extraction is the zero
// Detail with an empty, non-nil Images slice.
type Detail struct {
	Text   string   `json:"text"`
	Video  string   `json:"video,omitempty"`
	Image  string   `json:"image,omitempty"`
	Images []string `json:"images"`
}

// genericContainers are tried in order when the source selector matches
// nothing. "main" is the final fallback.
var genericContainers = []string{
	"article",
	".article-content",
	".post-content",
	".entry-content",
	".article-body",
	".story-body",
	".content-body",
	`[itemprop="articleBody"]`,
	".post-body",
	".news-content",
	"main",
}

const noiseSelector = `script, style, nav, header, footer, aside, ` +
	`iframe:not([src*="youtube"]), form, noscript, .ad, .ads, .advertisement, ` +
	`[class*="ad-"], .comments, #comments, .sidebar, figcaption, .caption, ` +
	`.share, .social, .related`

var imageAttrs = []string{"src", "data-src", "data-lazy-src", "data-original", "data-srcset", "srcset"}

var metaImageSelectors = []string{
	`meta[property="og:image"]`,
	`meta[name="twitter:image"]`,
	`meta[name="twitter:image:src"]`,
	`meta[property="twitter:image"]`,
}

// Extractor fetches article pages and extracts their details.
type Extractor struct {
	fetcher fetcher.Fetcher
	cfg     config.ScraperConfig
	logger  *slog.Logger
}

// New creates an Extractor.
func New(f fetcher.Fetcher, cfg config.ScraperConfig, logger *slog.Logger) *Extractor {
	return &Extractor{
		fetcher: f,
		cfg:     cfg,
		logger:  logger.With("component", "extractor"),
	}
}

// Extract fetches pageURL and returns its details. It never fails: any
// fetch or parse problem is logged and yields an empty Detail.
func (e *Extractor) Extract(ctx context.Context, pageURL, selector string, render bool) Detail {
	res := e.extract(ctx, pageURL, selector, render)
	if !res.IsOk() {
		e.logger.Warn("detail extraction failed", "url", pageURL, "error", res.Err)
		return Detail{Images: []string{}}
	}
	return res.Value
}

func (e *Extractor) extract(ctx context.Context, pageURL, selector string, render bool) types.Result[Detail] {
	resp, err := fetcher.Get(ctx, e.fetcher, pageURL, render)
	if err != nil {
		return types.Fail[Detail](err)
	}
	doc, err := resp.Document()
	if err != nil {
		return types.Fail[Detail](&types.ParseError{URL: pageURL, Err: err})
	}
	d, err := e.FromDocument(doc, resp.BaseURL(), selector)
	if err != nil {
		return types.Fail[Detail](err)
	}
	return types.Ok(d)
}

// FromDocument runs the extraction over an already parsed page.
func (e *Extractor) FromDocument(doc *goquery.Document, pageURL, selector string) (Detail, error) {
	container := findContainer(doc, selector)
	if container == nil {
		return Detail{Images: []string{}}, &types.ParseError{URL: pageURL, Selector: selector, Err: types.ErrNoContainer}
	}

	d := Detail{Images: []string{}}
	d.Video = findVideo(doc, container, pageURL)

	clean := container.Clone()
	clean.Find(noiseSelector).Remove()
	d.Text = e.collectText(clean)

	d.Image = metaImage(doc, pageURL)
	containerImages := e.containerImages(clean, pageURL)
	if d.Image == "" && len(containerImages) > 0 {
		d.Image = containerImages[0]
	}
	d.Images = gallery(d.Image, containerImages, e.cfg.MaxGallery)
	return d, nil
}

func findContainer(doc *goquery.Document, selector string) *goquery.Selection {
	if selector = strings.TrimSpace(selector); selector != "" {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			return sel
		}
	}
	for _, s := range genericContainers {
		if sel := doc.Find(s).First(); sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

// collectText joins headings and paragraphs long enough to be prose,
// falling back to the whole container text.
func (e *Extractor) collectText(container *goquery.Selection) string {
	var parts []string
	container.Find("h1, h2, h3, h4, h5, h6, p").Each(func(_ int, s *goquery.Selection) {
		text := collapseSpace(s.Text())
		if utf8.RuneCountInString(text) >= e.cfg.MinParagraphLength {
			parts = append(parts, text)
		}
	})
	if len(parts) > 0 {
		return strings.Join(parts, "\n\n")
	}
	return collapseSpace(container.Text())
}

func findVideo(doc *goquery.Document, container *goquery.Selection, pageURL string) string {
	find := func(scope *goquery.Selection) string {
		var src string
		scope.Find("iframe[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr("src")
			if isYouTubeEmbed(v) {
				src = NormalizeURL(v, pageURL)
				return false
			}
			return true
		})
		return src
	}
	if v := find(container); v != "" {
		return v
	}
	return find(doc.Selection)
}

func metaImage(doc *goquery.Document, pageURL string) string {
	for _, sel := range metaImageSelectors {
		content, ok := doc.Find(sel).First().Attr("content")
		if !ok {
			continue
		}
		if u := NormalizeURL(content, pageURL); u != "" {
			return u
		}
	}
	return ""
}

// containerImages returns every qualifying image in document order.
func (e *Extractor) containerImages(container *goquery.Selection, pageURL string) []string {
	var out []string
	container.Find("img").Each(func(_ int, img *goquery.Selection) {
		for _, attr := range imageAttrs {
			v, ok := img.Attr(attr)
			if !ok || strings.TrimSpace(v) == "" {
				continue
			}
			if strings.HasSuffix(attr, "srcset") {
				v = firstSrcsetCandidate(v)
			}
			u := NormalizeURL(v, pageURL)
			if IsContentImage(u) {
				out = append(out, u)
				return
			}
		}
	})
	return out
}

// gallery puts primary first, then the rest, without duplicates.
func gallery(primary string, images []string, limit int) []string {
	out := []string{}
	seen := make(map[string]bool)
	add := func(u string) {
		if u == "" || seen[u] || (limit > 0 && len(out) >= limit) {
			return
		}
		seen[u] = true
		out = append(out, u)
	}
	add(primary)
	for _, u := range images {
		add(u)
	}
	return out
}
