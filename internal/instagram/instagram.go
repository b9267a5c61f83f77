// Package instagram finds recent Instagram posts for a hashtag by scraping
// a search engine's HTML results. Instagram itself is never contacted.
package instagram

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/skatefeed/internal/config"
	"github.com/IshaanNene/skatefeed/internal/fetcher"
	"github.com/IshaanNene/skatefeed/internal/types"
)

const (
	placeholderAuthor    = "instagram"
	placeholderAuthorURL = "https://www.instagram.com/"

	resultXPath  = `//div[contains(@class,'result__body')]`
	linkXPath    = `.//a[contains(@class,'result__a')]`
	snippetXPath = `.//*[contains(@class,'result__snippet')]`
)

var authorPattern = regexp.MustCompile(`-\s+([A-Za-z0-9._]+)\s+on\s`)

// Searcher looks up hashtag posts.
type Searcher struct {
	fetcher fetcher.Fetcher
	cfg     config.InstagramConfig
	logger  *slog.Logger
}

// New creates a Searcher.
func New(f fetcher.Fetcher, cfg config.InstagramConfig, logger *slog.Logger) *Searcher {
	return &Searcher{
		fetcher: f,
		cfg:     cfg,
		logger:  logger.With("component", "instagram"),
	}
}

// SearchURL returns the search request for a hashtag.
func (s *Searcher) SearchURL(hashtag string) string {
	q := "site:instagram.com/reel/ #" + strings.TrimPrefix(hashtag, "#")
	return s.cfg.SearchURL + "?q=" + url.QueryEscape(q)
}

// Lookup returns the posts found for hashtag. Zero usable results is an
// error (types.ErrNoResults).
func (s *Searcher) Lookup(ctx context.Context, hashtag string) types.Result[[]types.InstaPost] {
	hashtag = strings.TrimPrefix(hashtag, "#")
	searchURL := s.SearchURL(hashtag)
	resp, err := fetcher.Get(ctx, s.fetcher, searchURL, false)
	if err != nil {
		return types.Fail[[]types.InstaPost](err)
	}
	posts, err := ParseResults(resp.Body, hashtag, s.cfg.MaxResults)
	if err != nil {
		return types.Fail[[]types.InstaPost](&types.ParseError{URL: searchURL, Err: err})
	}
	return types.Ok(posts)
}

// Search is Lookup with failures logged and turned into an empty list.
func (s *Searcher) Search(ctx context.Context, hashtag string) []types.InstaPost {
	res := s.Lookup(ctx, hashtag)
	if !res.IsOk() {
		s.logger.Warn("hashtag search failed", "hashtag", hashtag, "error", res.Err)
	}
	return res.OrElse([]types.InstaPost{})
}

// ParseResults reads up to maxBlocks result blocks from a search page and
// keeps those that link to an Instagram reel or post.
func ParseResults(body []byte, hashtag string, maxBlocks int) ([]types.InstaPost, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	blocks, err := htmlquery.QueryAll(doc, resultXPath)
	if err != nil {
		return nil, err
	}
	if maxBlocks > 0 && len(blocks) > maxBlocks {
		blocks = blocks[:maxBlocks]
	}

	var posts []types.InstaPost
	for _, block := range blocks {
		link := htmlquery.FindOne(block, linkXPath)
		if link == nil {
			continue
		}
		target := UnwrapURL(htmlquery.SelectAttr(link, "href"))
		kind, ok := postKind(target)
		if !ok {
			continue
		}

		var snippet string
		if n := htmlquery.FindOne(block, snippetXPath); n != nil {
			snippet = strings.Join(strings.Fields(htmlquery.InnerText(n)), " ")
		}

		author := ExtractAuthor(snippet)
		authorURL := placeholderAuthorURL
		if author != placeholderAuthor {
			authorURL = "https://www.instagram.com/" + author + "/"
		}

		posts = append(posts, types.InstaPost{
			URL:       target,
			Type:      kind,
			Caption:   snippet,
			Author:    author,
			AuthorURL: authorURL,
			Hashtag:   hashtag,
		})
	}
	if len(posts) == 0 {
		return nil, types.ErrNoResults
	}
	return posts, nil
}

// UnwrapURL recovers the destination of a search-engine redirect link and
// drops its query and fragment.
func UnwrapURL(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	q := u.Query()
	switch {
	case q.Get("uddg") != "":
		u, err = url.Parse(q.Get("uddg"))
	case u.Path == "/url" && q.Get("q") != "":
		u, err = url.Parse(q.Get("q"))
	}
	if err != nil || u == nil {
		return ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// postKind reports "reel" or "post" for Instagram reel and post links.
func postKind(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Host)
	if host != "instagram.com" && !strings.HasSuffix(host, ".instagram.com") {
		return "", false
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) < 2 || segs[1] == "" {
		return "", false
	}
	switch segs[0] {
	case "reel":
		return "reel", true
	case "p":
		return "post", true
	}
	return "", false
}

// ExtractAuthor pulls the handle out of snippets like
// "120 likes, 4 comments - skatedude on Jan 1: ...".
func ExtractAuthor(snippet string) string {
	if m := authorPattern.FindStringSubmatch(snippet); m != nil {
		return m[1]
	}
	return placeholderAuthor
}

// Top returns the n highest weighted posts. Ties keep search order.
func Top(posts []types.InstaPost, n int) []types.InstaPost {
	sorted := slices.Clone(posts)
	slices.SortStableFunc(sorted, func(a, b types.InstaPost) int {
		return b.Weight - a.Weight
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
