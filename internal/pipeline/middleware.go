package pipeline

import (
	"html"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/IshaanNene/skatefeed/internal/storage"
	"github.com/IshaanNene/skatefeed/internal/types"
)

// DefaultBoilerplate lists markers of pages that did not render real
// content. They reject an article wherever they appear.
var DefaultBoilerplate = []string{
	"JavaScript is required",
	"Skip to content",
}

// InterstitialMarkers are phrases of block and consent pages. Real
// articles may quote them, so they only reject texts shorter than
// InterstitialLength.
var InterstitialMarkers = []string{
	"Enable JavaScript",
	"Access denied",
	"Please enable cookies",
}

// InterstitialLength is the rune count below which InterstitialMarkers apply.
const InterstitialLength = 500

// TrimMiddleware trims whitespace from the title, URL and text.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(a *types.Article) (*types.Article, error) {
	a.Title = strings.TrimSpace(a.Title)
	a.URL = strings.TrimSpace(a.URL)
	a.Text = strings.TrimSpace(a.Text)
	return a, nil
}

// HTMLSanitizeMiddleware strips tags and entities from titles. Feed titles
// sometimes carry markup.
type HTMLSanitizeMiddleware struct {
	stripRe *regexp.Regexp
}

func NewHTMLSanitizeMiddleware() *HTMLSanitizeMiddleware {
	return &HTMLSanitizeMiddleware{
		stripRe: regexp.MustCompile(`<[^>]*>`),
	}
}

func (m *HTMLSanitizeMiddleware) Name() string { return "html_sanitize" }

func (m *HTMLSanitizeMiddleware) Process(a *types.Article) (*types.Article, error) {
	cleaned := m.stripRe.ReplaceAllString(a.Title, "")
	cleaned = html.UnescapeString(cleaned)
	a.Title = strings.Join(strings.Fields(cleaned), " ")
	return a, nil
}

// QualityMiddleware rejects articles with missing, short or boilerplate
// text.
type QualityMiddleware struct {
	MinLength    int
	Markers      []string
	ShortMarkers []string
}

// NewQualityMiddleware creates the gate with the default markers.
func NewQualityMiddleware(minLength int) *QualityMiddleware {
	return &QualityMiddleware{
		MinLength:    minLength,
		Markers:      lowerAll(DefaultBoilerplate),
		ShortMarkers: lowerAll(InterstitialMarkers),
	}
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func (m *QualityMiddleware) Name() string { return "quality" }

func (m *QualityMiddleware) Process(a *types.Article) (*types.Article, error) {
	n := utf8.RuneCountInString(a.Text)
	if a.Text == "" || n < m.MinLength {
		return nil, nil
	}
	lower := strings.ToLower(a.Text)
	if containsAny(lower, m.Markers) {
		return nil, nil
	}
	if n < InterstitialLength && containsAny(lower, m.ShortMarkers) {
		return nil, nil
	}
	return a, nil
}

func containsAny(s string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// DedupMiddleware rejects articles whose title or URL is already
// published, or was accepted earlier in the same run.
type DedupMiddleware struct {
	mu    sync.Mutex
	index *storage.Index
}

// NewDedupMiddleware seeds the gate with the current store contents.
func NewDedupMiddleware(existing []types.Post) *DedupMiddleware {
	return &DedupMiddleware{index: storage.NewIndex(existing)}
}

func (m *DedupMiddleware) Name() string { return "duplicate" }

func (m *DedupMiddleware) Process(a *types.Article) (*types.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index.Has(a.Title, a.URL) {
		return nil, nil
	}
	m.index.Add(a.Title, a.URL)
	return a, nil
}
