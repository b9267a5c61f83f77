package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IshaanNene/skatefeed/internal/config"
	"github.com/IshaanNene/skatefeed/internal/extract"
	"github.com/IshaanNene/skatefeed/internal/fetcher"
	"github.com/IshaanNene/skatefeed/internal/observability"
	"github.com/IshaanNene/skatefeed/internal/scraper"
	"github.com/IshaanNene/skatefeed/internal/types"
	"github.com/IshaanNene/skatefeed/internal/youtube"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeNews struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeNews) Scrape(_ context.Context, src types.Source) types.Result[[]types.Article] {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)

	switch src.Name {
	case "down":
		return types.Fail[[]types.Article](errors.New("connection refused"))
	case "panics":
		panic("selector exploded")
	}
	return types.Ok([]types.Article{{Title: src.Name, Source: src.Name}})
}

type fakeChannels struct{}

func (fakeChannels) Latest(_ context.Context, ch types.Channel) types.Result[*types.Video] {
	if ch.ID == "empty" {
		return types.Fail[*types.Video](types.ErrNoEntries)
	}
	return types.Ok(&types.Video{Title: "video " + ch.Name, VideoID: ch.ID, Link: "https://www.youtube.com/watch?v=" + ch.ID, Channel: ch.Name})
}

type fakeHashtags struct{}

func (fakeHashtags) Lookup(_ context.Context, tag string) types.Result[[]types.InstaPost] {
	var posts []types.InstaPost
	for i := 0; i < 5; i++ {
		posts = append(posts, types.InstaPost{URL: fmt.Sprintf("https://www.instagram.com/reel/%s%d/", tag, i), Type: "reel", Caption: "clip", Hashtag: tag})
	}
	return types.Ok(posts)
}

func TestAggregateAll(t *testing.T) {
	news := &fakeNews{}
	metrics := observability.NewMetrics(testLogger)
	a := New(news, fakeChannels{}, fakeHashtags{}, config.AggregatorConfig{MaxConcurrency: 2}, 3, metrics, testLogger)

	reg := &config.Registry{
		Sources: []types.Source{
			{Name: "one"}, {Name: "down"}, {Name: "panics"}, {Name: "two"}, {Name: "three"},
		},
		Channels: []types.Channel{{Name: "Thrasher", ID: "t1"}, {Name: "Quiet", ID: "empty"}},
		Hashtags: []string{"skate"},
	}

	articles, report := a.AggregateAll(context.Background(), reg)

	var titles []string
	for _, art := range articles {
		titles = append(titles, art.Title)
	}
	want := "one,two,three,video Thrasher,clip,clip,clip"
	if strings.Join(titles, ",") != want {
		t.Errorf("titles = %s\nwant   %s", strings.Join(titles, ","), want)
	}

	if report.Tasks != 8 || report.Succeeded != 5 || report.Failed != 2 || report.Panicked != 1 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Failures) != 3 {
		t.Errorf("failures = %+v", report.Failures)
	}
	if p := news.peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
	if articles[4].MediaType != types.MediaVideo || articles[4].Source != "Instagram #skate" {
		t.Errorf("instagram article = %+v", articles[4])
	}
}

func TestAggregateAllEmptyRegistry(t *testing.T) {
	a := New(nil, nil, nil, config.AggregatorConfig{MaxConcurrency: 4}, 3, nil, testLogger)
	articles, report := a.AggregateAll(context.Background(), &config.Registry{Sources: []types.Source{{Name: "x"}}})
	if articles == nil || len(articles) != 0 || report.Tasks != 0 {
		t.Errorf("articles = %v report = %+v", articles, report)
	}
}

func TestAggregateAllEndToEnd(t *testing.T) {
	now := time.Now()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed":
			fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>N</title>
			<item><title>Old</title><link>%[1]s/old</link><pubDate>%[2]s</pubDate></item>
			<item><title>Fresh</title><link>%[1]s/fresh</link><pubDate>%[3]s</pubDate></item>
			</channel></rss>`, srv.URL,
				now.Add(-9*24*time.Hour).Format(time.RFC1123Z),
				now.Add(-time.Hour).Format(time.RFC1123Z))
		case "/fresh":
			fmt.Fprintf(w, `<html><head><meta property="og:image" content="https://img.example.com/a.jpg"></head>
			<body><article><p>%s</p></article></body></html>`, strings.Repeat("y", 150))
		case "/yt":
			w.Write([]byte(`<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"><title>Q</title></feed>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.YouTube.FeedBaseURL = srv.URL + "/yt"
	hf, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	sc := scraper.New(hf, extract.New(hf, cfg.Scraper, testLogger), cfg.Scraper, testLogger)
	yt := youtube.New(hf, cfg.YouTube, testLogger)
	a := New(sc, yt, nil, cfg.Aggregator, cfg.Instagram.Top, nil, testLogger)

	reg := &config.Registry{
		Sources:  []types.Source{{Name: "News", URL: srv.URL + "/feed", Type: types.SourceRSS}},
		Channels: []types.Channel{{Name: "Quiet", ID: "UCquiet"}},
	}
	articles, report := a.AggregateAll(context.Background(), reg)
	if len(articles) != 1 {
		t.Fatalf("articles = %d, want 1", len(articles))
	}
	if articles[0].MediaType != types.MediaImage || len(articles[0].Media.Images) == 0 {
		t.Errorf("article = %+v", articles[0])
	}
	if report.Failed != 1 {
		t.Errorf("empty channel feed should be reported as one failed task, report = %+v", report)
	}
}
