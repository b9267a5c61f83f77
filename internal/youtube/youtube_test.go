package youtube

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/IshaanNene/skatefeed/internal/config"
	"github.com/IshaanNene/skatefeed/internal/fetcher"
	"github.com/IshaanNene/skatefeed/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const channelFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
 <title>Thrasher Magazine</title>
 <entry>
  <id>yt:video:dQw4w9WgXcQ</id>
  <yt:videoId>dQw4w9WgXcQ</yt:videoId>
  <title>Hometown Part</title>
  <link rel="alternate" href="https://www.youtube.com/watch?v=dQw4w9WgXcQ"/>
  <published>2024-06-14T10:00:00+00:00</published>
  <updated>2024-06-14T11:00:00+00:00</updated>
  <media:group>
   <media:title>Hometown Part</media:title>
   <media:description>A full part filmed over two years.</media:description>
  </media:group>
 </entry>
 <entry>
  <yt:videoId>older</yt:videoId>
  <title>Older</title>
  <published>2024-06-01T10:00:00+00:00</published>
 </entry>
</feed>`

const emptyFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"><title>Quiet</title></feed>`

func TestParseLatest(t *testing.T) {
	v, err := ParseLatest([]byte(channelFeed), types.Channel{Name: "Thrasher", ID: "UC1"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v.VideoID != "dQw4w9WgXcQ" || v.Title != "Hometown Part" {
		t.Errorf("video = %+v", v)
	}
	if v.Thumbnail != "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg" {
		t.Errorf("thumbnail = %q", v.Thumbnail)
	}
	if v.Link != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("link = %q", v.Link)
	}
	if v.Description != "A full part filmed over two years." {
		t.Errorf("description = %q", v.Description)
	}
	if v.Published.Day() != 14 || v.Channel != "Thrasher" {
		t.Errorf("published = %s channel = %q", v.Published, v.Channel)
	}

	a := v.Article()
	if a.MediaType != types.MediaVideo || a.Source != "Thrasher" || a.Media.Images[0] != v.Thumbnail {
		t.Errorf("article = %+v", a)
	}
}

func TestParseLatestFallbacks(t *testing.T) {
	feed := `<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom">
	<entry><title>No ext</title><link href="https://www.youtube.com/watch?v=abc&amp;t=1"/></entry></feed>`
	v, err := ParseLatest([]byte(feed), types.Channel{Name: "C"})
	if err != nil {
		t.Fatal(err)
	}
	if v.VideoID != "abc" {
		t.Errorf("id = %q, want id from link", v.VideoID)
	}

	if _, err := ParseLatest([]byte(emptyFeed), types.Channel{}); !errors.Is(err, types.ErrNoEntries) {
		t.Errorf("err = %v, want ErrNoEntries", err)
	}
}

func TestFetchLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("channel_id") {
		case "good":
			w.Write([]byte(channelFeed))
		case "empty":
			w.Write([]byte(emptyFeed))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.YouTube.FeedBaseURL = srv.URL + "/feeds/videos.xml"
	hf, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	c := New(hf, cfg.YouTube, testLogger)

	if got := c.FeedURL("UC x"); got != srv.URL+"/feeds/videos.xml?channel_id=UC+x" {
		t.Errorf("feed url = %q", got)
	}

	videos := c.FetchLatest(context.Background(), []types.Channel{
		{Name: "Empty", ID: "empty"},
		{Name: "Missing", ID: "missing"},
		{Name: "Good", ID: "good"},
	})
	if len(videos) != 1 {
		t.Fatalf("videos = %d, want 1", len(videos))
	}
	if videos[0].Channel != "Good" {
		t.Errorf("channel = %q", videos[0].Channel)
	}
}
