package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/IshaanNene/skatefeed/internal/engine"
	"github.com/IshaanNene/skatefeed/internal/observability"
	"github.com/IshaanNene/skatefeed/internal/publish"
	"github.com/IshaanNene/skatefeed/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeEngine struct {
	runErr  error
	posts   []types.Post
	lastOpt engine.RunOptions
	runCtx  context.Context
}

func (f *fakeEngine) Run(ctx context.Context, opts engine.RunOptions) (*engine.RunResult, error) {
	f.lastOpt = opts
	f.runCtx = ctx
	if f.runErr != nil {
		return nil, f.runErr
	}
	return &engine.RunResult{Summary: publish.Summary{Candidates: 3, Published: 2, DryRun: opts.DryRun}}, nil
}

func (f *fakeEngine) Posts(context.Context) ([]types.Post, error) { return f.posts, nil }
func (f *fakeEngine) GetState() engine.State                      { return engine.StateIdle }
func (f *fakeEngine) LastRun() *engine.RunResult                  { return nil }

func serve(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Origin", "https://skate.example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := NewServer(0, &fakeEngine{}, nil, testLogger)
	rec := serve(t, s, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["version"] == "" {
		t.Errorf("body = %v", body)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestScrapeOutlivesClient(t *testing.T) {
	eng := &fakeEngine{}
	s := NewServer(0, eng, nil, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/scrape", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if eng.runCtx == nil {
		t.Fatal("engine was not run")
	}
	if err := eng.runCtx.Err(); err != nil {
		t.Errorf("run context should not follow the request, err = %v", err)
	}
}

func TestScrape(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		path   string
		status int
	}{
		{"ok", nil, "/api/scrape", http.StatusOK},
		{"dry run", nil, "/api/scrape?dry_run=true", http.StatusOK},
		{"busy", types.ErrRunInProgress, "/api/scrape", http.StatusConflict},
		{"store failure", errors.New("write post store: disk full"), "/api/scrape", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &fakeEngine{runErr: tt.err}
			s := NewServer(0, eng, nil, testLogger)
			rec := serve(t, s, http.MethodPost, tt.path)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
			if strings.Contains(tt.path, "dry_run") && !eng.lastOpt.DryRun {
				t.Error("dry_run query not passed to the engine")
			}
		})
	}
}

func TestPosts(t *testing.T) {
	eng := &fakeEngine{posts: []types.Post{{ID: "3"}, {ID: "2"}, {ID: "1"}}}
	s := NewServer(0, eng, nil, testLogger)

	rec := serve(t, s, http.MethodGet, "/api/posts?limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var posts []types.Post
	if err := json.Unmarshal(rec.Body.Bytes(), &posts); err != nil {
		t.Fatal(err)
	}
	if len(posts) != 2 || posts[0].ID != "3" {
		t.Errorf("posts = %+v", posts)
	}

	if rec := serve(t, s, http.MethodGet, "/api/posts?limit=x"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}

	empty := NewServer(0, &fakeEngine{}, nil, testLogger)
	if rec := serve(t, empty, http.MethodGet, "/api/posts"); strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("empty store body = %q", rec.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	m := observability.NewMetrics(testLogger)
	m.RecordCandidates(4)
	s := NewServer(0, &fakeEngine{}, m.Handler(), testLogger)

	rec := serve(t, s, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "skatefeed_") {
		t.Error("metrics output has no skatefeed series")
	}

	bare := NewServer(0, &fakeEngine{}, nil, testLogger)
	if rec := serve(t, bare, http.MethodGet, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("metrics without handler status = %d", rec.Code)
	}
}
