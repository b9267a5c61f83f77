package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/IshaanNene/skatefeed/internal/config"
	"github.com/IshaanNene/skatefeed/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func post(id, title, url string) types.Post {
	return types.Post{
		ID:          id,
		Title:       title,
		OriginalURL: url,
		Type:        "image",
		Tags:        []string{"skateboarding"},
		Status:      types.StatusPublished,
		Media:       types.PostMedia{Images: []string{}},
	}
}

// testPostStore runs the behaviour every backend must share.
func testPostStore(t *testing.T, s PostStore) {
	ctx := context.Background()

	posts, err := s.Posts(ctx)
	if err != nil {
		t.Fatalf("posts on empty store: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("empty store has %d posts", len(posts))
	}

	added, err := s.Prepend(ctx, []types.Post{post("2", "Second", "https://a.example.com/2"), post("1", "First", "https://a.example.com/1")})
	if err != nil || added != 2 {
		t.Fatalf("prepend = %d, %v", added, err)
	}

	added, err = s.Prepend(ctx, []types.Post{
		post("4", "Fourth", "https://a.example.com/4"),
		post("3", "First", "https://a.example.com/3"),  // duplicate title
		post("5", "Fifth", "https://a.example.com/2"),  // duplicate url
		post("6", "Fourth", "https://a.example.com/6"), // duplicate within batch
	})
	if err != nil {
		t.Fatalf("prepend: %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}

	posts, err = s.Posts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	if strings.Join(ids, ",") != "4,2,1" {
		t.Errorf("order = %v, want newest first [4 2 1]", ids)
	}
	if posts[0].Status != types.StatusPublished || posts[0].Tags[0] != "skateboarding" {
		t.Errorf("round trip lost fields: %+v", posts[0])
	}
}

func TestJSONStore(t *testing.T) {
	s, err := NewJSONStore(filepath.Join(t.TempDir(), "data", "posts.json"), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	testPostStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "posts.db"), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	testPostStore(t, s)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("SKATEFEED_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SKATEFEED_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	db := fmt.Sprintf("skatefeed_test_%d", os.Getpid())
	s, err := NewMongoStore(ctx, uri, db, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		s.client.Database(db).Drop(ctx)
		s.Close()
	}()
	testPostStore(t, s)
}

func TestJSONStoreFormatAndUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.json")
	existing := `[
  {"id": "1", "title": "Old", "originalUrl": "https://a.example.com/old", "pinned": true}
]`
	if err := os.WriteFile(path, []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewJSONStore(path, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	p := post("2", "Tricks & Tips <new>", "https://a.example.com/new")
	if _, err := s.Prepend(context.Background(), []types.Post{p}); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	out := string(data)
	if !strings.HasPrefix(out, "[\n  {\n    \"id\": \"2\",") {
		t.Errorf("file should be a 2-space indented array with the new post first:\n%s", out)
	}
	if !strings.Contains(out, `"pinned": true`) {
		t.Error("unknown fields of existing posts must survive")
	}
	if !strings.Contains(out, "Tricks & Tips <new>") {
		t.Error("titles should not be HTML-escaped")
	}
	if !strings.Contains(out, `"originalUrl": "https://a.example.com/new"`) {
		t.Error("published post field names must be preserved")
	}
}

func TestJSONStoreErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.json")
	os.WriteFile(path, []byte(`{"not": "an array"}`), 0o644)

	s, _ := NewJSONStore(path, testLogger)
	_, err := s.Posts(context.Background())
	var se *types.StorageError
	if !errors.As(err, &se) || se.Backend != "json" {
		t.Errorf("err = %v, want json StorageError", err)
	}
	if _, err := s.Prepend(context.Background(), []types.Post{post("1", "a", "b")}); err == nil {
		t.Error("prepend onto a corrupt store must fail")
	}
}

func TestJSONStoreConcurrentPrepend(t *testing.T) {
	s, _ := NewJSONStore(filepath.Join(t.TempDir(), "posts.json"), testLogger)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprint(i)
			if _, err := s.Prepend(context.Background(), []types.Post{post(id, "t"+id, "u"+id)}); err != nil {
				t.Errorf("prepend %d: %v", i, err)
			}
		}()
	}
	wg.Wait()

	posts, _ := s.Posts(context.Background())
	if len(posts) != 10 {
		t.Errorf("posts = %d, want 10 (no lost updates)", len(posts))
	}
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	for _, typ := range []string{"json", "sqlite"} {
		s, err := New(context.Background(), config.StorageConfig{Type: typ, Path: filepath.Join(dir, "p."+typ)}, testLogger)
		if err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		if s.Name() != typ {
			t.Errorf("name = %q, want %q", s.Name(), typ)
		}
		s.Close()
	}
	if _, err := New(context.Background(), config.StorageConfig{Type: "s3"}, testLogger); err == nil {
		t.Error("expected error for unknown type")
	}
}
