// Package storage persists published posts.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IshaanNene/skatefeed/internal/config"
	"github.com/IshaanNene/skatefeed/internal/types"
)

// PostStore is the interface for all post store backends. Stores keep
// posts newest first.
type PostStore interface {
	// Posts returns every stored post, newest first.
	Posts(ctx context.Context) ([]types.Post, error)

	// Prepend stores posts ahead of the existing ones, keeping their
	// order. Posts whose title or original URL is already stored are
	// skipped. It returns the number of posts added.
	Prepend(ctx context.Context, posts []types.Post) (int, error)

	// Name returns the storage backend identifier.
	Name() string

	// Close releases resources.
	Close() error
}

// New opens the backend selected by cfg.Type.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (PostStore, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "json":
		return NewJSONStore(cfg.Path, logger)
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.Path, logger)
	case "mongo", "mongodb":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// Index answers "is this title or URL already published".
type Index struct {
	titles map[string]bool
	urls   map[string]bool
}

// NewIndex indexes posts by title and original URL.
func NewIndex(posts []types.Post) *Index {
	idx := &Index{
		titles: make(map[string]bool, len(posts)),
		urls:   make(map[string]bool, len(posts)),
	}
	for _, p := range posts {
		idx.Add(p.Title, p.OriginalURL)
	}
	return idx
}

// Has reports whether title or url is known. Empty values never match.
func (i *Index) Has(title, url string) bool {
	return (title != "" && i.titles[title]) || (url != "" && i.urls[url])
}

// Add records a title and URL.
func (i *Index) Add(title, url string) {
	if title != "" {
		i.titles[title] = true
	}
	if url != "" {
		i.urls[url] = true
	}
}

// uniqueBatch drops posts that repeat an earlier post's title or URL
// within the same batch. The first occurrence wins.
func uniqueBatch(posts []types.Post) []types.Post {
	idx := NewIndex(nil)
	out := make([]types.Post, 0, len(posts))
	for _, p := range posts {
		if idx.Has(p.Title, p.OriginalURL) {
			continue
		}
		idx.Add(p.Title, p.OriginalURL)
		out = append(out, p)
	}
	return out
}
