package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/skatefeed/internal/types"
)

const maxWriteAttempts = 3

// JSONStore keeps posts in a single JSON array file shared with the site.
// Entries are kept as raw JSON so fields written by other tools survive a
// rewrite. Writes go through a temp file and rename, guarded by a mutex and
// a content hash check against concurrent writers.
type JSONStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewJSONStore creates a store at path. The file need not exist yet.
func NewJSONStore(path string, logger *slog.Logger) (*JSONStore, error) {
	if path == "" {
		return nil, &types.StorageError{Backend: "json", Err: errors.New("path is required")}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &types.StorageError{Backend: "json", Err: fmt.Errorf("create directory: %w", err)}
	}
	return &JSONStore{
		path:   path,
		logger: logger.With("component", "json_store"),
	}, nil
}

func (s *JSONStore) Name() string { return "json" }

func (s *JSONStore) Close() error { return nil }

// Posts implements PostStore.
func (s *JSONStore) Posts(_ context.Context) ([]types.Post, error) {
	raws, _, err := s.read()
	if err != nil {
		return nil, err
	}
	posts := make([]types.Post, 0, len(raws))
	for i, raw := range raws {
		var p types.Post
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, s.fail(fmt.Errorf("decode post %d: %w", i, err))
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// Prepend implements PostStore.
func (s *JSONStore) Prepend(ctx context.Context, posts []types.Post) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		var added int
		added, err = s.prependOnce(posts)
		if !errors.Is(err, types.ErrVersionConflict) {
			return added, err
		}
		s.logger.Warn("post store changed during write, retrying", "attempt", attempt)
	}
	return 0, err
}

func (s *JSONStore) prependOnce(posts []types.Post) (int, error) {
	raws, version, err := s.read()
	if err != nil {
		return 0, err
	}

	idx := NewIndex(nil)
	for _, raw := range raws {
		var key struct {
			Title       string `json:"title"`
			OriginalURL string `json:"originalUrl"`
		}
		if json.Unmarshal(raw, &key) == nil {
			idx.Add(key.Title, key.OriginalURL)
		}
	}

	var fresh []json.RawMessage
	for _, p := range posts {
		if idx.Has(p.Title, p.OriginalURL) {
			continue
		}
		idx.Add(p.Title, p.OriginalURL)
		raw, err := marshalPost(p)
		if err != nil {
			return 0, s.fail(fmt.Errorf("encode post %s: %w", p.ID, err))
		}
		fresh = append(fresh, raw)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	data, err := encode(append(fresh, raws...))
	if err != nil {
		return 0, s.fail(err)
	}

	if _, current, err := s.read(); err != nil {
		return 0, err
	} else if current != version {
		return 0, s.fail(types.ErrVersionConflict)
	}

	if err := s.writeAtomic(data); err != nil {
		return 0, s.fail(err)
	}

	s.logger.Debug("posts stored", "added", len(fresh), "total", len(fresh)+len(raws))
	return len(fresh), nil
}

// read returns the raw entries and a hash of the file contents. A missing
// or empty file is an empty store.
func (s *JSONStore) read() ([]json.RawMessage, [sha256.Size]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, sha256.Sum256(nil), nil
	}
	if err != nil {
		return nil, [sha256.Size]byte{}, s.fail(fmt.Errorf("read %s: %w", s.path, err))
	}
	version := sha256.Sum256(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, version, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, version, s.fail(fmt.Errorf("decode %s: %w", s.path, err))
	}
	return raws, version, nil
}

func (s *JSONStore) writeAtomic(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func (s *JSONStore) fail(err error) error {
	return &types.StorageError{Backend: "json", Err: err}
}

// encode writes the array with 2-space indentation and without HTML
// escaping, matching the site's own writer.
func encode(raws []json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(raws); err != nil {
		return nil, fmt.Errorf("encode posts: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func marshalPost(p types.Post) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
