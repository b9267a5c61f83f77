package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/IshaanNene/skatefeed/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS posts (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	original_url TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	doc          TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS posts_title ON posts(title);
CREATE UNIQUE INDEX IF NOT EXISTS posts_original_url ON posts(original_url);
`

// SQLiteStore keeps posts in a SQLite database. Newest first is rowid
// order, descending.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, &types.StorageError{Backend: "sqlite", Err: errors.New("path is required")}
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("create directory: %w", err)}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("open sqlite: %w", err)}
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("set busy timeout: %w", err)}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("apply schema: %w", err)}
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "sqlite_store"),
	}, nil
}

func (s *SQLiteStore) Name() string { return "sqlite" }

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Posts implements PostStore.
func (s *SQLiteStore) Posts(ctx context.Context) ([]types.Post, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT doc FROM posts ORDER BY rowid DESC")
	if err != nil {
		return nil, s.fail(fmt.Errorf("query posts: %w", err))
	}
	defer rows.Close()

	posts := []types.Post{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, s.fail(fmt.Errorf("scan post: %w", err))
		}
		var p types.Post
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, s.fail(fmt.Errorf("decode post: %w", err))
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(err)
	}
	return posts, nil
}

// Prepend implements PostStore. Posts are inserted oldest first inside one
// transaction so rowid order matches display order.
func (s *SQLiteStore) Prepend(ctx context.Context, posts []types.Post) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.fail(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO posts(id, title, original_url, created_at, doc) VALUES(?, ?, ?, ?, ?)")
	if err != nil {
		return 0, s.fail(fmt.Errorf("prepare insert: %w", err))
	}
	defer stmt.Close()

	posts = uniqueBatch(posts)
	now := time.Now().UTC().Format(time.RFC3339)
	added := 0
	for i := len(posts) - 1; i >= 0; i-- {
		p := posts[i]
		doc, err := json.Marshal(p)
		if err != nil {
			return 0, s.fail(fmt.Errorf("encode post %s: %w", p.ID, err))
		}
		res, err := stmt.ExecContext(ctx, p.ID, p.Title, p.OriginalURL, now, string(doc))
		if err != nil {
			return 0, s.fail(fmt.Errorf("insert post %s: %w", p.ID, err))
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, s.fail(fmt.Errorf("commit: %w", err))
	}
	s.logger.Debug("posts stored", "added", added)
	return added, nil
}

func (s *SQLiteStore) fail(err error) error {
	return &types.StorageError{Backend: "sqlite", Err: err}
}
