// Package notify announces newly published posts to other services.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/IshaanNene/skatefeed/internal/config"
	"github.com/IshaanNene/skatefeed/internal/types"
)

// Notifier announces published posts. Announcement failures never fail a
// run; callers log them.
type Notifier interface {
	Announce(ctx context.Context, posts []types.Post) error
	Close() error
}

// Message is the JSON payload sent for each post.
type Message struct {
	Post      types.Post `json:"post"`
	Timestamp time.Time  `json:"timestamp"`
	Source    string     `json:"source"`
	Version   string     `json:"version"`
}

// New returns a NATS notifier when a URL is configured and a no-op
// notifier otherwise.
func New(cfg config.NotifyConfig, logger *slog.Logger) (Notifier, error) {
	if cfg.NATSURL == "" {
		return Nop{}, nil
	}
	return NewNATSNotifier(cfg, logger)
}

// Nop discards announcements.
type Nop struct{}

func (Nop) Announce(context.Context, []types.Post) error { return nil }
func (Nop) Close() error                                 { return nil }

// conn is the part of *nats.Conn the notifier uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSNotifier publishes one message per post on a subject.
type NATSNotifier struct {
	conn    conn
	subject string
	logger  *slog.Logger
}

// NewNATSNotifier connects to the configured NATS server.
func NewNATSNotifier(cfg config.NotifyConfig, logger *slog.Logger) (*NATSNotifier, error) {
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("skatefeed"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newNATSNotifier(nc, cfg.Subject, logger), nil
}

func newNATSNotifier(c conn, subject string, logger *slog.Logger) *NATSNotifier {
	return &NATSNotifier{
		conn:    c,
		subject: subject,
		logger:  logger.With("component", "nats_notifier"),
	}
}

// Announce publishes every post and flushes. Individual publish failures
// are collected and returned together.
func (n *NATSNotifier) Announce(ctx context.Context, posts []types.Post) error {
	if len(posts) == 0 {
		return nil
	}
	now := time.Now()
	var errs []error
	for _, p := range posts {
		data, err := json.Marshal(Message{Post: p, Timestamp: now, Source: "skatefeed", Version: "1.0"})
		if err != nil {
			errs = append(errs, fmt.Errorf("encode post %s: %w", p.ID, err))
			continue
		}
		if err := n.conn.Publish(n.subject, data); err != nil {
			errs = append(errs, fmt.Errorf("publish post %s: %w", p.ID, err))
		}
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush: %w", err))
	}
	n.logger.Debug("posts announced", "subject", n.subject, "count", len(posts), "errors", len(errs))
	return errors.Join(errs...)
}

func (n *NATSNotifier) Close() error {
	n.conn.Close()
	return nil
}
