package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/IshaanNene/skatefeed/internal/config"
	"github.com/IshaanNene/skatefeed/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeConn struct {
	subjects []string
	payloads [][]byte
	failOn   int
	flushed  bool
	closed   bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.failOn > 0 && len(f.payloads)+1 == f.failOn {
		f.payloads = append(f.payloads, nil)
		return errors.New("slow consumer")
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}
func (f *fakeConn) FlushWithContext(context.Context) error { f.flushed = true; return nil }
func (f *fakeConn) Close()                                 { f.closed = true }

func TestNewWithoutURLIsNop(t *testing.T) {
	n, err := New(config.NotifyConfig{}, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := n.(Nop); !ok {
		t.Errorf("notifier = %T, want Nop", n)
	}
	if err := n.Announce(context.Background(), []types.Post{{ID: "1"}}); err != nil {
		t.Error(err)
	}
}

func TestNATSNotifierAnnounce(t *testing.T) {
	fc := &fakeConn{}
	n := newNATSNotifier(fc, "skatefeed.posts", testLogger)

	posts := []types.Post{{ID: "2", Title: "B"}, {ID: "1", Title: "A"}}
	if err := n.Announce(context.Background(), posts); err != nil {
		t.Fatal(err)
	}
	if len(fc.payloads) != 2 || fc.subjects[0] != "skatefeed.posts" || !fc.flushed {
		t.Fatalf("published = %d flushed = %v", len(fc.payloads), fc.flushed)
	}

	var msg Message
	if err := json.Unmarshal(fc.payloads[0], &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Post.ID != "2" || msg.Source != "skatefeed" || msg.Version != "1.0" || msg.Timestamp.IsZero() {
		t.Errorf("message = %+v", msg)
	}

	n.Close()
	if !fc.closed {
		t.Error("close should close the connection")
	}
}

func TestNATSNotifierPartialFailure(t *testing.T) {
	fc := &fakeConn{failOn: 1}
	n := newNATSNotifier(fc, "s", testLogger)
	err := n.Announce(context.Background(), []types.Post{{ID: "1"}, {ID: "2"}})
	if err == nil {
		t.Fatal("expected error for failed publish")
	}
	if len(fc.subjects) != 1 {
		t.Errorf("remaining posts should still be published, got %d", len(fc.subjects))
	}
}
