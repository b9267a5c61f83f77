package rewrite

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

	"github.com/IshaanNene/skatefeed/internal/config"
	"github.com/IshaanNene/skatefeed/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeGen struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeGen) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

const goodReply = "Sure! Here it is:\n```json\n" +
	`{"de":{"title":"Neuer Park","content":"Text {mit} Klammern"},"en":{"title":"New park","content":"Body"},"tags":["#Skatepark","berlin","skatepark",""]}` +
	"\n```"

func TestRewrite(t *testing.T) {
	gen := &fakeGen{reply: goodReply}
	r := NewWithGenerator(gen, true, "fake", testLogger)

	out, err := r.Rewrite(context.Background(), Input{Title: "New park opens", Text: "Body text", Source: "Skate News"})
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if out.DE.Title != "Neuer Park" || out.EN.Title != "New park" || out.DE.Content != "Text {mit} Klammern" {
		t.Errorf("output = %+v", out)
	}
	if strings.Join(out.Tags, ",") != "skatepark,berlin" {
		t.Errorf("tags = %v, want normalized unique tags", out.Tags)
	}
	if !strings.Contains(gen.prompt, "Title: New park opens") || !strings.Contains(gen.prompt, "Source: Skate News") {
		t.Errorf("prompt missing input:\n%s", gen.prompt)
	}
}

func TestRewriteErrors(t *testing.T) {
	tests := []struct {
		name    string
		r       *Rewriter
		noCreds bool
	}{
		{"disabled", NewWithGenerator(&fakeGen{reply: goodReply}, false, "openai", testLogger), true},
		{"service error", NewWithGenerator(&fakeGen{err: errors.New("503")}, true, "openai", testLogger), false},
		{"not json", NewWithGenerator(&fakeGen{reply: "I cannot help with that"}, true, "openai", testLogger), false},
		{"missing fields", NewWithGenerator(&fakeGen{reply: `{"de":{"title":"x"}}`}, true, "openai", testLogger), false},
		{"no api key", New(config.AIConfig{Enabled: true, Provider: "openai"}, testLogger), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.r.Rewrite(context.Background(), Input{Title: "t", Text: "x"})
			var rerr *types.RewriteError
			if !errors.As(err, &rerr) {
				t.Fatalf("err = %v, want RewriteError", err)
			}
			if got := errors.Is(err, types.ErrNoCredentials); got != tt.noCreds {
				t.Errorf("ErrNoCredentials = %v, want %v", got, tt.noCreds)
			}
		})
	}
}

func TestFallback(t *testing.T) {
	long := strings.Repeat("ä", 600)
	out := Fallback(Input{Title: "Original", Text: long})
	if out.DE.Title != "Original" || out.EN.Title != "Original" {
		t.Errorf("titles = %q / %q", out.DE.Title, out.EN.Title)
	}
	if want := strings.Repeat("ä", 500) + "..."; out.EN.Content != want {
		t.Errorf("content has %d runes, want 500 plus ellipsis", len([]rune(out.EN.Content)))
	}
	if len(out.Tags) != 1 || out.Tags[0] != "skateboarding" {
		t.Errorf("tags = %v", out.Tags)
	}

	short := Fallback(Input{Title: "T", Text: "short"})
	if short.DE.Content != "short" {
		t.Errorf("short text should be kept verbatim, got %q", short.DE.Content)
	}
}

func TestLLMClientOpenAI(t *testing.T) {
	var auth string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	c := NewLLMClient(config.AIConfig{Provider: "openai", Endpoint: srv.URL + "/v1", APIKey: "sk-test", Model: "gpt-4o-mini"}, testLogger)
	got, err := c.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if got != `{"ok":true}` {
		t.Errorf("content = %q", got)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("authorization = %q", auth)
	}
	if body["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", body["model"])
	}
}

func TestLLMClientOllamaAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/generate" {
			w.Write([]byte(`{"response":"{\"de\":{}}"}`))
			return
		}
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewLLMClient(config.AIConfig{Provider: "ollama", Endpoint: srv.URL + "/"}, testLogger)
	got, err := c.Generate(context.Background(), "p")
	if err != nil || got != `{"de":{}}` {
		t.Errorf("ollama = %q, %v", got, err)
	}

	custom := NewLLMClient(config.AIConfig{Provider: "custom", Endpoint: srv.URL + "/custom"}, testLogger)
	if _, err := custom.Generate(context.Background(), "p"); err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("err = %v, want HTTP 429", err)
	}

	if err := NewLLMClient(config.AIConfig{Provider: "ollama"}, testLogger).Ready(); !errors.Is(err, types.ErrNoCredentials) {
		t.Errorf("ollama without endpoint: %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct{ in, want string }{
		{`prefix {"a":{"b":1}} suffix`, `{"a":{"b":1}}`},
		{`{"s":"brace } in string"}`, `{"s":"brace } in string"}`},
		{`{"s":"quote \" and }"}`, `{"s":"quote \" and }"}`},
		{`no json`, `{}`},
		{`{"unterminated":`, `{}`},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
