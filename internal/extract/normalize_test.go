package extract

import "testing"

func TestNormalizeURL(t *testing.T) {
	page := "https://news.example.com/blog/post/1"
	tests := []struct {
		ref  string
		want string
	}{
		{"https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"//cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"/img/a.jpg", "https://news.example.com/img/a.jpg"},
		{"a.jpg", "https://news.example.com/a.jpg"},
		{"img/a.jpg", "https://news.example.com/img/a.jpg"},
		{"../a.jpg", "https://news.example.com/a.jpg"},
		{"  ", ""},
		{"data:image/png;base64,AAAA", ""},
	}
	for _, tt := range tests {
		if got := NormalizeURL(tt.ref, page); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestNormalizeURLUsesOrigin(t *testing.T) {
	got := NormalizeURL("img/a.jpg", "https://example.com/news/x")
	if got != "https://example.com/img/a.jpg" {
		t.Errorf("NormalizeURL = %q, want https://example.com/img/a.jpg", got)
	}
}

func TestIsContentImage(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://a.example.com/photo.JPG?w=800", true},
		{"https://a.example.com/photo.avif", true},
		{"https://a.example.com/images/12345", true},
		{"https://a.example.com/wp-content/uploads/raw", true},
		{"https://a.example.com/static/12345", false},
		{"https://a.example.com/doc.pdf", false},
		{"https://a.example.com/user-avatar.png", false},
		{"https://a.example.com/site-logo.svg", false},
		{"https://a.example.com/thumb_1.jpg", false},
		{"https://a.example.com/1x1.gif", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsContentImage(tt.url); got != tt.want {
			t.Errorf("IsContentImage(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestFirstSrcsetCandidate(t *testing.T) {
	if got := firstSrcsetCandidate(" a.jpg 1x, b.jpg 2x"); got != "a.jpg" {
		t.Errorf("got %q", got)
	}
	if got := firstSrcsetCandidate(""); got != "" {
		t.Errorf("got %q", got)
	}
}
