package extract

import (
	"net/url"
	"path"
	"strings"
)

// NormalizeURL turns an image, video or link reference found on pageURL
// into an absolute URL. Protocol-relative references get https and any
// other relative reference is resolved against the page origin, so
// "img/a.jpg" on https://example.com/news/x becomes
// https://example.com/img/a.jpg. Empty, data: and unparseable references
// yield "".
func NormalizeURL(ref, pageURL string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "javascript:") {
		return ""
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}

	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return ""
	}
	if strings.HasPrefix(ref, "/") {
		return base.Scheme + "://" + base.Host + ref
	}
	origin := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/"}
	return origin.ResolveReference(u).String()
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".avif": true,
}

var imageBlocklist = []string{
	"avatar", "icon", "logo", "thumb", "thumbnail", "sprite",
	"placeholder", "gravatar", "emoji", "pixel", "spacer", "1x1",
}

// IsContentImage reports whether an absolute image URL looks like article
// imagery rather than site chrome.
func IsContentImage(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	lower := strings.ToLower(rawURL)
	for _, bad := range imageBlocklist {
		if strings.Contains(lower, bad) {
			return false
		}
	}

	u, err := url.Parse(lower)
	if err != nil {
		return false
	}
	ext := path.Ext(u.Path)
	if ext == "" {
		// Extensionless CDN paths such as /images/12345.
		return strings.Contains(u.Path, "/image") || strings.Contains(u.Path, "/uploads")
	}
	return imageExtensions[ext]
}

// firstSrcsetCandidate returns the URL of the first srcset entry.
func firstSrcsetCandidate(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// isYouTubeEmbed reports whether src points at a YouTube player.
func isYouTubeEmbed(src string) bool {
	src = strings.ToLower(src)
	return strings.Contains(src, "youtube.com") ||
		strings.Contains(src, "youtube-nocookie.com") ||
		strings.Contains(src, "youtu.be")
}

// collapseSpace joins all whitespace runs into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
