package types

import "time"

// MediaType classifies the primary media of an article or post.
type MediaType string

const (
	MediaVideo MediaType = "video"
	MediaImage MediaType = "image"
	MediaText  MediaType = "text"
)

// Media lists the images and video discovered for an article.
type Media struct {
	Images   []string `json:"images"`
	VideoURL string   `json:"videoUrl,omitempty"`
}

// Article is a scraped candidate awaiting validation and rewriting.
// Candidates live for a single aggregation run.
type Article struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	MediaType MediaType `json:"mediaType"`
	MediaURL  string    `json:"mediaUrl,omitempty"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Media     Media     `json:"media"`
}

// Video is the newest upload of a YouTube channel.
type Video struct {
	Title       string    `json:"title"`
	VideoID     string    `json:"videoId"`
	Link        string    `json:"link"`
	Thumbnail   string    `json:"thumbnail"`
	Published   time.Time `json:"published"`
	Description string    `json:"description,omitempty"`
	Channel     string    `json:"channel"`
}

// Article converts the video into a candidate article.
func (v Video) Article() Article {
	var images []string
	if v.Thumbnail != "" {
		images = []string{v.Thumbnail}
	}
	return Article{
		Title:     v.Title,
		URL:       v.Link,
		MediaType: MediaVideo,
		MediaURL:  v.Link,
		Text:      v.Description,
		Source:    v.Channel,
		Media:     Media{Images: images, VideoURL: v.Link},
	}
}

// InstaPost is an Instagram post recovered from search-engine snippets.
type InstaPost struct {
	URL       string `json:"url"`
	Type      string `json:"type"`
	Likes     int    `json:"likes"`
	Comments  int    `json:"comments"`
	Weight    int    `json:"weight"`
	Caption   string `json:"caption"`
	Thumbnail string `json:"thumbnail"`
	Author    string `json:"author"`
	AuthorURL string `json:"authorUrl"`
	Hashtag   string `json:"hashtag,omitempty"`
}

// Article converts the post into a candidate article. Reels are videos,
// everything else is treated as an image post.
func (p InstaPost) Article() Article {
	title := p.Caption
	if r := []rune(title); len(r) > 100 {
		title = string(r[:100])
	}
	if title == "" {
		title = "@" + p.Author + " #" + p.Hashtag
	}

	a := Article{
		Title:  title,
		URL:    p.URL,
		Text:   p.Caption,
		Source: "Instagram #" + p.Hashtag,
		Media:  Media{Images: []string{}},
	}
	if p.Thumbnail != "" {
		a.Media.Images = append(a.Media.Images, p.Thumbnail)
	}
	if p.Type == "reel" {
		a.MediaType = MediaVideo
		a.MediaURL = p.URL
		a.Media.VideoURL = p.URL
	} else {
		a.MediaType = MediaImage
		a.MediaURL = p.Thumbnail
	}
	return a
}
