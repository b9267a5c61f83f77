// Package youtube reads the newest upload of each configured channel from
// the public channel feeds.
package youtube

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/skatefeed/internal/config"
	"github.com/IshaanNene/skatefeed/internal/fetcher"
	"github.com/IshaanNene/skatefeed/internal/types"
)

// Client fetches channel feeds.
type Client struct {
	fetcher fetcher.Fetcher
	baseURL string
	logger  *slog.Logger
}

// New creates a Client.
func New(f fetcher.Fetcher, cfg config.YouTubeConfig, logger *slog.Logger) *Client {
	return &Client{
		fetcher: f,
		baseURL: cfg.FeedBaseURL,
		logger:  logger.With("component", "youtube"),
	}
}

// FeedURL returns the feed address of a channel.
func (c *Client) FeedURL(channelID string) string {
	return c.baseURL + "?channel_id=" + url.QueryEscape(channelID)
}

// Latest returns the newest video of ch.
func (c *Client) Latest(ctx context.Context, ch types.Channel) types.Result[*types.Video] {
	feedURL := c.FeedURL(ch.ID)
	resp, err := fetcher.Get(ctx, c.fetcher, feedURL, false)
	if err != nil {
		return types.Fail[*types.Video](err)
	}
	v, err := ParseLatest(resp.Body, ch)
	if err != nil {
		return types.Fail[*types.Video](&types.ParseError{URL: feedURL, Err: err})
	}
	return types.Ok(v)
}

// FetchLatest returns the newest video of every channel, in channel order.
// Channels that fail or have an empty feed contribute nothing.
func (c *Client) FetchLatest(ctx context.Context, channels []types.Channel) []types.Video {
	slots := make([]*types.Video, len(channels))
	g, gctx := errgroup.WithContext(ctx)
	for i, ch := range channels {
		g.Go(func() error {
			res := c.Latest(gctx, ch)
			if !res.IsOk() {
				c.logger.Warn("channel failed", "channel", ch.Name, "id", ch.ID, "error", res.Err)
				return nil
			}
			slots[i] = res.Value
			return nil
		})
	}
	_ = g.Wait()

	videos := make([]types.Video, 0, len(channels))
	for _, v := range slots {
		if v != nil {
			videos = append(videos, *v)
		}
	}
	return videos
}

// ParseLatest reads the first entry of a channel feed.
func ParseLatest(body []byte, ch types.Channel) (*types.Video, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if len(feed.Items) == 0 {
		return nil, types.ErrNoEntries
	}
	item := feed.Items[0]

	id := extValue(item, "yt", "videoId")
	if id == "" {
		id = videoIDFromLink(item.Link)
	}
	if id == "" {
		return nil, fmt.Errorf("entry %q has no video id", item.Title)
	}

	v := &types.Video{
		Title:       strings.TrimSpace(item.Title),
		VideoID:     id,
		Link:        item.Link,
		Thumbnail:   "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg",
		Description: mediaDescription(item),
		Channel:     ch.Name,
	}
	if v.Link == "" {
		v.Link = "https://www.youtube.com/watch?v=" + id
	}
	if v.Channel == "" && feed.Title != "" {
		v.Channel = feed.Title
	}
	if item.PublishedParsed != nil {
		v.Published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		v.Published = *item.UpdatedParsed
	}
	return v, nil
}

func extValue(item *gofeed.Item, ns, name string) string {
	exts, ok := item.Extensions[ns][name]
	if !ok || len(exts) == 0 {
		return ""
	}
	return strings.TrimSpace(exts[0].Value)
}

// mediaDescription reads media:group/media:description.
func mediaDescription(item *gofeed.Item) string {
	groups := item.Extensions["media"]["group"]
	if len(groups) == 0 {
		return ""
	}
	desc := groups[0].Children["description"]
	if len(desc) == 0 {
		return ""
	}
	return strings.TrimSpace(desc[0].Value)
}

func videoIDFromLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Query().Get("v")
}
