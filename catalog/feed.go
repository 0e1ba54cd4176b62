package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"chanscribe/types"
)

// channelFeedURL is the public per-channel Atom feed. It needs no API key
// but only exposes the most recent uploads (15 at the time of writing).
const channelFeedURL = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"

// FeedSource lists a channel's recent uploads from its public RSS feed.
// It is the fallback catalog source when no Data API key is configured.
type FeedSource struct {
	parser    *gofeed.Parser
	channelID string
}

// NewFeedSource creates an RSS catalog source for one channel.
func NewFeedSource(channelID string) *FeedSource {
	return &FeedSource{
		parser:    gofeed.NewParser(),
		channelID: channelID,
	}
}

// ListRecentVideos parses the channel feed. The feed has a single page;
// maxResults only truncates it.
func (s *FeedSource) ListRecentVideos(ctx context.Context, maxResults int) ([]types.CatalogVideo, error) {
	feedURL := fmt.Sprintf(channelFeedURL, s.channelID)

	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel feed: %w", err)
	}

	count := min(len(feed.Items), maxResults)
	videos := make([]types.CatalogVideo, 0, count)

	for _, item := range feed.Items[:count] {
		// Feed entry IDs look like "yt:video:VIDEOID".
		id := strings.TrimPrefix(item.GUID, "yt:video:")
		if id == "" {
			continue
		}

		v := types.CatalogVideo{
			VideoID:     id,
			Title:       item.Title,
			Description: item.Description,
		}
		if item.PublishedParsed != nil {
			v.PublishedAt = *item.PublishedParsed
		}
		if item.Image != nil {
			v.ThumbnailURL = item.Image.URL
		}
		videos = append(videos, v)
	}

	return videos, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
