package catalog

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"chanscribe/types"
)

// youtubePageSize is the Data API maximum for playlistItems.list.
const youtubePageSize = 50

// YouTubeSource lists a channel's uploads through the YouTube Data API.
type YouTubeSource struct {
	service   *youtube.Service
	channelID string
	limiter   *rate.Limiter
}

// NewYouTubeSource creates a Data API catalog source for one channel.
func NewYouTubeSource(ctx context.Context, apiKey, channelID string) (*YouTubeSource, error) {
	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube service: %w", err)
	}

	return &YouTubeSource{
		service:   service,
		channelID: channelID,
		// One page fetch per second is well under quota and avoids bursts.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}, nil
}

// ListRecentVideos pages through the channel's uploads playlist until the
// platform reports no more pages or maxResults entries are collected.
func (s *YouTubeSource) ListRecentVideos(ctx context.Context, maxResults int) ([]types.CatalogVideo, error) {
	playlistID, err := s.uploadsPlaylistID(ctx)
	if err != nil {
		return nil, err
	}

	videos := make([]types.CatalogVideo, 0, maxResults)
	pageToken := ""

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.service.PlaylistItems.List([]string{"snippet"}).
			PlaylistId(playlistID).
			MaxResults(youtubePageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("playlistItems.list failed for playlist %s: %w", playlistID, err)
		}

		for _, item := range resp.Items {
			if item.Snippet == nil || item.Snippet.ResourceId == nil {
				continue
			}
			videos = append(videos, itemToVideo(item))
			if len(videos) >= maxResults {
				return videos, nil
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return videos, nil
		}
	}
}

// uploadsPlaylistID resolves the channel's uploads playlist.
func (s *YouTubeSource) uploadsPlaylistID(ctx context.Context) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := s.service.Channels.List([]string{"contentDetails"}).
		Id(s.channelID).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("channels.list failed for channel %s: %w", s.channelID, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].ContentDetails == nil ||
		resp.Items[0].ContentDetails.RelatedPlaylists == nil {
		return "", fmt.Errorf("channel %s has no uploads playlist", s.channelID)
	}

	return resp.Items[0].ContentDetails.RelatedPlaylists.Uploads, nil
}

func itemToVideo(item *youtube.PlaylistItem) types.CatalogVideo {
	snippet := item.Snippet

	v := types.CatalogVideo{
		VideoID:     snippet.ResourceId.VideoId,
		Title:       snippet.Title,
		Description: snippet.Description,
	}
	if t, err := time.Parse(time.RFC3339, snippet.PublishedAt); err == nil {
		v.PublishedAt = t
	}
	if snippet.Thumbnails != nil && snippet.Thumbnails.High != nil {
		v.ThumbnailURL = snippet.Thumbnails.High.Url
	}
	return v
}
