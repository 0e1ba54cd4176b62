package catalog

import (
	"context"

	"chanscribe/types"
)

// Source lists a channel's videos in a stable, platform-provided order.
type Source interface {
	ListRecentVideos(ctx context.Context, maxResults int) ([]types.CatalogVideo, error)
}

// NewVideos returns the listing entries whose video_id is absent from the
// known set, preserving listing order. Membership is keyed by video_id
// only, so metadata changes (a retitled video) never cause re-ingestion.
func NewVideos(listing []types.CatalogVideo, known map[string]bool) []types.CatalogVideo {
	fresh := make([]types.CatalogVideo, 0, len(listing))
	seen := make(map[string]bool, len(listing))
	for _, v := range listing {
		if known[v.VideoID] || seen[v.VideoID] {
			continue
		}
		seen[v.VideoID] = true
		fresh = append(fresh, v)
	}
	return fresh
}
