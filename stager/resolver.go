package stager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kkdai/youtube/v2"
)

// AudioStream is a resolved, readable audio-only stream for one video.
type AudioStream struct {
	Reader   io.ReadCloser
	MimeType string
	Bitrate  int
}

// StreamResolver turns a video id into a readable audio stream.
type StreamResolver interface {
	ResolveAudio(ctx context.Context, videoID string) (*AudioStream, error)
}

// YouTubeResolver resolves streams through the platform's player API.
type YouTubeResolver struct {
	client *youtube.Client
}

// NewYouTubeResolver creates a stream resolver.
func NewYouTubeResolver() *YouTubeResolver {
	return &YouTubeResolver{client: &youtube.Client{}}
}

// ResolveAudio enumerates the video's formats, picks the best audio-only
// one, and opens it for reading. Returns ErrNoStream when the video has
// no audio-only format and ErrSourceGone when the video itself is
// unavailable (deleted or private).
func (r *YouTubeResolver) ResolveAudio(ctx context.Context, videoID string) (*AudioStream, error) {
	video, err := r.client.GetVideoContext(ctx, videoID)
	if err != nil {
		var playability *youtube.ErrPlayabiltyStatus
		if errors.As(err, &playability) {
			return nil, fmt.Errorf("%w: %s", ErrSourceGone, playability.Reason)
		}
		return nil, fmt.Errorf("failed to resolve video %s: %w", videoID, err)
	}

	streams := make([]StreamInfo, len(video.Formats))
	for i, f := range video.Formats {
		streams[i] = StreamInfo{
			Itag:      f.ItagNo,
			MimeType:  f.MimeType,
			Bitrate:   f.Bitrate,
			AudioOnly: strings.HasPrefix(f.MimeType, "audio/"),
		}
	}

	chosen, ok := SelectAudioStream(streams)
	if !ok {
		return nil, ErrNoStream
	}

	formats := video.Formats.Itag(chosen.Itag)
	if len(formats) == 0 {
		return nil, ErrNoStream
	}

	reader, _, err := r.client.GetStreamContext(ctx, video, &formats[0])
	if err != nil {
		return nil, fmt.Errorf("failed to open stream for video %s: %w", videoID, err)
	}

	return &AudioStream{
		Reader:   reader,
		MimeType: chosen.MimeType,
		Bitrate:  chosen.Bitrate,
	}, nil
}
