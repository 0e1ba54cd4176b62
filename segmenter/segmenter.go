package segmenter

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"chanscribe/config"
	"chanscribe/types"
)

// Segmenter splits a staged audio file into fixed-duration chunks, each
// a self-contained encoded mp3 that decodes independently.
type Segmenter struct {
	maxChunk time.Duration
}

// NewSegmenter creates a segmenter with the given per-chunk duration.
func NewSegmenter(maxChunk time.Duration) *Segmenter {
	return &Segmenter{maxChunk: maxChunk}
}

// Segment splits srcPath into chunks inside a fresh temp directory and
// returns them in order. cleanup removes the directory and must be
// called on every path once the chunks are no longer needed; when err is
// non-nil the directory has already been removed and cleanup is nil.
func (s *Segmenter) Segment(ctx context.Context, srcPath string) (chunks []types.AudioChunk, cleanup func(), err error) {
	total, err := probeDuration(srcPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to probe %s: %w", srcPath, err)
	}

	spans := PlanChunks(total, s.maxChunk.Seconds())
	if len(spans) == 0 {
		return nil, nil, fmt.Errorf("audio %s has no duration", srcPath)
	}

	workDir, err := os.MkdirTemp("", "chunks-*")
	if err != nil {
		return nil, nil, err
	}
	remove := func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Printf("failed to remove chunk dir %s: %v", workDir, err)
		}
	}
	defer func() {
		if err != nil {
			remove()
		}
	}()

	log.Printf("Splitting %s into %d chunk(s)", srcPath, len(spans))

	for i, span := range spans {
		if err = ctx.Err(); err != nil {
			return nil, nil, err
		}

		chunkPath := filepath.Join(workDir, fmt.Sprintf("chunk_%03d.mp3", i))
		if err = extractChunk(srcPath, chunkPath, span); err != nil {
			return nil, nil, fmt.Errorf("failed to extract chunk %d: %w", i, err)
		}

		chunks = append(chunks, types.AudioChunk{
			Index:    i,
			Path:     chunkPath,
			Offset:   span.Start,
			Duration: span.Duration,
		})
	}

	return chunks, remove, nil
}

// extractChunk re-encodes one span to mp3 so the chunk carries its own
// framing instead of being a raw byte slice of the source container.
func extractChunk(srcPath, dstPath string, span Span) error {
	return ffmpeg.Input(srcPath, ffmpeg.KwArgs{"ss": formatSeconds(span.Start)}).
		Output(dstPath, ffmpeg.KwArgs{
			"t":      formatSeconds(span.Duration),
			"acodec": "libmp3lame",
			"ab":     config.ChunkAudioBitrate,
		}).
		OverWriteOutput().
		Run()
}

// probeDuration reads the container duration in seconds via ffprobe.
func probeDuration(path string) (float64, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, err
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(out), &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable duration %q: %w", probe.Format.Duration, err)
	}
	return seconds, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
