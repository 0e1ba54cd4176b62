package transcriber

import (
	"context"
	"log"

	"chanscribe/types"
)

// Run transcribes a video's chunks sequentially, in order. The offset
// fed to chunk n+1 is the end time of the last segment returned for
// chunk n, so timing drift introduced by the provider is absorbed
// instead of compounding; when a chunk fails or yields no segments the
// nominal chunk duration advances the offset instead.
//
// A failed chunk does not abort the video: it is recorded as a coverage
// gap and the remaining chunks continue. Only context cancellation stops
// the run early.
func Run(ctx context.Context, t ChunkTranscriber, videoID string, chunks []types.AudioChunk) ([]types.TranscriptSegment, types.CoverageReport, error) {
	coverage := types.CoverageReport{TotalChunks: len(chunks)}

	var all []types.TranscriptSegment
	offset := 0.0

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, coverage, err
		}

		segments, err := t.TranscribeChunk(ctx, chunk, offset)
		result := types.ChunkResult{Index: chunk.Index, Segments: segments, Err: err}

		if result.Failed() {
			if ctx.Err() != nil {
				return nil, coverage, ctx.Err()
			}
			log.Printf("video %s: chunk %d failed to transcribe: %v", videoID, chunk.Index, err)
			coverage.FailedChunks = append(coverage.FailedChunks, chunk.Index)
			offset += chunk.Duration
			continue
		}

		if len(segments) == 0 {
			offset += chunk.Duration
			continue
		}

		all = append(all, segments...)
		// Segments come back re-based, so the last end is already
		// absolute within the video.
		offset = segments[len(segments)-1].End
	}

	return all, coverage, nil
}
