package transcript

import (
	"fmt"
	"time"

	"chanscribe/config"
	"chanscribe/types"
)

// Merge assembles the finished transcript from the re-based segments of
// all chunks, coalescing segments split at chunk boundaries. Gaps below
// the configured threshold are almost always sentences cut by a hard
// chunk boundary, not real pauses.
func Merge(videoID, videoURL string, segments []types.TranscriptSegment, coverage types.CoverageReport, now time.Time) types.Transcript {
	return types.Transcript{
		VideoID:     videoID,
		VideoURL:    videoURL,
		Segments:    MergeSegments(segments, config.MergeGapSeconds),
		Coverage:    coverage,
		GeneratedAt: now,
	}
}

// MergeSegments coalesces adjacent segments whose gap is below maxGap.
// Coalescing concatenates text with a single space and extends the end
// time; it is transitive, so a run of near-contiguous segments collapses
// into one. Segments are never reordered.
func MergeSegments(segments []types.TranscriptSegment, maxGap float64) []types.TranscriptSegment {
	merged := make([]types.TranscriptSegment, 0, len(segments))

	for _, s := range segments {
		if len(merged) > 0 {
			last := &merged[len(merged)-1]
			gap := s.Start - last.End
			if gap < maxGap && gap > -maxGap {
				last.Text += " " + s.Text
				last.End = s.End
				continue
			}
		}
		merged = append(merged, s)
	}

	return merged
}

// Validate checks the finished-transcript invariant: segments sorted by
// start, each start strictly before its end, and no overlap between
// neighbors.
func Validate(segments []types.TranscriptSegment) error {
	for i, s := range segments {
		if s.Start >= s.End {
			return fmt.Errorf("segment %d: start %v is not before end %v", i, s.Start, s.End)
		}
		if i > 0 && s.Start < segments[i-1].End {
			return fmt.Errorf("segment %d: overlaps previous segment ending at %v", i, segments[i-1].End)
		}
	}
	return nil
}
