package transcript

import (
	"testing"
	"time"

	"chanscribe/types"
)

func seg(text string, start, end float64) types.TranscriptSegment {
	return types.TranscriptSegment{Text: text, Start: start, End: end}
}

func TestMergeSegmentsCoalescesSmallGap(t *testing.T) {
	// 0.2s gap at a chunk boundary: "the" and "bill" are one sentence.
	in := []types.TranscriptSegment{
		seg("the", 598, 600),
		seg("bill", 600.2, 603),
	}

	out := MergeSegments(in, 0.5)

	if len(out) != 1 {
		t.Fatalf("got %d segments, want 1", len(out))
	}
	want := seg("the bill", 598, 603)
	if out[0] != want {
		t.Errorf("merged = %+v, want %+v", out[0], want)
	}
}

func TestMergeSegmentsKeepsLargeGap(t *testing.T) {
	in := []types.TranscriptSegment{
		seg("the", 598, 600),
		seg("bill", 600.6, 603),
	}

	if out := MergeSegments(in, 0.5); len(out) != 2 {
		t.Errorf("0.6s gap must stay separate, got %d segments", len(out))
	}
}

func TestMergeSegmentsTransitive(t *testing.T) {
	// Three near-contiguous segments collapse into one.
	in := []types.TranscriptSegment{
		seg("one", 0, 2),
		seg("two", 2.1, 4),
		seg("three", 4.2, 6),
	}

	out := MergeSegments(in, 0.5)

	if len(out) != 1 {
		t.Fatalf("got %d segments, want 1", len(out))
	}
	if out[0].Text != "one two three" {
		t.Errorf("text = %q", out[0].Text)
	}
	if out[0].Start != 0 || out[0].End != 6 {
		t.Errorf("span = {%v,%v}, want {0,6}", out[0].Start, out[0].End)
	}
}

func TestMergeSegmentsSlightOverlap(t *testing.T) {
	// Providers occasionally return a start just before the previous end.
	in := []types.TranscriptSegment{
		seg("a", 0, 2),
		seg("b", 1.8, 4),
	}

	out := MergeSegments(in, 0.5)

	if len(out) != 1 {
		t.Fatalf("got %d segments, want 1", len(out))
	}
	if err := Validate(out); err != nil {
		t.Errorf("merged output violates invariant: %v", err)
	}
}

func TestMergeSegmentsEmpty(t *testing.T) {
	if out := MergeSegments(nil, 0.5); len(out) != 0 {
		t.Errorf("empty input should stay empty, got %d", len(out))
	}
}

func TestMergeBuildsTranscript(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	coverage := types.CoverageReport{TotalChunks: 2}

	tr := Merge("vid1", "https://www.youtube.com/watch?v=vid1",
		[]types.TranscriptSegment{seg("hello", 0, 2)}, coverage, now)

	if tr.VideoID != "vid1" || tr.GeneratedAt != now {
		t.Errorf("unexpected transcript header: %+v", tr)
	}
	if tr.Coverage.TotalChunks != 2 {
		t.Errorf("coverage not carried through: %+v", tr.Coverage)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      []types.TranscriptSegment
		wantErr bool
	}{
		{"valid", []types.TranscriptSegment{seg("a", 0, 2), seg("b", 3, 4)}, false},
		{"inverted span", []types.TranscriptSegment{seg("a", 2, 2)}, true},
		{"overlap", []types.TranscriptSegment{seg("a", 0, 3), seg("b", 2, 4)}, true},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
