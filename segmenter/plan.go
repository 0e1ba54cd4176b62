package segmenter

// Span is one planned chunk boundary within the source audio.
type Span struct {
	Start    float64 // seconds from the beginning of the source
	Duration float64 // seconds; the final span may be shorter than max
}

// PlanChunks splits totalSeconds into contiguous, non-overlapping spans
// of at most maxSeconds each. An input no longer than maxSeconds yields
// exactly one span. Splitting is by fixed wall-clock duration, not
// silence detection, so the plan is deterministic.
func PlanChunks(totalSeconds, maxSeconds float64) []Span {
	if totalSeconds <= 0 || maxSeconds <= 0 {
		return nil
	}

	var spans []Span
	for start := 0.0; start < totalSeconds; start += maxSeconds {
		d := maxSeconds
		if start+d > totalSeconds {
			d = totalSeconds - start
		}
		spans = append(spans, Span{Start: start, Duration: d})
	}
	return spans
}
