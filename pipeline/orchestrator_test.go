package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"chanscribe/publish"
	"chanscribe/stager"
	"chanscribe/types"
)

type fakeCatalog struct {
	videos []types.CatalogVideo
	err    error
}

func (f *fakeCatalog) ListRecentVideos(ctx context.Context, maxResults int) ([]types.CatalogVideo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.videos, nil
}

// memLedger is an in-memory Ledger used across the orchestrator tests.
type memLedger struct {
	mu   sync.Mutex
	rows map[string]*types.VideoRecord
}

func newMemLedger() *memLedger {
	return &memLedger{rows: make(map[string]*types.VideoRecord)}
}

func (l *memLedger) KnownIDs(ctx context.Context) (map[string]bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make(map[string]bool, len(l.rows))
	for id := range l.rows {
		ids[id] = true
	}
	return ids, nil
}

func (l *memLedger) Unprocessed(ctx context.Context) ([]types.VideoRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []types.VideoRecord
	for _, r := range l.rows {
		if r.ProcessedAt == nil && !r.Skipped {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (l *memLedger) Upsert(ctx context.Context, record *types.VideoRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	clone := *record
	l.rows[record.VideoID] = &clone
	return nil
}

func (l *memLedger) MarkProcessed(ctx context.Context, videoID string, processedAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[videoID]
	if !ok {
		return fmt.Errorf("no ledger row for video %s", videoID)
	}
	row.ProcessedAt = &processedAt
	return nil
}

func (l *memLedger) row(id string) *types.VideoRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rows[id]
}

type fakeStager struct {
	mu     sync.Mutex
	calls  []string
	errFor map[string]error
}

func (f *fakeStager) Stage(ctx context.Context, videoID string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, videoID)
	f.mu.Unlock()
	if err := f.errFor[videoID]; err != nil {
		return "", err
	}
	return "videos/" + videoID + ".mp3", nil
}

func (f *fakeStager) staged(videoID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range f.calls {
		if id == videoID {
			n++
		}
	}
	return n
}

type fakeAudio struct{}

func (fakeAudio) Download(ctx context.Context, key, dstPath string) error { return nil }

type fakeSegmenter struct {
	chunks int
}

func (f *fakeSegmenter) Segment(ctx context.Context, srcPath string) ([]types.AudioChunk, func(), error) {
	chunks := make([]types.AudioChunk, f.chunks)
	for i := range chunks {
		chunks[i] = types.AudioChunk{Index: i, Offset: float64(i) * 600, Duration: 600}
	}
	return chunks, func() {}, nil
}

type stubTranscriber struct{}

func (stubTranscriber) TranscribeChunk(ctx context.Context, chunk types.AudioChunk, offset float64) ([]types.TranscriptSegment, error) {
	return []types.TranscriptSegment{
		{Text: fmt.Sprintf("chunk %d", chunk.Index), Start: offset, End: offset + chunk.Duration},
	}, nil
}

type memStore struct {
	mu    sync.Mutex
	saved map[string]*types.Transcript
}

func newMemStore() *memStore { return &memStore{saved: make(map[string]*types.Transcript)} }

func (s *memStore) Save(ctx context.Context, t *types.Transcript) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *t
	s.saved[t.VideoID] = &clone
	return "transcripts/" + t.VideoID + ".json", nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []publish.TranscriptReady
}

func (p *memPublisher) TranscriptReady(event publish.TranscriptReady) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func testDeps(cat *fakeCatalog, led *memLedger, stg *fakeStager, store *memStore) Deps {
	return Deps{
		Catalog:     cat,
		Ledger:      led,
		Stager:      stg,
		Audio:       fakeAudio{},
		Segmenter:   &fakeSegmenter{chunks: 2},
		Transcriber: stubTranscriber{},
		Store:       store,
		MaxVideos:   50,
		Workers:     2,
	}
}

func TestRunProcessesOnlyNewVideos(t *testing.T) {
	// Channel lists A and B; A is already processed. Only B should move
	// through the pipeline, and afterwards both rows are processed.
	led := newMemLedger()
	processed := time.Now().UTC()
	led.rows["A"] = &types.VideoRecord{
		VideoID: "A", StorageKey: "videos/A.mp3", ProcessedAt: &processed,
	}

	cat := &fakeCatalog{videos: []types.CatalogVideo{
		{VideoID: "A", Title: "first"},
		{VideoID: "B", Title: "second"},
	}}
	stg := &fakeStager{}
	store := newMemStore()

	summary, err := New(testDeps(cat, led, stg, store)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Discovered != 1 || summary.Staged != 1 || summary.Transcribed != 1 || summary.Persisted != 1 {
		t.Errorf("summary = %+v, want one video through every stage", summary)
	}
	if stg.staged("A") != 0 {
		t.Errorf("processed video A must not be re-staged")
	}
	if _, ok := store.saved["B"]; !ok {
		t.Errorf("transcript for B not persisted")
	}
	for _, id := range []string{"A", "B"} {
		if row := led.row(id); row == nil || row.ProcessedAt == nil {
			t.Errorf("ledger row %s should be processed, got %+v", id, row)
		}
	}
}

func TestRunResumesStagedVideoAtSegmentation(t *testing.T) {
	// Crash recovery: a row with storage_key set and processed_at null
	// re-enters at segmentation, never re-staging.
	led := newMemLedger()
	led.rows["B"] = &types.VideoRecord{VideoID: "B", StorageKey: "videos/B.mp3"}

	cat := &fakeCatalog{}
	stg := &fakeStager{}
	store := newMemStore()

	summary, err := New(testDeps(cat, led, stg, store)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Resumed != 1 || summary.Persisted != 1 {
		t.Errorf("summary = %+v, want one resumed and persisted video", summary)
	}
	if summary.Staged != 0 || stg.staged("B") != 0 {
		t.Errorf("stager must not be invoked for an already-staged video")
	}
	if row := led.row("B"); row.ProcessedAt == nil {
		t.Errorf("resumed video should end processed")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	cat := &fakeCatalog{videos: []types.CatalogVideo{
		{VideoID: "A"}, {VideoID: "B"},
	}}
	led := newMemLedger()
	stg := &fakeStager{}
	store := newMemStore()
	o := New(testDeps(cat, led, stg, store))

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if second.Discovered != 0 || second.Staged != 0 || second.Persisted != 0 {
		t.Errorf("second run should be a no-op, got %+v", second)
	}
	if stg.staged("A") != 1 || stg.staged("B") != 1 {
		t.Errorf("videos staged more than once: A=%d B=%d", stg.staged("A"), stg.staged("B"))
	}
}

func TestRunIsolatesPerVideoFailures(t *testing.T) {
	cat := &fakeCatalog{videos: []types.CatalogVideo{
		{VideoID: "good"}, {VideoID: "bad"},
	}}
	led := newMemLedger()
	stg := &fakeStager{errFor: map[string]error{
		"bad": &stager.TransferError{VideoID: "bad", Err: errors.New("connection reset")},
	}}
	store := newMemStore()

	summary, err := New(testDeps(cat, led, stg, store)).Run(context.Background())
	if err != nil {
		t.Fatalf("a per-video failure must not abort the run: %v", err)
	}

	if summary.Persisted != 1 || summary.Failed != 1 {
		t.Errorf("summary = %+v, want 1 persisted and 1 failed", summary)
	}
	// The failed video stays unstaged and retryable.
	if row := led.row("bad"); row.Staged() || row.Skipped {
		t.Errorf("transfer failure should leave the row unstaged and retryable, got %+v", row)
	}
}

func TestRunMarksSourceGonePermanentlySkipped(t *testing.T) {
	cat := &fakeCatalog{videos: []types.CatalogVideo{{VideoID: "gone"}}}
	led := newMemLedger()
	stg := &fakeStager{errFor: map[string]error{
		"gone": fmt.Errorf("%w: private", stager.ErrSourceGone),
	}}
	store := newMemStore()
	deps := testDeps(cat, led, stg, store)

	if _, err := New(deps).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	row := led.row("gone")
	if row == nil || !row.Skipped {
		t.Fatalf("source-gone video should be permanently skipped, got %+v", row)
	}

	// A later run must not pick it up again.
	second, err := New(deps).Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second.Resumed != 0 || stg.staged("gone") != 1 {
		t.Errorf("skipped video was retried: %+v, stage calls %d", second, stg.staged("gone"))
	}
}

func TestRunCatalogFailureIsFatal(t *testing.T) {
	cat := &fakeCatalog{err: errors.New("quota exceeded")}
	led := newMemLedger()
	stg := &fakeStager{}

	_, err := New(testDeps(cat, led, stg, newMemStore())).Run(context.Background())
	if err == nil {
		t.Fatal("catalog failure must abort the run")
	}
	if len(stg.calls) != 0 {
		t.Errorf("no video may be touched after a catalog failure")
	}
}

func TestRunPublishesTranscriptEvents(t *testing.T) {
	cat := &fakeCatalog{videos: []types.CatalogVideo{{VideoID: "A"}}}
	led := newMemLedger()
	store := newMemStore()
	pub := &memPublisher{}

	deps := testDeps(cat, led, &fakeStager{}, store)
	deps.Publisher = pub

	if _, err := New(deps).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("got %d events, want 1", len(pub.events))
	}
	evt := pub.events[0]
	if evt.VideoID != "A" || evt.TranscriptKey != "transcripts/A.json" {
		t.Errorf("unexpected event %+v", evt)
	}
}

func TestRunTranscriptTimelineIsContinuous(t *testing.T) {
	cat := &fakeCatalog{videos: []types.CatalogVideo{{VideoID: "A"}}}
	store := newMemStore()

	deps := testDeps(cat, newMemLedger(), &fakeStager{}, store)
	deps.Segmenter = &fakeSegmenter{chunks: 3}

	if _, err := New(deps).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	tr := store.saved["A"]
	if tr == nil {
		t.Fatal("transcript not saved")
	}
	// Three 600s chunks whose stub segments abut; they coalesce into one
	// continuous span covering the whole video.
	if len(tr.Segments) != 1 {
		t.Fatalf("got %d segments, want 1 coalesced", len(tr.Segments))
	}
	if tr.Segments[0].Start != 0 || tr.Segments[0].End != 1800 {
		t.Errorf("span = {%v,%v}, want {0,1800}", tr.Segments[0].Start, tr.Segments[0].End)
	}
	if tr.VideoURL != "https://www.youtube.com/watch?v=A" {
		t.Errorf("video url = %q", tr.VideoURL)
	}
}
