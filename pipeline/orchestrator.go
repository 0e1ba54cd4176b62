package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"chanscribe/catalog"
	"chanscribe/ledger"
	"chanscribe/publish"
	"chanscribe/stager"
	"chanscribe/transcriber"
	"chanscribe/transcript"
	"chanscribe/types"
)

// Stager stages a video's audio into blob storage and returns its key.
type Stager interface {
	Stage(ctx context.Context, videoID string) (string, error)
}

// Segmenter splits a local audio file into ordered chunks. cleanup
// removes the chunk working directory.
type Segmenter interface {
	Segment(ctx context.Context, srcPath string) (chunks []types.AudioChunk, cleanup func(), err error)
}

// AudioFetcher copies a staged audio object to a local file.
type AudioFetcher interface {
	Download(ctx context.Context, key, dstPath string) error
}

// Publisher announces a finished transcript to the downstream consumer.
type Publisher interface {
	TranscriptReady(event publish.TranscriptReady) error
}

// Deps are the collaborators an Orchestrator drives. Publisher may be
// nil; everything else is required.
type Deps struct {
	Catalog     catalog.Source
	Ledger      ledger.Ledger
	Stager      Stager
	Audio       AudioFetcher
	Segmenter   Segmenter
	Transcriber transcriber.ChunkTranscriber
	Store       transcript.Store
	Publisher   Publisher

	MaxVideos int
	Workers   int
}

// Summary is the operator-facing result of one run.
type Summary struct {
	RunID       string
	Discovered  int // new catalog entries given a ledger row this run
	Resumed     int // unprocessed rows from earlier runs re-entered
	Staged      int
	Transcribed int
	Persisted   int
	Failed      int
}

// Orchestrator drives each video through
// Discovered -> Staged -> Transcribed -> Persisted, persisting every
// transition so a crash at any point is recoverable on the next run.
type Orchestrator struct {
	deps Deps
}

// New creates an orchestrator.
func New(deps Deps) *Orchestrator {
	if deps.Workers <= 0 {
		deps.Workers = 1
	}
	return &Orchestrator{deps: deps}
}

// Run executes one full sync: list the catalog, diff against the ledger,
// and process new plus resumable videos in parallel workers. Catalog and
// ledger failures abort the run before any video is touched; failures
// below the video level never abort sibling videos.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()[:8]}
	d := o.deps

	log.Printf("[run %s] Fetching channel catalog...", summary.RunID)
	listing, err := d.Catalog.ListRecentVideos(ctx, d.MaxVideos)
	if err != nil {
		return summary, fmt.Errorf("catalog listing failed: %w", err)
	}
	log.Printf("[run %s] Catalog lists %d video(s)", summary.RunID, len(listing))

	known, err := d.Ledger.KnownIDs(ctx)
	if err != nil {
		return summary, fmt.Errorf("ledger read failed: %w", err)
	}

	fresh := catalog.NewVideos(listing, known)
	summary.Discovered = len(fresh)

	now := time.Now().UTC()
	work := make([]*types.VideoRecord, 0, len(fresh))
	inWork := make(map[string]bool, len(fresh))
	for _, v := range fresh {
		rec := types.NewVideoRecord(v, now)
		if err := d.Ledger.Upsert(ctx, rec); err != nil {
			return summary, fmt.Errorf("ledger write failed: %w", err)
		}
		work = append(work, rec)
		inWork[rec.VideoID] = true
	}

	// Rows staged or discovered by an earlier run but never persisted
	// re-enter the pipeline where they left off.
	resumable, err := d.Ledger.Unprocessed(ctx)
	if err != nil {
		return summary, fmt.Errorf("ledger read failed: %w", err)
	}
	for i := range resumable {
		rec := resumable[i]
		if inWork[rec.VideoID] {
			continue
		}
		inWork[rec.VideoID] = true
		work = append(work, &rec)
		summary.Resumed++
	}

	log.Printf("[run %s] %d new, %d resumed, %d total to process",
		summary.RunID, summary.Discovered, summary.Resumed, len(work))

	if len(work) == 0 {
		return summary, nil
	}

	// Bounded fan-out; each video id appears in work exactly once, so at
	// most one worker ever owns a ledger row.
	var wg sync.WaitGroup
	var mu sync.Mutex
	semaphore := make(chan struct{}, d.Workers)

	for i, rec := range work {
		wg.Add(1)
		go func(idx int, rec *types.VideoRecord) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			log.Printf("[run %s] [%d/%d] Processing %s: %s",
				summary.RunID, idx+1, len(work), rec.VideoID, rec.Title)
			outcome := o.processVideo(ctx, rec)

			mu.Lock()
			defer mu.Unlock()
			if outcome.staged {
				summary.Staged++
			}
			if outcome.transcribed {
				summary.Transcribed++
			}
			if outcome.persisted {
				summary.Persisted++
			}
			if outcome.err != nil {
				summary.Failed++
			}
		}(i, rec)
	}
	wg.Wait()

	printSummary(summary)
	return summary, nil
}

type videoOutcome struct {
	staged      bool
	transcribed bool
	persisted   bool
	err         error
}

// processVideo runs the per-video stage sequence. Each transition is
// written to the ledger before the next stage starts.
func (o *Orchestrator) processVideo(ctx context.Context, rec *types.VideoRecord) (out videoOutcome) {
	d := o.deps

	if !rec.Staged() {
		key, err := d.Stager.Stage(ctx, rec.VideoID)
		if err != nil {
			out.err = err
			switch {
			case errors.Is(err, stager.ErrSourceGone):
				log.Printf("video %s: source gone, permanently skipping: %v", rec.VideoID, err)
				rec.Skipped = true
				if uerr := d.Ledger.Upsert(ctx, rec); uerr != nil {
					log.Printf("video %s: failed to record skip: %v", rec.VideoID, uerr)
				}
			case errors.Is(err, stager.ErrNoStream):
				log.Printf("video %s: no audio-only stream, will retry next run", rec.VideoID)
			default:
				log.Printf("video %s: staging failed: %v", rec.VideoID, err)
			}
			return out
		}

		stagedAt := time.Now().UTC()
		rec.StorageKey = key
		rec.DownloadedAt = &stagedAt
		if err := d.Ledger.Upsert(ctx, rec); err != nil {
			out.err = fmt.Errorf("video %s: failed to record staged audio: %w", rec.VideoID, err)
			log.Print(out.err)
			return out
		}
		out.staged = true
		log.Printf("video %s: audio staged at %s", rec.VideoID, key)
	} else {
		log.Printf("video %s: already staged at %s, resuming at segmentation", rec.VideoID, rec.StorageKey)
	}

	localAudio, err := os.CreateTemp("", "staged-*.mp3")
	if err != nil {
		out.err = err
		return out
	}
	localAudio.Close()
	defer os.Remove(localAudio.Name())

	if err := d.Audio.Download(ctx, rec.StorageKey, localAudio.Name()); err != nil {
		out.err = fmt.Errorf("video %s: failed to fetch staged audio: %w", rec.VideoID, err)
		log.Print(out.err)
		return out
	}

	chunks, cleanup, err := d.Segmenter.Segment(ctx, localAudio.Name())
	if err != nil {
		out.err = fmt.Errorf("video %s: segmentation failed: %w", rec.VideoID, err)
		log.Print(out.err)
		return out
	}
	defer cleanup()

	segments, coverage, err := transcriber.Run(ctx, d.Transcriber, rec.VideoID, chunks)
	if err != nil {
		out.err = err
		return out
	}
	if len(segments) == 0 {
		out.err = fmt.Errorf("video %s: transcription produced no segments", rec.VideoID)
		log.Print(out.err)
		return out
	}
	out.transcribed = true
	if !coverage.Complete() {
		log.Printf("video %s: coverage gap, %d of %d chunk(s) failed: %v",
			rec.VideoID, len(coverage.FailedChunks), coverage.TotalChunks, coverage.FailedChunks)
	}

	tr := transcript.Merge(rec.VideoID, types.WatchURL(rec.VideoID), segments, coverage, time.Now().UTC())
	if err := transcript.Validate(tr.Segments); err != nil {
		log.Printf("video %s: merged transcript violates ordering: %v", rec.VideoID, err)
	}

	key, err := d.Store.Save(ctx, &tr)
	if err != nil {
		// Retryable: the row stays unprocessed and re-enters next run.
		out.err = fmt.Errorf("video %s: failed to persist transcript: %w", rec.VideoID, err)
		log.Print(out.err)
		return out
	}

	if d.Publisher != nil {
		event := publish.TranscriptReady{
			VideoID:       rec.VideoID,
			TranscriptKey: key,
			SegmentCount:  len(tr.Segments),
			Coverage:      coverage,
			GeneratedAt:   tr.GeneratedAt,
		}
		if err := d.Publisher.TranscriptReady(event); err != nil {
			// The transcript is durable; the consumer can still find it
			// by key, so a publish failure only warns.
			log.Printf("video %s: failed to publish transcript event: %v", rec.VideoID, err)
		}
	}

	if err := d.Ledger.MarkProcessed(ctx, rec.VideoID, time.Now().UTC()); err != nil {
		out.err = fmt.Errorf("video %s: failed to mark processed: %w", rec.VideoID, err)
		log.Print(out.err)
		return out
	}
	out.persisted = true
	log.Printf("video %s: transcript persisted at %s (%d segments)", rec.VideoID, key, len(tr.Segments))

	return out
}

func printSummary(s Summary) {
	log.Println("=== Sync Summary ===")
	log.Printf("Run:          %s", s.RunID)
	log.Printf("Discovered:   %d", s.Discovered)
	log.Printf("Resumed:      %d", s.Resumed)
	log.Printf("Staged:       %d", s.Staged)
	log.Printf("Transcribed:  %d", s.Transcribed)
	log.Printf("Persisted:    %d", s.Persisted)
	log.Printf("Failed:       %d", s.Failed)
	log.Println("====================")
}
