package ledger

import (
	"context"
	"time"

	"chanscribe/types"
)

// Ledger is the durable record of per-video ingestion progress. Every
// write is idempotent per video_id, so a partially completed run is
// always safe to resume.
type Ledger interface {
	// KnownIDs returns the id of every row ever inserted, regardless of
	// processing state.
	KnownIDs(ctx context.Context) (map[string]bool, error)

	// Unprocessed returns rows without a processed_at timestamp, excluding
	// permanently skipped ones. These re-enter the pipeline on each run.
	Unprocessed(ctx context.Context) ([]types.VideoRecord, error)

	// Upsert inserts or replaces the row for record.VideoID.
	Upsert(ctx context.Context, record *types.VideoRecord) error

	// MarkProcessed sets processed_at on an existing row.
	MarkProcessed(ctx context.Context, videoID string, processedAt time.Time) error
}
