package types

import "time"

// CatalogVideo is one entry from the channel listing, before it has a
// ledger row of its own.
type CatalogVideo struct {
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
}

// WatchURL returns the public watch page for the video.
func (v CatalogVideo) WatchURL() string { return WatchURL(v.VideoID) }

// WatchURL builds the public watch page URL for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// VideoRecord is the per-video ingestion ledger row. video_id is the
// primary key; rows are never deleted by the pipeline.
type VideoRecord struct {
	VideoID       string     `bson:"video_id" json:"video_id"`
	Title         string     `bson:"title" json:"title"`
	Description   string     `bson:"description,omitempty" json:"description,omitempty"`
	PublishedAt   time.Time  `bson:"published_at" json:"published_at"`
	ThumbnailURL  string     `bson:"thumbnail_url,omitempty" json:"thumbnail_url,omitempty"`
	StorageKey    string     `bson:"storage_key,omitempty" json:"storage_key,omitempty"`
	DownloadedAt  *time.Time `bson:"downloaded_at,omitempty" json:"downloaded_at,omitempty"`
	LastCheckedAt time.Time  `bson:"last_checked_at" json:"last_checked_at"`
	ProcessedAt   *time.Time `bson:"processed_at" json:"processed_at"`
	// Skipped marks a permanently unavailable source (deleted/private video).
	// Skipped rows are never picked up again.
	Skipped bool `bson:"skipped,omitempty" json:"skipped,omitempty"`
}

// Staged reports whether the audio has been durably staged.
func (r *VideoRecord) Staged() bool { return r.StorageKey != "" }

// Processed reports whether a transcript has been durably written.
func (r *VideoRecord) Processed() bool { return r.ProcessedAt != nil }

// NewVideoRecord builds a fresh ledger row from a catalog entry.
func NewVideoRecord(v CatalogVideo, now time.Time) *VideoRecord {
	return &VideoRecord{
		VideoID:       v.VideoID,
		Title:         v.Title,
		Description:   v.Description,
		PublishedAt:   v.PublishedAt,
		ThumbnailURL:  v.ThumbnailURL,
		LastCheckedAt: now,
	}
}

// AudioChunk is a time-bounded slice of one video's audio, small enough
// for a single transcription request. Chunks are ephemeral; the temp
// files live only for the duration of one pipeline run.
type AudioChunk struct {
	Index    int     // 0-based, defines chunk order
	Path     string  // local temp file
	Offset   float64 // nominal start within the full video, seconds
	Duration float64 // seconds
}

// TranscriptSegment is one timestamped span of text. Start and End are
// absolute within the full video.
type TranscriptSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ChunkResult is the explicit outcome of transcribing one chunk, so a
// failed chunk is distinguishable from one with no speech.
type ChunkResult struct {
	Index    int
	Segments []TranscriptSegment
	Err      error
}

// Failed reports whether the chunk's transcription request failed.
func (r ChunkResult) Failed() bool { return r.Err != nil }

// CoverageReport records which chunks of a video are missing from the
// transcript.
type CoverageReport struct {
	TotalChunks  int   `json:"total_chunks"`
	FailedChunks []int `json:"failed_chunks,omitempty"`
}

// Complete reports whether every chunk transcribed successfully.
func (c CoverageReport) Complete() bool { return len(c.FailedChunks) == 0 }

// Transcript is the finished, time-continuous transcript of one video.
type Transcript struct {
	VideoID     string              `json:"video_id"`
	VideoURL    string              `json:"video_url"`
	Segments    []TranscriptSegment `json:"segments"`
	Coverage    CoverageReport      `json:"coverage"`
	GeneratedAt time.Time           `json:"generated_at"`
}
