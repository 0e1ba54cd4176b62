package config

import "time"

// Pipeline Constants
const (
	// MaxConcurrentVideos limits the number of videos processed simultaneously
	MaxConcurrentVideos = 2

	// ChunkDuration is the fixed wall-clock length of one audio chunk
	ChunkDuration = 10 * time.Minute

	// MinPartSize is the S3 multipart minimum part size (5 MiB)
	MinPartSize = 5 * 1024 * 1024

	// MergeGapSeconds is the maximum gap between adjacent segments that
	// still get coalesced into one
	MergeGapSeconds = 0.5

	// DefaultMaxResults caps how many catalog entries one run considers
	DefaultMaxResults = 50
)

// Transcription Constants
const (
	// WhisperModel is the speech-to-text model identifier
	WhisperModel = "whisper-1"

	// TranscribeRequestsPerMinute rate-limits speech-to-text calls
	TranscribeRequestsPerMinute = 30

	// ChunkAudioBitrate is the encoding bitrate for chunk files
	ChunkAudioBitrate = "128k"
)

// Storage Constants
const (
	// DefaultAudioPrefix is the S3 prefix for staged audio objects
	DefaultAudioPrefix = "videos/"

	// DefaultTranscriptPrefix is the S3 prefix for transcript JSON objects
	DefaultTranscriptPrefix = "transcripts/"
)
