package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds everything the pipeline needs, loaded from the environment.
// Clients are constructed from it in main and injected into each component.
type Config struct {
	// Catalog
	YouTubeAPIKey string // empty means the RSS feed source is used instead
	ChannelID     string
	MaxVideos     int

	// Ledger
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// Blob storage
	S3Bucket         string
	S3Region         string
	S3Profile        string
	S3UsePathStyle   bool
	AudioPrefix      string
	TranscriptPrefix string

	// Speech-to-text
	OpenAIAPIKey string
	WhisperURL   string // override for OpenAI-compatible providers

	// Local transcript copies; empty disables
	TranscriptDir string

	// Kafka hand-off to the embedding consumer; empty brokers disables
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from the environment. Only the channel, ledger
// and storage settings are required; everything else has a default or is
// optional.
func Load() (*Config, error) {
	cfg := &Config{
		YouTubeAPIKey:    os.Getenv("YOUTUBE_API_KEY"),
		ChannelID:        os.Getenv("CHANNEL_ID"),
		MongoURI:         os.Getenv("MONGODB_URI"),
		MongoDatabase:    GetEnvOrDefault("MONGODB_DB", "chanscribe"),
		MongoCollection:  GetEnvOrDefault("MONGODB_COLLECTION", "videos"),
		S3Bucket:         os.Getenv("S3_BUCKET"),
		S3Region:         os.Getenv("S3_REGION"),
		S3Profile:        os.Getenv("S3_PROFILE"),
		S3UsePathStyle:   strings.EqualFold(os.Getenv("S3_USE_PATH_STYLE"), "true"),
		AudioPrefix:      normalizePrefix(GetEnvOrDefault("S3_AUDIO_PREFIX", DefaultAudioPrefix)),
		TranscriptPrefix: normalizePrefix(GetEnvOrDefault("S3_TRANSCRIPT_PREFIX", DefaultTranscriptPrefix)),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		WhisperURL:       os.Getenv("WHISPER_BASE_URL"),
		TranscriptDir:    os.Getenv("TRANSCRIPT_DIR"),
		KafkaTopic:       GetEnvOrDefault("KAFKA_TOPIC", "transcripts.ready"),
		MaxVideos:        DefaultMaxResults,
	}

	if v := os.Getenv("MAX_VIDEOS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MAX_VIDEOS %q", v)
		}
		cfg.MaxVideos = n
	}

	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if cfg.ChannelID == "" {
		return nil, fmt.Errorf("CHANNEL_ID is required")
	}
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required")
	}
	if cfg.OpenAIAPIKey == "" && cfg.WhisperURL == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY (or WHISPER_BASE_URL) is required")
	}

	return cfg, nil
}

// GetEnvOrDefault returns the value of an environment variable or a default value
func GetEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return p + "/"
}
