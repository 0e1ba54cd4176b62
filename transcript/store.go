package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"chanscribe/storage"
	"chanscribe/types"
)

// Store persists a finished transcript and returns the key or path it
// was written to.
type Store interface {
	Save(ctx context.Context, t *types.Transcript) (string, error)
}

// S3Store writes transcripts as JSON objects under a prefix in the
// staging bucket, where the embedding consumer picks them up.
type S3Store struct {
	client *storage.S3
	prefix string
}

// NewS3Store creates a transcript store on top of an S3 wrapper.
func NewS3Store(client *storage.S3, prefix string) *S3Store {
	return &S3Store{client: client, prefix: prefix}
}

// Save marshals the transcript and uploads it as a single object.
func (s *S3Store) Save(ctx context.Context, t *types.Transcript) (string, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", err
	}

	key := s.prefix + t.VideoID + ".json"
	if err := s.client.Put(ctx, key, data, "application/json"); err != nil {
		return "", fmt.Errorf("failed to upload transcript for %s: %w", t.VideoID, err)
	}
	return key, nil
}

// DirStore writes transcripts as JSON files in a local directory, for
// runs that feed a local indexer instead of object storage.
type DirStore struct {
	dir string
}

// NewDirStore creates the directory if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create transcript dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Save writes the transcript to <dir>/<video_id>.json.
func (s *DirStore) Save(ctx context.Context, t *types.Transcript) (string, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, t.VideoID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write transcript for %s: %w", t.VideoID, err)
	}
	return path, nil
}
