package stager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"chanscribe/storage"
)

// Staging failure taxonomy. ErrNoStream and transfer failures leave the
// ledger row unstaged so a later run retries; ErrSourceGone marks the
// video permanently skipped.
var (
	ErrNoStream   = errors.New("no audio-only stream available")
	ErrSourceGone = errors.New("source video unavailable")
)

// TransferError wraps a network or storage failure mid-transfer. The
// multipart session has already been aborted when it is returned.
type TransferError struct {
	VideoID string
	Err     error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed for video %s: %v", e.VideoID, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Stager streams a video's audio track into durable blob storage through
// a multipart session, without materializing the file in memory.
type Stager struct {
	resolver StreamResolver
	uploader storage.MultipartUploader
	prefix   string
	partSize int
}

// NewStager creates a stager writing objects under prefix with the given
// part size. partSize must be at least the storage's multipart minimum
// (5 MiB for S3).
func NewStager(resolver StreamResolver, uploader storage.MultipartUploader, prefix string, partSize int) *Stager {
	return &Stager{
		resolver: resolver,
		uploader: uploader,
		prefix:   prefix,
		partSize: partSize,
	}
}

// Stage resolves the video's audio stream and copies it to storage in
// partSize pieces. Every opened multipart session ends in Complete or
// Abort; on any failure after the session is opened, the session is
// aborted before the error is returned.
func (s *Stager) Stage(ctx context.Context, videoID string) (string, error) {
	stream, err := s.resolver.ResolveAudio(ctx, videoID)
	if err != nil {
		if errors.Is(err, ErrNoStream) || errors.Is(err, ErrSourceGone) {
			return "", err
		}
		return "", &TransferError{VideoID: videoID, Err: err}
	}
	defer stream.Reader.Close()

	key := s.prefix + videoID + ".mp3"

	uploadID, err := s.uploader.CreateMultipart(ctx, key, stream.MimeType)
	if err != nil {
		return "", &TransferError{VideoID: videoID, Err: err}
	}

	parts, err := s.copyParts(ctx, key, uploadID, stream.Reader)
	if err != nil {
		s.abort(ctx, videoID, key, uploadID)
		return "", &TransferError{VideoID: videoID, Err: err}
	}

	if err := s.uploader.CompleteMultipart(ctx, key, uploadID, parts); err != nil {
		s.abort(ctx, videoID, key, uploadID)
		return "", &TransferError{VideoID: videoID, Err: err}
	}

	return key, nil
}

// copyParts reads the stream in partSize pieces and uploads each as a
// numbered part. The final part may be shorter.
func (s *Stager) copyParts(ctx context.Context, key, uploadID string, r io.Reader) ([]storage.CompletedPart, error) {
	var parts []storage.CompletedPart
	buf := make([]byte, s.partSize)
	partNumber := int32(1)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			etag, err := s.uploader.UploadPart(ctx, key, uploadID, partNumber, buf[:n])
			if err != nil {
				return nil, fmt.Errorf("upload part %d: %w", partNumber, err)
			}
			parts = append(parts, storage.CompletedPart{PartNumber: partNumber, ETag: etag})
			partNumber++
		}

		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read stream: %w", readErr)
		}
	}

	if len(parts) == 0 {
		return nil, errors.New("stream was empty")
	}
	return parts, nil
}

// abort runs even when ctx is already canceled; orphaned sessions accrue
// storage cost until aborted.
func (s *Stager) abort(ctx context.Context, videoID, key, uploadID string) {
	if err := s.uploader.AbortMultipart(context.WithoutCancel(ctx), key, uploadID); err != nil {
		log.Printf("failed to abort multipart upload %s for video %s: %v", uploadID, videoID, err)
	}
}
