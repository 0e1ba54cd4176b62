package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"chanscribe/config"
	"chanscribe/types"
)

const defaultBaseURL = "https://api.openai.com/v1"

// ChunkTranscriber transcribes one chunk. Returned segment timestamps
// are absolute within the full video: the provider's chunk-local times
// are shifted by offsetSeconds before being returned.
type ChunkTranscriber interface {
	TranscribeChunk(ctx context.Context, chunk types.AudioChunk, offsetSeconds float64) ([]types.TranscriptSegment, error)
}

// Client sends chunk audio to a Whisper-compatible speech-to-text
// endpoint, requesting segment-level timestamps.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	limiter    *rate.Limiter
}

// NewClient creates a transcription client. baseURL may be empty to use
// the OpenAI endpoint.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      config.WhisperModel,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/config.TranscribeRequestsPerMinute), 1),
	}
}

type whisperSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperResponse struct {
	Segments []whisperSegment `json:"segments"`
}

// TranscribeChunk uploads one chunk and re-bases the returned segment
// timestamps by offsetSeconds.
func (c *Client) TranscribeChunk(ctx context.Context, chunk types.AudioChunk, offsetSeconds float64) ([]types.TranscriptSegment, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, contentType, err := c.buildRequestBody(chunk.Path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("transcription returned status %d: %s", resp.StatusCode, snippet)
	}

	var decoded whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode transcription response: %w", err)
	}

	segments := make([]types.TranscriptSegment, 0, len(decoded.Segments))
	for _, s := range decoded.Segments {
		segments = append(segments, types.TranscriptSegment{
			Text:  strings.TrimSpace(s.Text),
			Start: s.Start + offsetSeconds,
			End:   s.End + offsetSeconds,
		})
	}
	return segments, nil
}

// buildRequestBody assembles the multipart form the provider expects:
// the chunk audio plus verbose_json with segment granularity.
func (c *Client) buildRequestBody(audioPath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}

	fields := map[string]string{
		"model":                     c.model,
		"response_format":           "verbose_json",
		"timestamp_granularities[]": "segment",
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
