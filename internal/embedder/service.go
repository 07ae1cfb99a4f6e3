// Package embedder implements the rag.Embedder capability as an HTTP client
// for the embedding service. The wire contract is POST /embed with
// {"text": ...} returning {"embedding": [...]}.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ragstack/ragserve/internal/rag"
)

// defaultTimeout bounds each embedding round trip. Embedding a single chunk
// is fast; anything slower indicates a stuck backend.
const defaultTimeout = 10 * time.Second

// Config holds the settings for constructing a Service client.
type Config struct {
	// BaseURL is the embedding service base URL (e.g. "http://localhost:3001").
	BaseURL string

	// Dimensions is the expected embedding vector size. A response of any
	// other dimension violates the index contract and fails the operation.
	Dimensions int

	// Timeout bounds each HTTP round trip. Defaults to 10s if zero.
	Timeout time.Duration
}

// Service implements rag.Embedder against the embedding service.
// It is safe for concurrent use and performs no internal retries — failures
// propagate to the caller unmodified in kind.
type Service struct {
	// baseURL is the embedding service base URL.
	baseURL string

	// dimensions is the contractual embedding vector size.
	dimensions int

	// client is the shared HTTP client with a bounded timeout.
	client *http.Client
}

// New constructs a Service from the given config.
func New(cfg *Config) (*Service, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("embedder: base URL must not be empty")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedder: dimensions must be positive")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		baseURL:    cfg.BaseURL,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// embedRequest is the JSON body sent to POST /embed.
type embedRequest struct {
	Text string `json:"text"`
}

// embedResponse is the JSON body returned from POST /embed.
type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// Embed returns the embedding vector for text. Transport failures map to
// rag.ErrRemoteUnavailable, non-2xx statuses to rag.ErrRemoteError, and a
// vector of the wrong dimension to rag.ErrSchemaViolation.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("embedder: marshal request: %w", err)
	}

	url := s.baseURL + "/embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("embedder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedder: request failed: %w: %w", rag.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	var result embedResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if decodeErr == nil && result.Error != "" {
			msg = result.Error
		}
		return nil, fmt.Errorf("embedder: %s: %w", msg, rag.ErrRemoteError)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("embedder: decode response: %w: %w", rag.ErrSchemaViolation, decodeErr)
	}

	if len(result.Embedding) != s.dimensions {
		return nil, fmt.Errorf("embedder: expected %d dimensions, got %d: %w",
			s.dimensions, len(result.Embedding), rag.ErrSchemaViolation)
	}

	return result.Embedding, nil
}
