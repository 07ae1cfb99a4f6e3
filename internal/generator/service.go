// Package generator implements the rag.Generator capability as an HTTP
// client for the text-generation service. The wire contract is POST
// /generate with {"prompt": ..., "max_tokens": ...} returning
// {"response": ...}.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ragstack/ragserve/internal/rag"
)

// defaultTimeout bounds each generation round trip. Generation is the
// slowest remote call in the pipeline, so the default is generous.
const defaultTimeout = 60 * time.Second

// Config holds the settings for constructing a Service client.
type Config struct {
	// BaseURL is the generation service base URL (e.g. "http://localhost:3000").
	BaseURL string

	// Timeout bounds each HTTP round trip. Defaults to 60s if zero.
	Timeout time.Duration
}

// Service implements rag.Generator against the generation service.
// It is safe for concurrent use and performs no internal retries.
type Service struct {
	// baseURL is the generation service base URL.
	baseURL string

	// client is the shared HTTP client with a bounded timeout.
	client *http.Client
}

// New constructs a Service from the given config.
func New(cfg *Config) (*Service, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("generator: base URL must not be empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// generateRequest is the JSON body sent to POST /generate.
type generateRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

// generateResponse is the JSON body returned from POST /generate.
type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Generate returns the completion for prompt, bounded by maxTokens.
// Transport failures map to rag.ErrRemoteUnavailable and non-2xx statuses
// to rag.ErrRemoteError.
func (s *Service) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	payload, err := json.Marshal(generateRequest{Prompt: prompt, MaxTokens: maxTokens})
	if err != nil {
		return "", fmt.Errorf("generator: marshal request: %w", err)
	}

	url := s.baseURL + "/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("generator: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generator: request failed: %w: %w", rag.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	var result generateResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if decodeErr == nil && result.Error != "" {
			msg = result.Error
		}
		return "", fmt.Errorf("generator: %s: %w", msg, rag.ErrRemoteError)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("generator: decode response: %w: %w", rag.ErrSchemaViolation, decodeErr)
	}

	return result.Response, nil
}
