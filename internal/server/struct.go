package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ragstack/ragserve/internal/rag"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// Must cover a full retrieve+generate round trip.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /readyz.
	// If empty, /readyz returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on POST /ingest and POST /query.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// DefaultTopK is the retrieval candidate count used when a query omits
	// top_k. Defaults to 3 if zero.
	DefaultTopK int
	// MetricsRegistry receives all metric registrations. Defaults to
	// prometheus.DefaultRegisterer; tests inject a fresh registry.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// Ingester runs the document ingestion pipeline.
// *ingest.Pipeline satisfies it; tests inject a fake.
type Ingester interface {
	// IngestDocument chunks, embeds, and indexes text, returning the
	// generated document id.
	IngestDocument(ctx context.Context, text, sourceLabel string, metadata map[string]string) (string, error)
}

// Retriever fetches relevant context chunks for a question.
// *rag.Retriever satisfies it; tests inject a fake.
type Retriever interface {
	// Retrieve returns the hits above the relevance threshold, in the
	// index's descending-score order.
	Retrieve(ctx context.Context, question string, topK int) ([]rag.Hit, error)
}

// Answerer generates an answer grounded in the given hits.
// *rag.Composer satisfies it; tests inject a fake.
type Answerer interface {
	// Answer builds the grounding prompt and returns the generated text.
	Answer(ctx context.Context, question string, hits []rag.Hit) (string, error)
}

// DocumentStore durably persists raw ingested text.
// *docstore.Store satisfies it; tests inject a fake.
type DocumentStore interface {
	// Store persists text and returns its opaque commit token.
	Store(ctx context.Context, text string) (string, error)
}

// QueryLog records query/answer pairs for auditing.
// *requestlog.SQLiteLog satisfies it; tests inject a fake.
type QueryLog interface {
	// Append persists a single query record.
	Append(ctx context.Context, question string, topK int, contexts []rag.Hit, answer string) error
}

// Dependencies bundles the collaborators the server delegates to.
// Pipeline, Retriever, and Composer are required; DocStore and RequestLog
// are optional and skipped with a startup warning when nil.
type Dependencies struct {
	// Pipeline runs document ingestion.
	Pipeline Ingester
	// Retriever fetches query context.
	Retriever Retriever
	// Composer generates grounded answers.
	Composer Answerer
	// DocStore persists raw ingested text for commit tokens.
	DocStore DocumentStore
	// RequestLog records query/answer pairs.
	RequestLog QueryLog
}

// Server is the HTTP server that exposes the ingest/query pipeline.
type Server struct {
	// deps holds the pipeline collaborators.
	deps *Dependencies
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /readyz.
	pingers []Pinger
	// metrics holds all Prometheus metrics owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// ingestRequest is the JSON body for POST /ingest.
type ingestRequest struct {
	// Text is the raw document text to ingest.
	Text string `json:"text"`
	// Metadata holds optional key-value pairs attached to every chunk.
	// The "title" key, when present, becomes the source label.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ingestResponse is the JSON response for POST /ingest.
type ingestResponse struct {
	// Status is "ok" on success.
	Status string `json:"status"`
	// Metadata carries the commit token and the generated document id.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// queryRequest is the JSON body for POST /query.
type queryRequest struct {
	// Question is the user's natural-language question.
	Question string `json:"question"`
	// TopK is the retrieval candidate count. Defaults to the server's
	// configured value (3) when omitted or non-positive.
	TopK int `json:"top_k,omitempty"`
}

// queryResponse is the JSON response for POST /query.
type queryResponse struct {
	// Answer is the generated answer text, verbatim from the generator.
	Answer string `json:"answer"`
}

// errorResponse is the JSON body for all error statuses.
type errorResponse struct {
	// Error is the human-readable failure description.
	Error string `json:"error"`
}
