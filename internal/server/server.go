// Package server implements the HTTP service boundary for the
// retrieval-augmented generation pipeline: POST /ingest and POST /query,
// plus health, readiness, and Prometheus metrics endpoints.
// The server is started by the `ragserve serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ragstack/ragserve/internal/logging"
	"github.com/ragstack/ragserve/internal/rag"
)

// New constructs a Server from the provided dependencies and config.
func New(deps *Dependencies, cfg *Config) (*Server, error) {
	if deps == nil || deps.Pipeline == nil {
		return nil, fmt.Errorf("server: ingestion pipeline must not be nil")
	}
	if deps.Retriever == nil {
		return nil, fmt.Errorf("server: retriever must not be nil")
	}
	if deps.Composer == nil {
		return nil, fmt.Errorf("server: composer must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover a full retrieve+generate round trip.
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}

	rps := cfg.RateLimit
	if rps <= 0 {
		rps = defaultRateLimit
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = defaultRateBurst
	}

	s := &Server{
		deps:    deps,
		cfg:     cfg,
		log:     cfg.Logger,
		pingers: cfg.Pingers,
		metrics: newServerMetrics(cfg.MetricsRegistry),
	}

	if cfg.APIKey == "" {
		s.log.Warn("auth disabled — no API key configured")
	}
	if deps.DocStore == nil {
		s.log.Warn("document store disabled — ingests will carry no commit token")
	}
	if deps.RequestLog == nil {
		s.log.Warn("request log disabled — query/answer pairs will not be recorded")
	}

	rl, stopRL := newRateLimiter(rps, burst, s.log)
	s.stopRL = stopRL

	// The pipeline endpoints are rate limited and (optionally) authenticated;
	// health, readiness, and metrics stay open for probes and scrapers.
	protect := func(name string, h http.HandlerFunc) http.Handler {
		return s.instrument(name, authMiddleware(cfg.APIKey, rl.middleware(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /ingest", protect("ingest", s.handleIngest))
	mux.Handle("POST /query", protect("query", s.handleQuery))
	mux.Handle("GET /healthz", s.instrument("healthz", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /readyz", s.instrument("readyz", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(s.log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("ragserve listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleIngest handles POST /ingest. It stores the raw text in the document
// store for a commit token, then runs the ingestion pipeline. A partial
// ingest (some chunks committed before a failure) is logged distinctly so
// operators can detect orphaned partial documents.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	s.metrics.ingestRequestsTotal.Inc()

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = make(map[string]string)
	}

	var commit string
	if s.deps.DocStore != nil {
		var err error
		commit, err = s.deps.DocStore.Store(r.Context(), req.Text)
		if err != nil {
			s.metrics.ingestFailuresTotal.Inc()
			log.Error("document store failed", slog.Any("error", err))
			s.writeError(w, http.StatusInternalServerError, "ingestion failed: could not persist document")
			return
		}
		metadata["commit"] = commit
	}

	sourceLabel := metadata["title"]
	if sourceLabel == "" {
		sourceLabel = "unknown"
	}

	start := time.Now()
	docID, err := s.deps.Pipeline.IngestDocument(r.Context(), req.Text, sourceLabel, metadata)
	s.metrics.ingestDurationSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.ingestFailuresTotal.Inc()

		var partial *rag.PartialIngestError
		switch {
		case errors.As(err, &partial):
			log.Error("partial ingest — orphaned chunks left in index",
				slog.String("document_id", partial.DocumentID),
				slog.Int("failed_chunk", partial.FailedChunk),
				slog.Int("upserted", partial.Upserted),
				slog.Any("error", err),
			)
			s.writeError(w, http.StatusInternalServerError, "ingestion failed: "+err.Error())
		case errors.Is(err, rag.ErrInvalidInput):
			s.writeError(w, http.StatusBadRequest, "ingestion failed: "+err.Error())
		default:
			log.Error("ingest failed", slog.Any("error", err))
			s.writeError(w, http.StatusInternalServerError, "ingestion failed: "+err.Error())
		}
		return
	}

	log.Info("document ingested",
		slog.String("document_id", docID),
		slog.String("source", sourceLabel),
	)

	respMeta := map[string]string{"document_id": docID}
	if commit != "" {
		respMeta["commit"] = commit
	}
	s.writeJSON(w, http.StatusOK, ingestResponse{Status: "ok", Metadata: respMeta})
}

// handleQuery handles POST /query. Retrieval returning zero hits is not an
// error — the composer still generates from an empty context block and the
// outcome is recorded in the empty-retrieval counter.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	s.metrics.queryRequestsTotal.Inc()

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}

	start := time.Now()
	hits, err := s.deps.Retriever.Retrieve(r.Context(), req.Question, topK)
	s.metrics.retrievalDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error("retrieval failed", slog.Any("error", err))
		s.writeError(w, http.StatusInternalServerError, "query failed: "+err.Error())
		return
	}

	if len(hits) == 0 {
		s.metrics.retrievalEmptyTotal.Inc()
		log.Info("retrieval returned no context above threshold")
	}
	s.metrics.contextsRetrieved.Observe(float64(len(hits)))
	for _, h := range hits {
		s.metrics.retrievalScore.Observe(float64(h.Score))
	}

	start = time.Now()
	answer, err := s.deps.Composer.Answer(r.Context(), req.Question, hits)
	s.metrics.generationDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.generationFailuresTotal.Inc()
		log.Error("generation failed", slog.Any("error", err))
		s.writeError(w, http.StatusInternalServerError, "generation failed: "+err.Error())
		return
	}

	// Audit logging is best-effort — a log failure never fails the query.
	if s.deps.RequestLog != nil {
		if err := s.deps.RequestLog.Append(r.Context(), req.Question, topK, hits, answer); err != nil {
			log.Warn("request log append failed", slog.Any("error", err))
		}
	}

	log.Info("query answered",
		slog.Int("contexts", len(hits)),
		slog.Int("top_k", topK),
	)

	s.writeJSON(w, http.StatusOK, queryResponse{Answer: answer})
}

// writeJSON encodes v as the response body with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("response encode error", slog.Any("error", err))
	}
}

// writeError writes a structured JSON error body with the given status.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
