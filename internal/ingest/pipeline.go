package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ragstack/ragserve/internal/rag"
)

// Pipeline orchestrates the tag → chunk → embed → upsert flow for one
// document. Remote calls run sequentially in chunk-index order and are not
// retried here — retry policy, if any, belongs to the capability adapters.
type Pipeline struct {
	// embedder converts chunk text into dense vector embeddings.
	embedder rag.Embedder

	// store persists the embedded chunks.
	store rag.VectorStore

	// cfg holds the resolved pipeline configuration.
	cfg *Config
}

// Config holds the tunables for the ingestion pipeline.
type Config struct {
	// ChunkSize is the window size in characters per chunk. Defaults to 200.
	ChunkSize int

	// ChunkOverlap is the number of bytes shared by consecutive chunks.
	// Defaults to 20. Must be smaller than ChunkSize.
	ChunkOverlap int

	// TagTopN is the number of keyword tags extracted per document.
	// Defaults to 3.
	TagTopN int
}

// NewPipeline constructs a Pipeline from the provided capabilities and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingest: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingest: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 200
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = 20
	}
	if cfg.TagTopN <= 0 {
		cfg.TagTopN = 3
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("ingest: overlap %d must be smaller than chunk size %d: %w",
			cfg.ChunkOverlap, cfg.ChunkSize, rag.ErrInvalidInput)
	}

	return &Pipeline{embedder: embedder, store: store, cfg: cfg}, nil
}

// IngestDocument splits text into chunks, tags the full document once, and
// embeds and upserts each chunk in order — one upsert call per chunk, so a
// remote failure is isolated to the chunk that caused it. Every point of the
// document shares the same generated document id and tags; chunk indices are
// contiguous from 0.
//
// A failure on a later chunk aborts the rest of the document and returns a
// *rag.PartialIngestError naming the failed chunk; chunks already upserted
// stay in the index (best-effort, not transactional). Re-ingesting the same
// text produces a fresh document id and fresh points — there is no dedup.
//
// Returns the generated document id on success.
func (p *Pipeline) IngestDocument(ctx context.Context, text, sourceLabel string, metadata map[string]string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("ingest: document text must not be empty: %w", rag.ErrInvalidInput)
	}
	if sourceLabel == "" {
		sourceLabel = "unknown"
	}

	tags, err := Tag(text, p.cfg.TagTopN)
	if err != nil {
		return "", err
	}

	chunks, err := Chunk(text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if err != nil {
		return "", err
	}

	docID := uuid.NewString()

	for i, chunk := range chunks {
		vector, err := p.embedder.Embed(ctx, chunk)
		if err != nil {
			return "", ingestFailure(docID, i, fmt.Errorf("embedding chunk: %w", err))
		}

		point := rag.Point{
			ID:     uuid.NewString(),
			Vector: vector,
			Payload: rag.Payload{
				Text:        chunk,
				SourceLabel: sourceLabel,
				DocumentID:  docID,
				ChunkIndex:  i,
				Tags:        tags,
				Extra:       metadata,
			},
		}

		if err := p.store.Upsert(ctx, []rag.Point{point}); err != nil {
			return "", ingestFailure(docID, i, fmt.Errorf("upserting chunk: %w", err))
		}
	}

	return docID, nil
}

// ingestFailure classifies a chunk failure: if earlier chunks of the
// document were already committed the caller gets a PartialIngestError so
// operators can detect the orphaned partial document; a failure on the very
// first chunk is a clean error.
func ingestFailure(docID string, failedChunk int, err error) error {
	if failedChunk > 0 {
		return &rag.PartialIngestError{
			DocumentID:  docID,
			FailedChunk: failedChunk,
			Upserted:    failedChunk,
			Err:         err,
		}
	}
	return fmt.Errorf("ingest: document %s chunk 0: %w", docID, err)
}
