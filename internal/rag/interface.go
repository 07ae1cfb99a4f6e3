// Package rag defines the data model and capability interfaces for the
// retrieval-augmented generation pipeline: embedding, vector storage, and
// text generation. Concrete implementations (Qdrant, the embedding and
// generation services) satisfy these interfaces so the pipeline and the
// server never depend on a specific backend.
package rag

import (
	"context"
)

// Document is a unit of ingested knowledge. It is created once per ingest
// request and is immutable after creation; its identity is generated by the
// pipeline, never supplied by the caller.
type Document struct {
	// ID is the generated unique identifier for this document.
	ID string

	// RawText is the full text as submitted for ingestion.
	RawText string

	// SourceLabel identifies where the document came from.
	SourceLabel string

	// Metadata holds caller-supplied key-value pairs attached to every
	// chunk of the document.
	Metadata map[string]string
}

// Chunk is a bounded window of a document's text — the unit of embedding
// and indexing. Chunk indices within a document are contiguous from 0 in
// document order.
type Chunk struct {
	// DocumentID is the owning document's id.
	DocumentID string

	// Index is the 0-based position of this chunk within the document.
	Index int

	// Text is the (trimmed) window of the document's raw text.
	Text string
}

// Payload is the denormalized per-point record stored alongside each vector.
// It carries enough fields to reconstruct a Hit without a second lookup.
type Payload struct {
	// Text is the chunk text.
	Text string

	// SourceLabel identifies the origin of the owning document.
	SourceLabel string

	// DocumentID is the logical foreign key to the owning document.
	DocumentID string

	// ChunkIndex is the chunk's 0-based position within the document.
	ChunkIndex int

	// Tags are the document-level keywords, shared by every chunk of the
	// same document.
	Tags []string

	// Extra holds caller-supplied metadata merged into the payload.
	Extra map[string]string
}

// Point is a single vector-index entry: one point per chunk. The index owns
// the point after upsert; the pipeline holds no further reference.
type Point struct {
	// ID is the generated unique point identifier.
	ID string

	// Vector is the chunk's embedding.
	Vector []float32

	// Payload is the denormalized chunk record.
	Payload Payload
}

// Candidate is a raw similarity-search result before filtering.
// A nil Payload marks a corrupt point that retrieval must drop.
type Candidate struct {
	// Payload is the stored chunk record, or nil if the point carried none.
	Payload *Payload

	// Score is the cosine similarity in [0,1] assigned by the index.
	Score float32
}

// Hit is a scored context chunk that cleared the relevance filter.
// Hits are ephemeral — produced per query, never persisted by the pipeline.
type Hit struct {
	// Text is the chunk text used as grounding context.
	Text string `json:"text"`

	// SourceLabel identifies the origin of the owning document.
	SourceLabel string `json:"source"`

	// DocumentID is the owning document's id.
	DocumentID string `json:"doc_id"`

	// ChunkIndex is the chunk's position within the document.
	ChunkIndex int `json:"chunk_id"`

	// Tags are the document-level keywords.
	Tags []string `json:"tags,omitempty"`

	// Score is the cosine similarity assigned during retrieval.
	Score float32 `json:"score"`
}

// Embedder converts text into a fixed-dimension dense vector.
// Implementations must be safe to call from multiple goroutines and must
// not retry internally — remote failures propagate to the caller.
type Embedder interface {
	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore persists and searches chunk embeddings. The backing
// collection is ensured once at construction, before any upsert or search.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert inserts or replaces the given points by id. There is no
	// partial-failure contract beyond "all points committed or the call
	// fails".
	Upsert(ctx context.Context, points []Point) error

	// Search returns at most topK candidates ranked descending by
	// similarity score. An empty result is valid and means "no matches".
	Search(ctx context.Context, vector []float32, topK int) ([]Candidate, error)

	// Close releases any resources held by the store.
	Close() error
}

// Generator completes a grounding prompt into an answer.
// Implementations must be safe to call from multiple goroutines.
type Generator interface {
	// Generate returns the model's completion for prompt, bounded by
	// maxTokens.
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}
