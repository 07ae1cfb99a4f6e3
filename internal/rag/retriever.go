package rag

import (
	"context"
	"fmt"
)

// defaultScoreThreshold is the minimum cosine similarity a candidate must
// exceed (strictly) to be returned as context.
const defaultScoreThreshold = 0.5

// Retriever embeds a question and returns the relevant context chunks above
// the configured score threshold. It combines an Embedder and a VectorStore;
// ranking is entirely the index's — the filter only removes entries and
// never re-sorts.
type Retriever struct {
	// embedder converts the question text to a dense vector.
	embedder Embedder

	// store performs the vector similarity search.
	store VectorStore

	// defaultTopK is the number of candidates requested when the caller
	// passes 0.
	defaultTopK int

	// scoreThreshold is the strict lower bound on candidate scores.
	scoreThreshold float32
}

// RetrieverConfig holds the tunables for a Retriever.
type RetrieverConfig struct {
	// DefaultTopK is the fallback candidate count when Retrieve is called
	// with topK <= 0. Defaults to 3.
	DefaultTopK int

	// ScoreThreshold is the strict lower bound on candidate scores.
	// Candidates scoring <= ScoreThreshold are dropped. Defaults to 0.5;
	// set to a negative value to disable filtering.
	ScoreThreshold *float32
}

// NewRetriever constructs a Retriever from the given Embedder and VectorStore.
func NewRetriever(embedder Embedder, store VectorStore, cfg *RetrieverConfig) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if cfg == nil {
		cfg = &RetrieverConfig{}
	}

	topK := cfg.DefaultTopK
	if topK <= 0 {
		topK = 3
	}
	threshold := float32(defaultScoreThreshold)
	if cfg.ScoreThreshold != nil {
		threshold = *cfg.ScoreThreshold
	}

	return &Retriever{
		embedder:       embedder,
		store:          store,
		defaultTopK:    topK,
		scoreThreshold: threshold,
	}, nil
}

// Retrieve embeds the question, searches the index for topK candidates, and
// returns the survivors of the relevance filter in the index's descending
// score order. Candidates with a missing payload are dropped as corrupt;
// candidates scoring <= the threshold are dropped as irrelevant.
//
// An empty result is a valid, non-fatal outcome — the caller decides whether
// to answer without grounding context.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]Hit, error) {
	if question == "" {
		return nil, fmt.Errorf("rag: question must not be empty: %w", ErrInvalidInput)
	}
	if topK <= 0 {
		topK = r.defaultTopK
	}

	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("rag: embedding question %q: %w", prefix(question, 30), err)
	}

	candidates, err := r.store.Search(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search for %q: %w", prefix(question, 30), err)
	}

	hits := make([]Hit, 0, len(candidates))
	for _, c := range candidates {
		if c.Payload == nil {
			continue
		}
		if c.Score <= r.scoreThreshold {
			continue
		}
		hits = append(hits, Hit{
			Text:        c.Payload.Text,
			SourceLabel: c.Payload.SourceLabel,
			DocumentID:  c.Payload.DocumentID,
			ChunkIndex:  c.Payload.ChunkIndex,
			Tags:        c.Payload.Tags,
			Score:       c.Score,
		})
	}

	return hits, nil
}

// prefix returns at most n runes of s, for use in error and log context.
// Truncation is rune-based so multi-byte questions stay valid UTF-8.
func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
