package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

// fakeEmbedder returns a fixed vector, or a pre-programmed error.
type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return f.vector, f.err
}

// fakeSearcher serves canned candidates and records the topK it was asked for.
type fakeSearcher struct {
	candidates []Candidate
	err        error
	gotTopK    int
}

func (f *fakeSearcher) Upsert(_ context.Context, _ []Point) error { return nil }

func (f *fakeSearcher) Search(_ context.Context, _ []float32, topK int) ([]Candidate, error) {
	f.gotTopK = topK
	return f.candidates, f.err
}

func (f *fakeSearcher) Close() error { return nil }

func newTestRetriever(t *testing.T, emb Embedder, store VectorStore, cfg *RetrieverConfig) *Retriever {
	t.Helper()
	r, err := NewRetriever(emb, store, cfg)
	if err != nil {
		t.Fatalf("new retriever: %v", err)
	}
	return r
}

func candidate(text string, score float32) Candidate {
	return Candidate{
		Payload: &Payload{Text: text, DocumentID: "doc-1"},
		Score:   score,
	}
}

func Test_Retrieve_ThresholdIsStrict(t *testing.T) {
	t.Parallel()

	store := &fakeSearcher{candidates: []Candidate{
		candidate("high", 0.9),
		candidate("boundary", 0.5),
		candidate("low", 0.2),
	}}
	r := newTestRetriever(t, &fakeEmbedder{vector: []float32{1}}, store, nil)

	hits, err := r.Retrieve(context.Background(), "what is up", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}

	// Exactly 0.5 must be dropped: the comparison is score > threshold.
	if len(hits) != 1 {
		t.Fatalf("want 1 hit, got %d: %v", len(hits), hits)
	}
	if hits[0].Text != "high" {
		t.Errorf("want the high-score hit, got %q", hits[0].Text)
	}
}

func Test_Retrieve_PreservesIndexOrder(t *testing.T) {
	t.Parallel()

	store := &fakeSearcher{candidates: []Candidate{
		candidate("first", 0.95),
		candidate("second", 0.85),
		candidate("third", 0.75),
	}}
	r := newTestRetriever(t, &fakeEmbedder{vector: []float32{1}}, store, nil)

	hits, err := r.Retrieve(context.Background(), "ordering", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}

	want := []string{"first", "second", "third"}
	for i := range want {
		if hits[i].Text != want[i] {
			t.Errorf("hit[%d]: want %q, got %q", i, want[i], hits[i].Text)
		}
	}
}

func Test_Retrieve_DropsCorruptPayloads(t *testing.T) {
	t.Parallel()

	store := &fakeSearcher{candidates: []Candidate{
		{Payload: nil, Score: 0.99},
		candidate("intact", 0.9),
	}}
	r := newTestRetriever(t, &fakeEmbedder{vector: []float32{1}}, store, nil)

	hits, err := r.Retrieve(context.Background(), "corrupt entry", 2)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(hits) != 1 || hits[0].Text != "intact" {
		t.Errorf("want only the intact hit, got %v", hits)
	}
}

func Test_Retrieve_EmptyResultIsNotAnError(t *testing.T) {
	t.Parallel()

	store := &fakeSearcher{candidates: []Candidate{candidate("weak", 0.1)}}
	r := newTestRetriever(t, &fakeEmbedder{vector: []float32{1}}, store, nil)

	hits, err := r.Retrieve(context.Background(), "nothing relevant", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("want no hits, got %v", hits)
	}
}

func Test_Retrieve_DefaultTopK(t *testing.T) {
	t.Parallel()

	store := &fakeSearcher{}
	r := newTestRetriever(t, &fakeEmbedder{vector: []float32{1}}, store, nil)

	if _, err := r.Retrieve(context.Background(), "defaults", 0); err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if store.gotTopK != 3 {
		t.Errorf("want default topK 3, got %d", store.gotTopK)
	}
}

func Test_Retrieve_ThresholdConfigurable(t *testing.T) {
	t.Parallel()

	threshold := float32(-1)
	store := &fakeSearcher{candidates: []Candidate{candidate("weak", 0.1)}}
	r := newTestRetriever(t, &fakeEmbedder{vector: []float32{1}}, store, &RetrieverConfig{
		ScoreThreshold: &threshold,
	})

	hits, err := r.Retrieve(context.Background(), "anything goes", 1)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("negative threshold disables filtering, want 1 hit, got %d", len(hits))
	}
}

func Test_Retrieve_EmptyQuestionRejected(t *testing.T) {
	t.Parallel()

	r := newTestRetriever(t, &fakeEmbedder{vector: []float32{1}}, &fakeSearcher{}, nil)

	if _, err := r.Retrieve(context.Background(), "", 3); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("want ErrInvalidInput, got %v", err)
	}
}

func Test_Retrieve_EmbedFailurePropagates(t *testing.T) {
	t.Parallel()

	r := newTestRetriever(t, &fakeEmbedder{err: ErrRemoteUnavailable}, &fakeSearcher{}, nil)

	_, err := r.Retrieve(context.Background(), "question", 3)
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Errorf("want ErrRemoteUnavailable, got %v", err)
	}
}

func Test_Retrieve_SearchFailurePropagates(t *testing.T) {
	t.Parallel()

	store := &fakeSearcher{err: ErrRemoteError}
	r := newTestRetriever(t, &fakeEmbedder{vector: []float32{1}}, store, nil)

	_, err := r.Retrieve(context.Background(), "question", 3)
	if !errors.Is(err, ErrRemoteError) {
		t.Errorf("want ErrRemoteError, got %v", err)
	}
}

func Test_Prefix_MultiByteTruncation(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", 40)
	got := prefix(long, 30)
	if !utf8.ValidString(got) {
		t.Fatalf("prefix is not valid UTF-8: %q", got)
	}
	if want := strings.Repeat("é", 30) + "..."; got != want {
		t.Errorf("want %q, got %q", want, got)
	}

	if short := prefix("héllo", 30); short != "héllo" {
		t.Errorf("short input: want %q, got %q", "héllo", short)
	}
}
