package rag

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Reserved payload keys written by the pipeline. Caller-supplied metadata
// never overrides these.
const (
	payloadKeyText       = "text"
	payloadKeySource     = "source"
	payloadKeyDocumentID = "doc_id"
	payloadKeyChunkIndex = "chunk_id"
	payloadKeyTags       = "tags"
)

// QdrantConfig holds connection parameters for a Qdrant vector index.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the stored embeddings. This is a
	// hard contract with the embedder — a mismatch is a configuration
	// error, not a per-request one.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant instance.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore creates a QdrantStore and ensures the target collection
// exists (cosine metric, cfg.VectorSize dimensions), creating it if absent.
// Construction happens once at process startup, before traffic is accepted,
// so the create-or-no-op call never races with upserts or searches.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.VectorSize == 0 {
		return nil, fmt.Errorf("qdrant: vector size must be configured: %w", ErrInvalidInput)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// ensureCollection creates the collection if it does not already exist.
// Idempotent — a second call against an existing collection is a no-op.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}

	return nil
}

// Client exposes the underlying gRPC client for health probes.
func (s *QdrantStore) Client() *qdrant.Client { return s.client }

// Upsert inserts or replaces the given points by id.
func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	qpoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		if len(p.Vector) != int(s.cfg.VectorSize) {
			return fmt.Errorf("qdrant: point %s has dimension %d, collection expects %d: %w",
				p.ID, len(p.Vector), s.cfg.VectorSize, ErrSchemaViolation)
		}

		qpoints = append(qpoints, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(encodePayload(p.Payload)),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         qpoints,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w: %w", classifyGRPCError(err), err)
	}

	return nil
}

// Search performs a cosine similarity search and returns at most topK
// candidates, ranked descending by score by the server. Points that carry no
// payload come back with a nil Payload so retrieval can drop them.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, topK int) ([]Candidate, error) {
	limit := uint64(topK)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w: %w", classifyGRPCError(err), err)
	}

	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, Candidate{
			Payload: decodePayload(r.Payload),
			Score:   r.Score,
		})
	}

	return candidates, nil
}

// classifyGRPCError maps a Qdrant client error to the remote error kinds:
// transport-level failures (server unreachable, call timed out) are
// ErrRemoteUnavailable, everything the server actively rejected is
// ErrRemoteError. Mirrors the transport-vs-status split in the embedding
// and generation HTTP clients.
func classifyGRPCError(err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrRemoteUnavailable
	default:
		return ErrRemoteError
	}
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// encodePayload flattens a Payload into the map shape Qdrant stores.
// Reserved keys win over caller metadata of the same name.
func encodePayload(p Payload) map[string]any {
	m := make(map[string]any, len(p.Extra)+5)
	for k, v := range p.Extra {
		m[k] = v
	}

	tags := make([]any, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, t)
	}

	m[payloadKeyText] = p.Text
	m[payloadKeySource] = p.SourceLabel
	m[payloadKeyDocumentID] = p.DocumentID
	m[payloadKeyChunkIndex] = int64(p.ChunkIndex)
	m[payloadKeyTags] = tags

	return m
}

// decodePayload reconstructs a Payload from a Qdrant value map. Returns nil
// when the point carries no payload or lacks the text field — such points
// are corrupt and must be filtered out, not surfaced as empty context.
func decodePayload(values map[string]*qdrant.Value) *Payload {
	if values == nil {
		return nil
	}
	textVal, ok := values[payloadKeyText]
	if !ok {
		return nil
	}

	p := &Payload{
		Text:  textVal.GetStringValue(),
		Extra: make(map[string]string),
	}
	if v, ok := values[payloadKeySource]; ok {
		p.SourceLabel = v.GetStringValue()
	}
	if v, ok := values[payloadKeyDocumentID]; ok {
		p.DocumentID = v.GetStringValue()
	}
	if v, ok := values[payloadKeyChunkIndex]; ok {
		p.ChunkIndex = int(v.GetIntegerValue())
	}
	if v, ok := values[payloadKeyTags]; ok {
		for _, t := range v.GetListValue().GetValues() {
			p.Tags = append(p.Tags, t.GetStringValue())
		}
	}

	for k, v := range values {
		switch k {
		case payloadKeyText, payloadKeySource, payloadKeyDocumentID, payloadKeyChunkIndex, payloadKeyTags:
		default:
			p.Extra[k] = v.GetStringValue()
		}
	}

	return p
}
