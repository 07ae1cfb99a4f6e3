package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/ragstack/ragserve/internal/embedder"
	"github.com/ragstack/ragserve/internal/rag"
)

// buildEmbedder constructs the embedding service client from the environment.
func buildEmbedder() (*embedder.Service, error) {
	return embedder.New(&embedder.Config{
		BaseURL:    getEnvOrDefault("EMBEDDING_ENDPOINT", "http://localhost:3001"),
		Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 384),
		Timeout:    getEnvDuration("EMBEDDING_TIMEOUT", 10*time.Second),
	})
}

// buildStore connects to Qdrant and ensures the collection exists.
func buildStore(ctx context.Context, log *slog.Logger) (*rag.QdrantStore, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	collection := getEnvOrDefault("QDRANT_COLLECTION", "rag-docs")
	vectorSize := uint64(getEnvInt("EMBEDDING_DIMENSIONS", 384)) //nolint:gosec // dimensions are bounded

	store, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: collection,
		VectorSize: vectorSize,
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}

	log.Info("qdrant store ready",
		slog.String("host", host),
		slog.Int("port", port),
		slog.String("collection", collection),
	)
	return store, nil
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if it is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if it is unset, empty, or not a valid integer.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvFloat32 returns the float value of the named environment variable, or
// fallback if it is unset, empty, or not a valid number.
func getEnvFloat32(key string, fallback float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}

// getEnvDuration returns the duration value of the named environment
// variable (e.g. "30s", "2m"), or fallback if it is unset or invalid.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
