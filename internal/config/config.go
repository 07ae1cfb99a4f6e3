// Package config provides YAML-based configuration for ragserve.
// Configuration is loaded with a layered precedence: defaults → YAML file →
// env vars. Environment variables always win, so existing workflows are
// unaffected by adding a file.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. RAGSERVE_CONFIG environment variable
//  3. ~/.ragserve/config.yaml
//  4. ./ragserve.yaml
//
// If no file is found the system runs entirely from env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming.
type Config struct {
	// Embedding configures the embedding service client.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Generation configures the text-generation service client.
	Generation GenerationConfig `yaml:"generation"`

	// Qdrant configures the Qdrant vector index connection.
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Retrieval configures the query-time retrieval behaviour.
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Chunking configures the ingestion chunker and tagger.
	Chunking ChunkingConfig `yaml:"chunking"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Docstore configures the durable raw-document store.
	Docstore DocstoreConfig `yaml:"docstore"`

	// RequestLog configures the query/answer audit log.
	RequestLog RequestLogConfig `yaml:"request_log"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`
}

// EmbeddingConfig holds embedding service settings.
type EmbeddingConfig struct {
	// Endpoint is the embedding service base URL.
	Endpoint string `yaml:"endpoint"`
	// Dimensions is the embedding vector size, a hard contract with the index.
	Dimensions int `yaml:"dimensions"`
	// Timeout is the per-request timeout (Go duration string, e.g. "10s").
	Timeout string `yaml:"timeout"`
}

// GenerationConfig holds generation service settings.
type GenerationConfig struct {
	// Endpoint is the generation service base URL.
	Endpoint string `yaml:"endpoint"`
	// MaxTokens bounds the generated answer length.
	MaxTokens int `yaml:"max_tokens"`
	// Timeout is the per-request timeout (Go duration string, e.g. "60s").
	Timeout string `yaml:"timeout"`
}

// QdrantConfig holds Qdrant vector index settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// Collection is the Qdrant collection name.
	Collection string `yaml:"collection"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// RetrievalConfig holds query-time retrieval settings.
type RetrievalConfig struct {
	// TopK is the default candidate count per query.
	TopK int `yaml:"top_k"`
	// ScoreThreshold is the strict lower bound on candidate scores.
	ScoreThreshold float32 `yaml:"score_threshold"`
}

// ChunkingConfig holds ingestion chunker and tagger settings.
type ChunkingConfig struct {
	// Size is the chunk window size in characters.
	Size int `yaml:"size"`
	// Overlap is the byte overlap between consecutive chunks.
	Overlap int `yaml:"overlap"`
	// TagTopN is the number of keyword tags per document.
	TagTopN int `yaml:"tag_top_n"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var RAGSERVE_API_KEY.
	APIKey string `yaml:"api_key"`
}

// DocstoreConfig holds durable document store settings.
type DocstoreConfig struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path"`
}

// RequestLogConfig holds query audit log settings.
type RequestLogConfig struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_TIMEOUT", func(c *Config) string { return c.Embedding.Timeout }},
	{"GENERATION_ENDPOINT", func(c *Config) string { return c.Generation.Endpoint }},
	{"GENERATION_MAX_TOKENS", func(c *Config) string { return intStr(c.Generation.MaxTokens) }},
	{"GENERATION_TIMEOUT", func(c *Config) string { return c.Generation.Timeout }},
	{"QDRANT_HOST", func(c *Config) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_COLLECTION", func(c *Config) string { return c.Qdrant.Collection }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Qdrant.TLS) }},
	{"RETRIEVAL_TOP_K", func(c *Config) string { return intStr(c.Retrieval.TopK) }},
	{"RETRIEVAL_SCORE_THRESHOLD", func(c *Config) string { return float32Str(c.Retrieval.ScoreThreshold) }},
	{"CHUNK_SIZE", func(c *Config) string { return intStr(c.Chunking.Size) }},
	{"CHUNK_OVERLAP", func(c *Config) string { return intStr(c.Chunking.Overlap) }},
	{"TAG_TOP_N", func(c *Config) string { return intStr(c.Chunking.TagTopN) }},
	{"RAGSERVE_HOST", func(c *Config) string { return c.Server.Host }},
	{"RAGSERVE_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"RAGSERVE_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"RAGSERVE_DOCSTORE_DB", func(c *Config) string { return c.Docstore.DBPath }},
	{"RAGSERVE_REQUESTLOG_DB", func(c *Config) string { return c.RequestLog.DBPath }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" || yamlVal == "0" || yamlVal == "false" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set — do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("RAGSERVE_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".ragserve", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("ragserve.yaml"); err == nil {
		return "ragserve.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
