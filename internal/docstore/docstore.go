// Package docstore provides a SQLite-backed durable store for raw ingested
// text. Every stored document gets an opaque commit token that is carried
// back to the caller as ingest metadata; the token's versioning semantics
// are the store's own concern and are never interpreted by the pipeline.
package docstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Store persists raw document text and returns commit tokens.
// It is safe for concurrent use.
type Store struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the document database.
// It resolves to ~/.ragserve/documents.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("docstore: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".ragserve")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("docstore: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "documents.db"), nil
}

// Open opens (or creates) a Store at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Store, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    commit_token TEXT    NOT NULL UNIQUE,
    content      TEXT    NOT NULL,
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_documents_created
    ON documents (created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("docstore: migrate: %w", err)
	}
	return nil
}

// Store persists text and returns its commit token. Storing the same text
// twice produces two rows with distinct tokens — each ingest is its own
// commit.
func (s *Store) Store(ctx context.Context, text string) (string, error) {
	token := newCommitToken(text)

	const q = `INSERT INTO documents (commit_token, content, created_at) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, token, text, time.Now().Unix()); err != nil {
		return "", fmt.Errorf("docstore: store: %w", err)
	}
	return token, nil
}

// Get returns the text stored under the given commit token.
func (s *Store) Get(ctx context.Context, token string) (string, error) {
	const q = `SELECT content FROM documents WHERE commit_token = ?`
	var content string
	if err := s.db.QueryRowContext(ctx, q, token).Scan(&content); err != nil {
		return "", fmt.Errorf("docstore: get %s: %w", token, err)
	}
	return content, nil
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("docstore: close: %w", err)
	}
	return nil
}

// newCommitToken derives an opaque token from the content and a fresh uuid,
// so identical text still yields a distinct commit per store call.
func newCommitToken(text string) string {
	h := sha256.New()
	h.Write([]byte(uuid.NewString()))
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil)[:16])
}
