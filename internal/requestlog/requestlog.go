// Package requestlog provides a SQLite-backed audit log of query/answer
// pairs. Each record captures the question, the requested topK, the
// retrieved contexts (as JSON), and the generated answer, so operators can
// review what the system answered and on what grounds.
//
// Logging is best-effort from the caller's point of view: a log failure
// must never fail the query it describes.
package requestlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/ragstack/ragserve/internal/rag"
)

// Entry is one logged query/answer pair.
type Entry struct {
	// Question is the user's natural-language question.
	Question string

	// TopK is the candidate count requested for retrieval.
	TopK int

	// Contexts are the retrieval hits that grounded the answer.
	Contexts []rag.Hit

	// Answer is the generated answer text.
	Answer string

	// CreatedAt is when the record was persisted.
	CreatedAt time.Time
}

// Log persists query/answer records. Implementations must be safe for
// concurrent use.
type Log interface {
	// Append persists a single query record.
	Append(ctx context.Context, question string, topK int, contexts []rag.Hit, answer string) error
	// Close releases any resources held by the log.
	Close() error
}

// SQLiteLog is a Log backed by a local SQLite database.
type SQLiteLog struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the request log database.
// It resolves to ~/.ragserve/requests.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("requestlog: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".ragserve")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("requestlog: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "requests.db"), nil
}

// Open opens (or creates) a SQLiteLog at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteLog, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("requestlog: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	l := &SQLiteLog{db: db}
	if err := l.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// migrate creates the schema if it does not already exist.
func (l *SQLiteLog) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS requests (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    question   TEXT    NOT NULL,
    top_k      INTEGER NOT NULL,
    contexts   TEXT    NOT NULL,  -- JSON array of retrieval hits
    answer     TEXT    NOT NULL,
    created_at INTEGER NOT NULL   -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_requests_created
    ON requests (created_at);
`
	if _, err := l.db.Exec(ddl); err != nil {
		return fmt.Errorf("requestlog: migrate: %w", err)
	}
	return nil
}

// Append persists a single query record. The contexts slice is stored as a
// JSON array so the full grounding evidence survives alongside the answer.
func (l *SQLiteLog) Append(ctx context.Context, question string, topK int, contexts []rag.Hit, answer string) error {
	if contexts == nil {
		contexts = []rag.Hit{}
	}
	blob, err := json.Marshal(contexts)
	if err != nil {
		return fmt.Errorf("requestlog: marshal contexts: %w", err)
	}

	const q = `INSERT INTO requests (question, top_k, contexts, answer, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := l.db.ExecContext(ctx, q, question, topK, string(blob), answer, time.Now().Unix()); err != nil {
		return fmt.Errorf("requestlog: append: %w", err)
	}
	return nil
}

// Recent returns the most recent n records, newest first.
func (l *SQLiteLog) Recent(ctx context.Context, n int) ([]Entry, error) {
	const q = `
SELECT question, top_k, contexts, answer, created_at
FROM   requests
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := l.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("requestlog: recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var blob string
		var ts int64
		if err := rows.Scan(&e.Question, &e.TopK, &blob, &e.Answer, &ts); err != nil {
			return nil, fmt.Errorf("requestlog: recent scan: %w", err)
		}
		if err := json.Unmarshal([]byte(blob), &e.Contexts); err != nil {
			return nil, fmt.Errorf("requestlog: decode contexts: %w", err)
		}
		e.CreatedAt = time.Unix(ts, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("requestlog: recent rows: %w", err)
	}
	return entries, nil
}

// Close releases the database connection pool.
func (l *SQLiteLog) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("requestlog: close: %w", err)
	}
	return nil
}
