package rag

import (
	"errors"
	"fmt"
)

// Error kinds shared across the pipeline. Callers classify failures with
// [errors.Is] after any number of fmt.Errorf %w wrappings, so each layer can
// add context (document id, chunk index, question prefix) without changing
// the kind.
var (
	// ErrInvalidInput marks a malformed request or invalid configuration
	// (empty text, overlap >= chunk size). It is a caller error, never a
	// condition to retry.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRemoteUnavailable marks a transport-level failure reaching the
	// embedding, generation, or index service.
	ErrRemoteUnavailable = errors.New("remote capability unavailable")

	// ErrRemoteError marks a non-success status returned by a remote
	// capability that was reachable.
	ErrRemoteError = errors.New("remote capability error")

	// ErrSchemaViolation marks a contract breach in a remote response,
	// such as an embedding whose dimension does not match the index.
	ErrSchemaViolation = errors.New("schema violation")
)

// PartialIngestError reports an ingest that failed after one or more chunks
// were already committed to the vector index. The committed points are not
// rolled back; the error carries enough detail for operators to detect the
// orphaned partial document.
type PartialIngestError struct {
	// DocumentID is the id of the partially ingested document.
	DocumentID string

	// FailedChunk is the 0-based index of the chunk that failed.
	FailedChunk int

	// Upserted is the number of chunks committed before the failure.
	Upserted int

	// Err is the underlying embed or upsert failure.
	Err error
}

// Error describes the partial ingest, naming the document, the failed chunk,
// and how many chunks were already committed.
func (e *PartialIngestError) Error() string {
	return fmt.Sprintf("partial ingest of document %s: chunk %d failed after %d chunks upserted: %v",
		e.DocumentID, e.FailedChunk, e.Upserted, e.Err)
}

// Unwrap exposes the underlying failure so errors.Is can still classify it
// as remote or schema related.
func (e *PartialIngestError) Unwrap() error { return e.Err }
