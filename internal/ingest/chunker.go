// Package ingest implements the document ingestion pipeline: chunking,
// keyword tagging, per-chunk embedding, and upserting into the vector
// store. The pipeline is invoked by the HTTP /ingest handler and by the
// `ragserve ingest` CLI command.
package ingest

import (
	"fmt"
	"strings"

	"github.com/ragstack/ragserve/internal/rag"
)

// Chunk splits text into overlapping windows of size code points, advancing
// by size-overlap per step. Windowing is rune-based so multi-byte text never
// gets cut mid-character: every chunk is valid UTF-8 and a substring of the
// input. Each window is trimmed of leading and trailing whitespace. A text
// shorter than size yields exactly one chunk — possibly empty after trimming
// — so short documents still map to one indexed point.
//
// overlap >= size would make the step non-positive and the loop endless, so
// it is rejected as invalid configuration along with size <= 0 and
// overlap < 0.
func Chunk(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("ingest: chunk size %d must be positive: %w", size, rag.ErrInvalidInput)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("ingest: overlap %d must satisfy 0 <= overlap < size %d: %w",
			overlap, size, rag.ErrInvalidInput)
	}

	step := size - overlap
	runes := []rune(text)
	var chunks []string
	for start := 0; ; start += step {
		if start > 0 && start >= len(runes) {
			break
		}
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[start:end])))
	}

	return chunks, nil
}
