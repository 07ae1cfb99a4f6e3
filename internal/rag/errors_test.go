package rag

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func Test_PartialIngestError_Message(t *testing.T) {
	t.Parallel()

	err := &PartialIngestError{
		DocumentID:  "doc-42",
		FailedChunk: 3,
		Upserted:    3,
		Err:         errors.New("connection reset"),
	}

	msg := err.Error()
	for _, want := range []string{"doc-42", "chunk 3", "3 chunks upserted", "connection reset"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func Test_PartialIngestError_UnwrapKeepsKind(t *testing.T) {
	t.Parallel()

	inner := fmt.Errorf("upserting chunk: %w", ErrRemoteUnavailable)
	err := error(&PartialIngestError{DocumentID: "d", FailedChunk: 1, Upserted: 1, Err: inner})

	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Error("want errors.Is to classify the wrapped remote failure")
	}

	var partial *PartialIngestError
	if !errors.As(err, &partial) {
		t.Fatal("want errors.As to recover the partial ingest detail")
	}
	if partial.Upserted != 1 {
		t.Errorf("upserted: want 1, got %d", partial.Upserted)
	}
}

func Test_ErrorKinds_SurviveWrapping(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("ingest: document x chunk 0: %w",
		fmt.Errorf("embedding chunk: %w", ErrSchemaViolation))

	if !errors.Is(wrapped, ErrSchemaViolation) {
		t.Error("want kind to survive nested wrapping")
	}
	if errors.Is(wrapped, ErrRemoteError) {
		t.Error("kinds must stay distinct")
	}
}
