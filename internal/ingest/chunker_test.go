package ingest

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ragstack/ragserve/internal/rag"
)

func Test_Chunk_SlidingWindow(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 500)
	chunks, err := Chunk(text, 200, 20)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("want 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 200 || len(chunks[1]) != 200 {
		t.Errorf("want full 200-character windows, got %d and %d", len(chunks[0]), len(chunks[1]))
	}
	// The last window starts at 360 and runs to the end of the text.
	if len(chunks[2]) != 140 {
		t.Errorf("want 140-character tail chunk, got %d", len(chunks[2]))
	}
}

func Test_Chunk_MultiByteRunesStayIntact(t *testing.T) {
	t.Parallel()

	// Two-byte runes: byte-offset windowing would split one at every
	// boundary and produce invalid UTF-8.
	text := strings.Repeat("é", 100)
	chunks, err := Chunk(text, 3, 0)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}

	if len(chunks) != 34 {
		t.Fatalf("want 34 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk[%d] is not valid UTF-8: %q", i, c)
		}
		if !strings.Contains(text, c) {
			t.Errorf("chunk[%d] %q is not a substring of the input", i, c)
		}
	}
	if got := utf8.RuneCountInString(chunks[0]); got != 3 {
		t.Errorf("want 3-rune windows, got %d runes", got)
	}
	if chunks[33] != "é" {
		t.Errorf("want single-rune tail chunk, got %q", chunks[33])
	}
}

func Test_Chunk_MultiByteOverlapSharedBetweenWindows(t *testing.T) {
	t.Parallel()

	chunks, err := Chunk("äbçdëf", 4, 2)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}

	want := []string{"äbçd", "çdëf", "ëf"}
	if len(chunks) != len(want) {
		t.Fatalf("want %d chunks, got %d: %v", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk[%d]: want %q, got %q", i, want[i], chunks[i])
		}
	}
}

func Test_Chunk_OverlapSharedBetweenWindows(t *testing.T) {
	t.Parallel()

	// Distinct characters so window positions are observable.
	text := "abcdefghij"
	chunks, err := Chunk(text, 4, 2)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}

	want := []string{"abcd", "cdef", "efgh", "ghij", "ij"}
	if len(chunks) != len(want) {
		t.Fatalf("want %d chunks, got %d: %v", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk[%d]: want %q, got %q", i, want[i], chunks[i])
		}
	}
}

func Test_Chunk_ShortTextSingleChunk(t *testing.T) {
	t.Parallel()

	chunks, err := Chunk("tiny", 200, 20)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "tiny" {
		t.Errorf("want [\"tiny\"], got %v", chunks)
	}
}

func Test_Chunk_EmptyTextSingleChunk(t *testing.T) {
	t.Parallel()

	chunks, err := Chunk("", 200, 20)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "" {
		t.Errorf("want one empty chunk, got %v", chunks)
	}
}

func Test_Chunk_WindowsAreTrimmed(t *testing.T) {
	t.Parallel()

	chunks, err := Chunk("  hello  ", 200, 20)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Errorf("want trimmed [\"hello\"], got %v", chunks)
	}
}

func Test_Chunk_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 15},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Chunk("some text", tc.size, tc.overlap)
			if !errors.Is(err, rag.ErrInvalidInput) {
				t.Errorf("want ErrInvalidInput, got %v", err)
			}
		})
	}
}
