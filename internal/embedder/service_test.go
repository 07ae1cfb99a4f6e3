package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ragstack/ragserve/internal/rag"
)

// newEmbedServer starts an httptest server answering POST /embed with the
// given handler and returns a Service pointed at it.
func newEmbedServer(t *testing.T, dims int, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := New(&Config{BaseURL: srv.URL, Dimensions: dims})
	if err != nil {
		t.Fatalf("new embedder: %v", err)
	}
	return s
}

func Test_Embed_Success(t *testing.T) {
	t.Parallel()

	var gotPath, gotText string
	s := newEmbedServer(t, 3, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotText = req["text"]
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.1, 0.2, 0.3}})
	})

	vec, err := s.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}

	if gotPath != "/embed" {
		t.Errorf("want POST /embed, got %s", gotPath)
	}
	if gotText != "hello world" {
		t.Errorf("want text forwarded, got %q", gotText)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("unexpected vector %v", vec)
	}
}

func Test_Embed_DimensionMismatchIsSchemaViolation(t *testing.T) {
	t.Parallel()

	s := newEmbedServer(t, 384, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{1, 2}})
	})

	_, err := s.Embed(context.Background(), "text")
	if !errors.Is(err, rag.ErrSchemaViolation) {
		t.Errorf("want ErrSchemaViolation, got %v", err)
	}
}

func Test_Embed_MalformedBodyIsSchemaViolation(t *testing.T) {
	t.Parallel()

	s := newEmbedServer(t, 3, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := s.Embed(context.Background(), "text")
	if !errors.Is(err, rag.ErrSchemaViolation) {
		t.Errorf("want ErrSchemaViolation, got %v", err)
	}
}

func Test_Embed_NonSuccessStatusIsRemoteError(t *testing.T) {
	t.Parallel()

	s := newEmbedServer(t, 3, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "model not loaded"})
	})

	_, err := s.Embed(context.Background(), "text")
	if !errors.Is(err, rag.ErrRemoteError) {
		t.Errorf("want ErrRemoteError, got %v", err)
	}
	// The service's own error message is surfaced.
	if got := err.Error(); !strings.Contains(got, "model not loaded") {
		t.Errorf("want remote message in error, got %q", got)
	}
}

func Test_Embed_UnreachableIsRemoteUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // port is now refused

	s, err := New(&Config{BaseURL: url, Dimensions: 3})
	if err != nil {
		t.Fatalf("new embedder: %v", err)
	}

	_, err = s.Embed(context.Background(), "text")
	if !errors.Is(err, rag.ErrRemoteUnavailable) {
		t.Errorf("want ErrRemoteUnavailable, got %v", err)
	}
}

func Test_New_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); err == nil {
		t.Error("nil config: want error")
	}
	if _, err := New(&Config{BaseURL: ""}); err == nil {
		t.Error("empty base URL: want error")
	}
	if _, err := New(&Config{BaseURL: "http://x", Dimensions: 0}); err == nil {
		t.Error("zero dimensions: want error")
	}
}
