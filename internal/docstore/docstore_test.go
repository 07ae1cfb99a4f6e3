package docstore

import (
	"context"
	"testing"
)

// openTestStore opens an in-memory Store for use in tests.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_Docstore_StoreAndGet(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	token, err := s.Store(ctx, "the full document text")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if token == "" {
		t.Fatal("want non-empty commit token")
	}

	content, err := s.Get(ctx, token)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if content != "the full document text" {
		t.Errorf("want stored text back, got %q", content)
	}
}

func Test_Docstore_SameTextDistinctCommits(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	t1, err := s.Store(ctx, "identical text")
	if err != nil {
		t.Fatalf("first store: %v", err)
	}
	t2, err := s.Store(ctx, "identical text")
	if err != nil {
		t.Fatalf("second store: %v", err)
	}

	if t1 == t2 {
		t.Error("want distinct commit tokens for repeated stores")
	}
}

func Test_Docstore_GetUnknownToken(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "no-such-token")
	if err == nil {
		t.Fatal("want error for unknown token")
	}
}

func Test_Docstore_CloseIsIdempotentEnough(t *testing.T) {
	t.Parallel()

	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := s.Store(context.Background(), "after close"); err == nil {
		t.Fatal("want error storing on a closed database")
	}
}
