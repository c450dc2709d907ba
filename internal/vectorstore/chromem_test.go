package vectorstore

import (
	"context"
	"errors"
	"testing"
)

func TestChromemUpsertSearch(t *testing.T) {
	idx, err := NewChromem(ChromemConfig{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if err := idx.EnsureCollection(ctx, "documents", 3); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	docs := []Document{
		{ID: "budget", Vector: []float32{1, 0, 0}, Content: "50/30/20 rule", Metadata: map[string]string{"source": "budget.md"}},
		{ID: "stocks", Vector: []float32{0, 1, 0}, Content: "index funds", Metadata: map[string]string{"source": "invest.md"}},
	}
	if err := idx.Upsert(ctx, "documents", docs); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if n := idx.Count("documents"); n != 2 {
		t.Fatalf("got %d documents, want 2", n)
	}

	// topK above the collection size is capped rather than rejected.
	hits, err := idx.Search(ctx, "documents", []float32{0.9, 0.1, 0}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].ID != "budget" || hits[0].Content != "50/30/20 rule" {
		t.Errorf("got top hit %+v, want budget", hits[0])
	}
	if hits[0].Metadata["source"] != "budget.md" {
		t.Errorf("metadata not kept: %v", hits[0].Metadata)
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("hits not sorted by score: %v, %v", hits[0].Score, hits[1].Score)
	}
}

func TestChromemSearchEmpty(t *testing.T) {
	idx, _ := NewChromem(ChromemConfig{})
	hits, err := idx.Search(context.Background(), "nothing", []float32{1, 0}, 4)
	if err != nil || len(hits) != 0 {
		t.Fatalf("got %v, %v; want no hits", hits, err)
	}
}

func TestChromemDimensionMismatch(t *testing.T) {
	idx, _ := NewChromem(ChromemConfig{})
	ctx := context.Background()
	idx.EnsureCollection(ctx, "documents", 3)

	err := idx.Upsert(ctx, "documents", []Document{{ID: "x", Vector: []float32{1, 0}}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("got %v, want ErrDimensionMismatch", err)
	}
}

func TestChromemRequiresVectors(t *testing.T) {
	idx, _ := NewChromem(ChromemConfig{})
	err := idx.Upsert(context.Background(), "documents", []Document{{ID: "x", Content: "no vector"}})
	if err == nil {
		t.Fatal("expected error for document without vector")
	}
}

func TestChromemPersistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	idx, err := NewChromem(ChromemConfig{Path: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	idx.Upsert(ctx, "documents", []Document{{ID: "a", Vector: []float32{1, 0}, Content: "kept"}})

	reopened, err := NewChromem(ChromemConfig{Path: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	hits, err := reopened.Search(ctx, "documents", []float32{1, 0}, 1)
	if err != nil || len(hits) != 1 || hits[0].Content != "kept" {
		t.Fatalf("got %v, %v; want persisted document", hits, err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(Config{Backend: "pinecone"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
