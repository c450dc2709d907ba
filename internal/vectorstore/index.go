// Package vectorstore stores embedded document chunks and finds the ones
// closest to a query vector.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when a vector does not fit its collection.
var ErrDimensionMismatch = errors.New("vectorstore: dimension mismatch")

// Document is one embedded chunk.
type Document struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata map[string]string
}

// SearchResult holds a single vector search hit.
type SearchResult struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]string
}

// Index is a collection-oriented vector store.
type Index interface {
	EnsureCollection(ctx context.Context, name string, dimension int) error
	Upsert(ctx context.Context, collection string, docs []Document) error
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]SearchResult, error)
	Close() error
}

// Config selects and configures an Index backend.
type Config struct {
	Backend string        `json:"backend"` // chromem|qdrant
	Chromem ChromemConfig `json:"chromem"`
	Qdrant  QdrantConfig  `json:"qdrant"`
}

// Open returns the backend named by cfg.Backend.
func Open(cfg Config) (Index, error) {
	var (
		idx Index
		err error
	)
	switch cfg.Backend {
	case "chromem", "":
		idx, err = NewChromem(cfg.Chromem)
	case "qdrant":
		idx, err = NewQdrant(cfg.Qdrant)
	default:
		return nil, fmt.Errorf("vectorstore: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return idx, nil
}
