package rag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nidhogg/smart-money/internal/embedding"
	"github.com/nidhogg/smart-money/internal/vectorstore"
	"go.uber.org/zap"
)

// defaultBatch is how many chunks go into a single embedding request.
const defaultBatch = 32

// Indexer embeds text chunks and writes them to a collection.
type Indexer struct {
	embedder   embedding.Provider
	index      vectorstore.Index
	collection string
	batch      int
	logger     *zap.Logger

	ensureOnce sync.Once
	ensureErr  error
}

// NewIndexer creates an Indexer writing to collection (DefaultCollection if empty).
func NewIndexer(embedder embedding.Provider, index vectorstore.Index, collection string, logger *zap.Logger) *Indexer {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Indexer{
		embedder:   embedder,
		index:      index,
		collection: collection,
		batch:      defaultBatch,
		logger:     logger,
	}
}

// Store embeds and upserts a single chunk.
func (ix *Indexer) Store(ctx context.Context, content string, metadata map[string]string) error {
	_, err := ix.StoreAll(ctx, []string{content}, metadata)
	return err
}

// StoreAll embeds chunks in batches and upserts them, all sharing metadata.
// It returns how many chunks were written before any error.
func (ix *Indexer) StoreAll(ctx context.Context, chunks []string, metadata map[string]string) (int, error) {
	written := 0
	for start := 0; start < len(chunks); start += ix.batch {
		end := min(start+ix.batch, len(chunks))
		part := chunks[start:end]

		vecs, err := ix.embedder.Embed(ctx, part)
		if err != nil {
			return written, fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		if len(vecs) != len(part) {
			return written, fmt.Errorf("embed chunks %d-%d: got %d vectors", start, end, len(vecs))
		}
		if err := ix.ensure(ctx, len(vecs[0])); err != nil {
			return written, err
		}

		docs := make([]vectorstore.Document, len(part))
		indexedAt := time.Now().UTC().Format(time.RFC3339)
		for i, text := range part {
			meta := make(map[string]string, len(metadata)+1)
			for k, v := range metadata {
				meta[k] = v
			}
			meta["indexed_at"] = indexedAt
			docs[i] = vectorstore.Document{
				ID:       uuid.New().String(),
				Vector:   vecs[i],
				Content:  text,
				Metadata: meta,
			}
		}
		if err := ix.index.Upsert(ctx, ix.collection, docs); err != nil {
			return written, fmt.Errorf("upsert chunks %d-%d: %w", start, end, err)
		}
		written += len(docs)
	}
	ix.logger.Debug("indexed chunks",
		zap.String("collection", ix.collection),
		zap.String("source", metadata[sourceKey]),
		zap.Int("count", written),
	)
	return written, nil
}

func (ix *Indexer) ensure(ctx context.Context, dim int) error {
	ix.ensureOnce.Do(func() {
		ix.ensureErr = ix.index.EnsureCollection(ctx, ix.collection, dim)
	})
	if ix.ensureErr != nil {
		return fmt.Errorf("ensure collection %s: %w", ix.collection, ix.ensureErr)
	}
	return nil
}
