// Package rag answers open-ended questions by retrieving document chunks
// similar to the question and handing them to a chat model.
package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nidhogg/smart-money/internal/embedding"
	"github.com/nidhogg/smart-money/internal/vectorstore"
	"go.uber.org/zap"
)

const (
	// DefaultCollection holds the ingested financial literacy corpus.
	DefaultCollection = "documents"
	// DefaultTopK is how many chunks are retrieved per question.
	DefaultTopK = 4

	sourceKey = "source"
)

// Result holds a single retrieval result with its source and relevance score.
type Result struct {
	Content string
	Source  string
	Score   float32
}

// Searcher finds context for a question.
type Searcher interface {
	Retrieve(ctx context.Context, query string) ([]Result, error)
}

// Retriever embeds a query and searches one collection of an index.
type Retriever struct {
	embedder   embedding.Provider
	index      vectorstore.Index
	collection string
	topK       int
	logger     *zap.Logger
}

// NewRetriever creates a Retriever. Empty collection and non-positive topK
// take DefaultCollection and DefaultTopK.
func NewRetriever(embedder embedding.Provider, index vectorstore.Index, collection string, topK int, logger *zap.Logger) *Retriever {
	if collection == "" {
		collection = DefaultCollection
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		embedder:   embedder,
		index:      index,
		collection: collection,
		topK:       topK,
		logger:     logger,
	}
}

// Retrieve returns up to topK chunks sorted by descending score.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Result, error) {
	qvec, err := embedding.Embed1(ctx, r.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.index.Search(ctx, r.collection, qvec, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", r.collection, err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		if strings.TrimSpace(h.Content) == "" {
			continue
		}
		source := h.Metadata[sourceKey]
		if source == "" {
			source = r.collection + ":" + h.ID
		}
		results = append(results, Result{Content: h.Content, Source: source, Score: h.Score})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > r.topK {
		results = results[:r.topK]
	}
	r.logger.Debug("retrieved context", zap.String("collection", r.collection), zap.Int("results", len(results)))
	return results, nil
}

// FormatContext renders results into a prompt-friendly string.
func FormatContext(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Retrieved Context\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. [%s] (score: %.2f)\n%s\n\n", i+1, r.Source, r.Score, r.Content)
	}
	return b.String()
}
