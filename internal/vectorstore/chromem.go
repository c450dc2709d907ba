package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
)

// ChromemConfig configures the embedded index. An empty Path keeps
// everything in memory.
type ChromemConfig struct {
	Path     string `json:"path"`
	Compress bool   `json:"compress"`
}

// Chromem is an in-process Index backed by chromem-go.
type Chromem struct {
	db   *chromem.DB
	mu   sync.Mutex
	dims map[string]int
}

var errNoEmbedder = errors.New("vectorstore: documents must carry precomputed vectors")

// noEmbed is handed to chromem so it never calls out to an embedding API.
func noEmbed(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedder
}

// NewChromem opens a persistent database at cfg.Path, or an in-memory one
// when the path is empty.
func NewChromem(cfg ChromemConfig) (*Chromem, error) {
	var (
		db  *chromem.DB
		err error
	)
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		path := expandHome(cfg.Path)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("chromem: create %s: %w", path, err)
		}
		db, err = chromem.NewPersistentDB(path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("chromem: open %s: %w", path, err)
		}
	}
	return &Chromem{db: db, dims: make(map[string]int)}, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func (c *Chromem) collection(name string) (*chromem.Collection, error) {
	coll, err := c.db.GetOrCreateCollection(name, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("chromem: collection %s: %w", name, err)
	}
	return coll, nil
}

// EnsureCollection creates the collection and pins its dimension when known.
func (c *Chromem) EnsureCollection(_ context.Context, name string, dimension int) error {
	if _, err := c.collection(name); err != nil {
		return err
	}
	if dimension > 0 {
		c.mu.Lock()
		if _, ok := c.dims[name]; !ok {
			c.dims[name] = dimension
		}
		c.mu.Unlock()
	}
	return nil
}

func (c *Chromem) checkDim(name string, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	want, ok := c.dims[name]
	if !ok {
		c.dims[name] = n
		return nil
	}
	if want != n {
		return fmt.Errorf("%w: collection %s holds %d, got %d", ErrDimensionMismatch, name, want, n)
	}
	return nil
}

func (c *Chromem) Upsert(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	coll, err := c.collection(collection)
	if err != nil {
		return err
	}
	out := make([]chromem.Document, 0, len(docs))
	for i, d := range docs {
		if len(d.Vector) == 0 {
			return fmt.Errorf("chromem: document %d: %w", i, errNoEmbedder)
		}
		if err := c.checkDim(collection, len(d.Vector)); err != nil {
			return err
		}
		out = append(out, chromem.Document{
			ID:        d.ID,
			Metadata:  d.Metadata,
			Embedding: d.Vector,
			Content:   d.Content,
		})
	}
	// Vectors are precomputed, so one worker is enough.
	if err := coll.AddDocuments(ctx, out, 1); err != nil {
		return fmt.Errorf("chromem: add to %s: %w", collection, err)
	}
	return nil
}

// Search caps topK at the collection size, which chromem requires.
func (c *Chromem) Search(ctx context.Context, collection string, vector []float32, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	coll := c.db.GetCollection(collection, noEmbed)
	if coll == nil {
		return nil, nil
	}
	n := coll.Count()
	if n == 0 {
		return nil, nil
	}
	if topK > n {
		topK = n
	}
	if err := c.checkDim(collection, len(vector)); err != nil {
		return nil, err
	}

	res, err := coll.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: query %s: %w", collection, err)
	}
	results := make([]SearchResult, len(res))
	for i, r := range res {
		results[i] = SearchResult{
			ID:       r.ID,
			Score:    r.Similarity,
			Content:  r.Content,
			Metadata: r.Metadata,
		}
	}
	return results, nil
}

// Count returns how many documents a collection holds.
func (c *Chromem) Count(collection string) int {
	coll := c.db.GetCollection(collection, noEmbed)
	if coll == nil {
		return 0
	}
	return coll.Count()
}

// Close is a no-op; persistent databases write on every add.
func (c *Chromem) Close() error { return nil }
