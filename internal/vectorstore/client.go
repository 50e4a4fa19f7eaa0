package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"bookrec/internal/domain"
)

var (
	// ErrInvalidTopK is returned by Search for a non-positive result count.
	ErrInvalidTopK = errors.New("k must be positive")

	// ErrEmbedderRequired is returned when a client is built without an embedder.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrStorageRequired is returned when a client is built without storage.
	ErrStorageRequired = errors.New("storage required")
)

// Client binds an embedder to a storage backend and exposes the
// index/search view used by the indexer and the retrieval engine.
type Client struct {
	embedder domain.Embedder
	storage  Storage
	pool     *ants.Pool
	logger   *slog.Logger

	initMu   sync.Mutex
	initDims int
}

var _ domain.VectorIndex = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithWorkers sets how many documents are embedded concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithWorkers(n int) Option {
	return func(c *Client) error {
		if n < 1 {
			n = 1
		}
		if c.pool != nil {
			c.pool.Release()
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		c.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

func NewClient(embedder domain.Embedder, storage Storage, opts ...Option) (*Client, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if storage == nil {
		return nil, ErrStorageRequired
	}
	size := runtime.NumCPU() / 2
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	c := &Client{
		embedder: embedder,
		storage:  storage,
		pool:     pool,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			c.Close()
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "vectorstore")
	return c, nil
}

// Embedder returns the embedder vectors are produced with.
func (c *Client) Embedder() domain.Embedder { return c.embedder }

// Index embeds docs concurrently and upserts them in one call. Each
// document's metadata is stamped with the embedder name so mismatched
// query-time configuration can be detected. The first embedding error
// aborts the batch before anything is written.
func (c *Client) Index(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := c.ensureInit(ctx); err != nil {
		return err
	}

	vectors := make([][]float64, len(docs))
	errs := make([]error, len(docs))
	var wg sync.WaitGroup
	for i := range docs {
		wg.Add(1)
		i := i
		submitErr := c.pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			vectors[i], errs[i] = c.embedder.Embed(ctx, docs[i].Text)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("embed document %s: %w", docs[i].ID, err)
		}
	}

	name := c.embedder.Name()
	stamped := make([]domain.Document, len(docs))
	for i, d := range docs {
		meta := make(map[string]any, len(d.Metadata)+1)
		for k, v := range d.Metadata {
			meta[k] = v
		}
		meta[EmbedderKey] = name
		stamped[i] = domain.Document{ID: d.ID, Text: d.Text, Metadata: meta}
	}
	if err := c.storage.Upsert(ctx, stamped, vectors); err != nil {
		return fmt.Errorf("upsert %d documents: %w", len(docs), err)
	}
	c.logger.Debug("indexed batch", "documents", len(docs))
	return nil
}

// Search embeds the query and returns up to k hits, nearest first.
func (c *Client) Search(ctx context.Context, query string, k int) ([]domain.Hit, error) {
	if k <= 0 {
		return nil, ErrInvalidTopK
	}
	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := c.storage.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	name := c.embedder.Name()
	for _, h := range hits {
		if indexed, ok := h.Document.Metadata[EmbedderKey].(string); ok && indexed != name {
			c.logger.Warn("index was built with a different embedder",
				"indexed", indexed, "query", name)
			break
		}
	}
	return hits, nil
}

// Reset drops every indexed vector.
func (c *Client) Reset(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if err := c.storage.Clear(ctx); err != nil {
		return err
	}
	c.initDims = 0
	return nil
}

// Close releases the embedding worker pool.
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Release()
	}
}

func (c *Client) ensureInit(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	dims := c.embedder.Dimension()
	if dims <= 0 {
		// Dimension is discovered on the first remote call for some embedders.
		vec, err := c.embedder.Embed(ctx, "dimension probe")
		if err != nil {
			return fmt.Errorf("probe embedding dimension: %w", err)
		}
		dims = len(vec)
	}
	if c.initDims == dims {
		return nil
	}
	if err := c.storage.Init(ctx, dims); err != nil {
		return err
	}
	c.initDims = dims
	return nil
}
