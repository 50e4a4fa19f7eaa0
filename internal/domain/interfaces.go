package domain

import "context"

// Document is one unit of indexed text: a single corpus line of the form
// "<isbn> <description>".
type Document struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// Hit is a document returned by similarity search with its cosine score.
// Higher scores are nearer to the query.
type Hit struct {
	Document Document
	Score    float64
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
// Embed must be safe for concurrent use once Prepare has returned.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Chunker splits raw corpus text into documents suitable for indexing.
type Chunker interface {
	Split(text string) []string
}

// VectorIndex is the query- and index-time view of the vector index.
type VectorIndex interface {
	Index(ctx context.Context, docs []Document) error
	Search(ctx context.Context, query string, k int) ([]Hit, error)
}
