package vectorstore

import (
	"context"
	"errors"

	"bookrec/internal/domain"
)

// Payload keys written alongside every vector.
const (
	TextKey     = "text"
	ISBNKey     = "isbn"
	EmbedderKey = "embedder"
)

var (
	// ErrInvalidDimension is returned by Init for non-positive dimensions.
	ErrInvalidDimension = errors.New("invalid dimension")

	// ErrDimensionMismatch is returned when vectors do not match the collection.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrLengthMismatch is returned when documents and vectors differ in count.
	ErrLengthMismatch = errors.New("documents and vectors length mismatch")
)

// Storage persists vectors and supports similarity search.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, docs []domain.Document, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]domain.Hit, error)
	Clear(ctx context.Context) error
}
