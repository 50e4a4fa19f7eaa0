package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"bookrec/internal/domain"
	"bookrec/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
// Entries are keyed by document ID; upserting an existing ID replaces it in place.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	docs      []domain.Document
	vectors   [][]float64
	norms     []float64
	byID      map[string]int
}

func NewStorage() *Storage { return &Storage{byID: make(map[string]int)} }

// Init fixes the collection dimension. Re-initializing with the same
// dimension keeps existing entries.
func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return vectorstore.ErrInvalidDimension
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("%w: collection has %d, got %d", vectorstore.ErrDimensionMismatch, s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(_ context.Context, docs []domain.Document, vectors [][]float64) error {
	if len(docs) != len(vectors) {
		return vectorstore.ErrLengthMismatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return vectorstore.ErrDimensionMismatch
		}
	}
	for i, d := range docs {
		if j, ok := s.byID[d.ID]; ok {
			s.docs[j] = d
			s.vectors[j] = vectors[i]
			s.norms[j] = norm(vectors[i])
			continue
		}
		s.byID[d.ID] = len(s.docs)
		s.docs = append(s.docs, d)
		s.vectors = append(s.vectors, vectors[i])
		s.norms = append(s.norms, norm(vectors[i]))
	}
	return nil
}

// Search returns up to topK entries by descending cosine similarity.
// Equal scores keep insertion order, so repeated queries are stable.
func (s *Storage) Search(_ context.Context, vector []float64, topK int) ([]domain.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	qn := norm(vector)
	idxs := make([]int, len(s.vectors))
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		idxs[i] = i
		if qn > 0 && s.norms[i] > 0 {
			scores[i] = dot(s.vectors[i], vector) / (qn * s.norms[i])
		}
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.Hit, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, domain.Hit{Document: s.docs[j], Score: scores[j]})
	}
	return results, nil
}

// Len returns the number of stored entries.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = 0
	s.docs = nil
	s.vectors = nil
	s.norms = nil
	s.byID = make(map[string]int)
	return nil
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(v []float64) float64 {
	return math.Sqrt(dot(v, v))
}
