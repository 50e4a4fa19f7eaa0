// Package catalog loads the book metadata table and serves read-only
// lookups by ISBN. A Store is built once at startup and never mutated,
// so it is safe for concurrent use without locking.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"bookrec/internal/isbn"
)

var (
	// ErrMissingColumn is returned when a required header column is absent.
	ErrMissingColumn = errors.New("missing required column")

	// ErrEmptyCatalog is returned when the file has a header but no usable rows.
	ErrEmptyCatalog = errors.New("catalog has no books")
)

// Store is the in-memory metadata catalog.
type Store struct {
	books      []Book
	byISBN     map[int64]int
	emotions   map[Emotion]bool
	categories []string
}

// Option configures loading.
type Option func(*loader)

// WithLogger sets the logger used to report skipped rows.
func WithLogger(logger *slog.Logger) Option {
	return func(l *loader) {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
	}
}

type loader struct {
	logger *slog.Logger
}

// Load reads the catalog CSV at path.
func Load(path string, opts ...Option) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f, opts...)
}

// Parse reads a catalog CSV stream. Columns are addressed by header name;
// unknown columns are ignored. Rows with an unparsable or duplicate ISBN
// are skipped.
func Parse(r io.Reader, opts ...Option) (*Store, error) {
	l := &loader{logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	logger := l.logger.With("component", "catalog")

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	cols := indexHeader(header)

	isbnCol, ok := cols.first("isbn13", "isbn")
	if !ok {
		return nil, fmt.Errorf("%w: isbn13", ErrMissingColumn)
	}
	titleCol, ok := cols.first("title")
	if !ok {
		return nil, fmt.Errorf("%w: title", ErrMissingColumn)
	}
	authorsCol, _ := cols.first("authors")
	categoryCol, _ := cols.first("simple_categories", "category")
	descCol, _ := cols.first("description")
	thumbCol, _ := cols.first("thumbnail")
	pagesCol, _ := cols.first("num_pages")
	ratingCol, _ := cols.first("average_rating")
	yearCol, _ := cols.first("published_year")

	emotionCols := make(map[Emotion]int)
	for _, e := range Emotions {
		if i, ok := cols.first(string(e)); ok {
			emotionCols[e] = i
		}
	}

	s := &Store{
		byISBN:   make(map[int64]int),
		emotions: make(map[Emotion]bool, len(emotionCols)),
	}
	for e := range emotionCols {
		s.emotions[e] = true
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read catalog line %d: %w", line, err)
		}

		key, err := isbn.ParseLeading(field(rec, isbnCol))
		if err != nil {
			logger.Warn("skipping row with invalid isbn", "line", line, "err", err)
			continue
		}
		if _, dup := s.byISBN[key]; dup {
			logger.Warn("skipping duplicate isbn", "line", line, "isbn", key)
			continue
		}

		thumb := field(rec, thumbCol)
		b := Book{
			ISBN:           key,
			Title:          field(rec, titleCol),
			Authors:        field(rec, authorsCol),
			Category:       field(rec, categoryCol),
			Description:    field(rec, descCol),
			Thumbnail:      thumb,
			LargeThumbnail: largeThumbnail(thumb),
			NumPages:       parseInt(field(rec, pagesCol)),
			AverageRating:  parseFloat(field(rec, ratingCol)),
			PublishedYear:  parseInt(field(rec, yearCol)),
			Emotions:       make(map[Emotion]float64, len(emotionCols)),
		}
		for e, i := range emotionCols {
			if v := parseFloat(field(rec, i)); v != nil {
				b.Emotions[e] = *v
			}
		}

		s.byISBN[key] = len(s.books)
		s.books = append(s.books, b)
	}

	if len(s.books) == 0 {
		return nil, ErrEmptyCatalog
	}
	s.categories = distinctCategories(s.books)
	logger.Info("catalog loaded", "books", len(s.books), "categories", len(s.categories))
	return s, nil
}

// NewStore builds a catalog from already-parsed books. Only the listed
// emotions are reported by HasEmotion; with none listed, all are.
func NewStore(books []Book, emotions ...Emotion) *Store {
	if len(emotions) == 0 {
		emotions = Emotions
	}
	s := &Store{
		byISBN:   make(map[int64]int, len(books)),
		emotions: make(map[Emotion]bool, len(emotions)),
	}
	for _, e := range emotions {
		s.emotions[e] = true
	}
	for _, b := range books {
		if _, dup := s.byISBN[b.ISBN]; dup {
			continue
		}
		if b.LargeThumbnail == "" {
			b.LargeThumbnail = largeThumbnail(b.Thumbnail)
		}
		s.byISBN[b.ISBN] = len(s.books)
		s.books = append(s.books, b)
	}
	s.categories = distinctCategories(s.books)
	return s
}

// Len returns the number of books.
func (s *Store) Len() int { return len(s.books) }

// Get returns the book with the given ISBN.
func (s *Store) Get(key int64) (Book, bool) {
	i, ok := s.byISBN[key]
	if !ok {
		return Book{}, false
	}
	return s.books[i], true
}

// Select returns the books whose ISBN is in keys, in catalog order.
func (s *Store) Select(keys map[int64]struct{}) []Book {
	idx := make([]int, 0, len(keys))
	for k := range keys {
		if i, ok := s.byISBN[k]; ok {
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)
	out := make([]Book, len(idx))
	for j, i := range idx {
		out[j] = s.books[i]
	}
	return out
}

// HasEmotion reports whether the catalog carries the emotion column.
func (s *Store) HasEmotion(e Emotion) bool { return s.emotions[e] }

// Categories returns the distinct non-empty categories, sorted.
func (s *Store) Categories() []string {
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out
}

type columns map[string]int

func indexHeader(cols []string) columns {
	h := make(columns, len(cols))
	for i, c := range cols {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(c, "\ufeff")))
		if _, exists := h[name]; !exists {
			h[name] = i
		}
	}
	return h
}

func (h columns) first(names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := h[n]; ok {
			return i, true
		}
	}
	return -1, false
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func isNull(v string) bool {
	switch strings.ToLower(v) {
	case "", "nan", "null", "none", "n/a":
		return true
	}
	return false
}

func parseFloat(v string) *float64 {
	if isNull(v) {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

// parseInt accepts "247" and the "247.0" form written for nullable columns.
func parseInt(v string) *int {
	f := parseFloat(v)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

func distinctCategories(books []Book) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, b := range books {
		if b.Category == "" {
			continue
		}
		if _, ok := seen[b.Category]; ok {
			continue
		}
		seen[b.Category] = struct{}{}
		out = append(out, b.Category)
	}
	sort.Strings(out)
	return out
}
