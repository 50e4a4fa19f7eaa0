package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"bookrec/internal/catalog"
	"bookrec/internal/domain"
	"bookrec/internal/isbn"
)

// DefaultTimeout bounds one similarity search round-trip.
const DefaultTimeout = 100 * time.Second

// Searcher is the query side of the vector index.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.Hit, error)
}

// Catalog is the read-only metadata lookup the engine joins against.
type Catalog interface {
	Select(keys map[int64]struct{}) []catalog.Book
	HasEmotion(e catalog.Emotion) bool
}

// Engine turns a free-text query into a filtered, sorted list of books.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	searcher Searcher
	catalog  Catalog
	timeout  time.Duration
	logger   *slog.Logger
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTimeout bounds each similarity search. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func NewEngine(searcher Searcher, books Catalog, opts ...Option) (*Engine, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if books == nil {
		return nil, ErrCatalogRequired
	}
	e := &Engine{
		searcher: searcher,
		catalog:  books,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine")
	return e, nil
}

// Retrieve runs one query: nearest-neighbour search, join by ISBN,
// category and tone refinement, truncation, and fallback to the unfiltered
// join when the filters leave nothing.
//
// Books come back in catalog order unless a tone is applied, in which case
// they are ordered by that emotion's score, highest first.
func (e *Engine) Retrieve(ctx context.Context, q Query) (Result, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return Result{Status: StatusEmptyQuery}, nil
	}
	pool := q.CandidatePoolSize
	if pool <= 0 {
		pool = DefaultCandidatePoolSize
	}
	limit := q.ResultLimit
	if limit <= 0 {
		limit = DefaultResultLimit
	}

	searchCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	hits, err := e.searcher.Search(searchCtx, text, pool)
	if err != nil {
		e.logger.Error("similarity search failed", "err", err)
		return Result{}, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	if len(hits) == 0 {
		return Result{Status: StatusNoCandidates, Notice: NoticeNoMatches}, nil
	}

	keys := make(map[int64]struct{}, len(hits))
	for _, h := range hits {
		key, err := isbn.ParseLeading(h.Document.Text)
		if err != nil {
			e.logger.Warn("skipping hit without isbn", "id", h.Document.ID, "err", err)
			continue
		}
		keys[key] = struct{}{}
	}
	joined := e.catalog.Select(keys)
	if missing := len(keys) - len(joined); missing > 0 {
		e.logger.Debug("hits missing from catalog", "missing", missing)
	}

	refined := joined
	if filterSet(q.Category) {
		refined = byCategory(refined, q.Category)
	}
	if filterSet(q.Tone) {
		refined = e.byTone(refined, q.Tone)
	}
	refined = truncate(refined, limit)

	if len(refined) > 0 {
		return Result{Books: refined, Status: StatusExact, Candidates: len(hits)}, nil
	}
	e.logger.Info("filters matched nothing, falling back",
		"category", q.Category, "tone", q.Tone, "joined", len(joined))
	return Result{
		Books:      truncate(joined, limit),
		Status:     StatusFallback,
		Degraded:   true,
		Notice:     NoticeFiltersTooStrict,
		Candidates: len(hits),
	}, nil
}

func byCategory(books []catalog.Book, category string) []catalog.Book {
	out := make([]catalog.Book, 0, len(books))
	for _, b := range books {
		if b.Category == category {
			out = append(out, b)
		}
	}
	return out
}

// byTone keeps books with a positive score for the tone's emotion, highest
// first. Unknown tones and emotions absent from the catalog leave books as is.
func (e *Engine) byTone(books []catalog.Book, tone string) []catalog.Book {
	emotion, ok := catalog.EmotionForTone(tone)
	if !ok {
		e.logger.Debug("ignoring unknown tone", "tone", tone)
		return books
	}
	if !e.catalog.HasEmotion(emotion) {
		e.logger.Debug("catalog has no emotion column", "emotion", emotion)
		return books
	}
	out := make([]catalog.Book, 0, len(books))
	for _, b := range books {
		if b.Score(emotion) > 0 {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score(emotion) > out[j].Score(emotion)
	})
	return out
}

func truncate(books []catalog.Book, limit int) []catalog.Book {
	if len(books) > limit {
		return books[:limit]
	}
	return books
}
