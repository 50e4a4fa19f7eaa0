// Package indexer turns the description corpus into vector index entries.
// It runs offline, once per corpus revision.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"bookrec/internal/chunker"
	"bookrec/internal/domain"
	"bookrec/internal/isbn"
	"bookrec/internal/vectorstore"
)

// DefaultBatchSize is how many documents are upserted per storage call.
const DefaultBatchSize = 64

var (
	// ErrEmptyCorpus is returned when the corpus holds no non-blank lines.
	ErrEmptyCorpus = errors.New("corpus is empty")

	// ErrIndexRequired is returned when an indexer is built without an index.
	ErrIndexRequired = errors.New("vector index required")
)

// namespace scopes the deterministic point IDs of this application.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("bookrec/corpus"))

// PointID is the index entry ID for a book, stable across runs so that
// re-indexing overwrites instead of appending.
func PointID(key int64) string {
	return uuid.NewSHA1(namespace, []byte("isbn:"+isbn.Format(key))).String()
}

func linePointID(text string) string {
	return uuid.NewSHA1(namespace, []byte("line:"+text)).String()
}

// Index is the write side of the vector index.
type Index interface {
	Index(ctx context.Context, docs []domain.Document) error
	Reset(ctx context.Context) error
}

// Report summarizes a run.
type Report struct {
	Documents  int // non-blank corpus lines
	Indexed    int // entries written
	Malformed  int // lines without a leading numeric ISBN, still indexed
	Duplicates int // lines superseded by a later line with the same ISBN
}

type Indexer struct {
	chunker   domain.Chunker
	embedder  domain.Embedder
	index     Index
	batchSize int
	logger    *slog.Logger
}

type Option func(*Indexer)

// WithBatchSize sets the number of documents per upsert.
func WithBatchSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

// New builds an indexer. The embedder must be the one the index embeds
// with; it is prepared over the corpus before any document is embedded.
func New(splitter domain.Chunker, embedder domain.Embedder, index Index, opts ...Option) (*Indexer, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, vectorstore.ErrEmbedderRequired
	}
	if splitter == nil {
		splitter = chunker.NewLineChunker()
	}
	ix := &Indexer{
		chunker:   splitter,
		embedder:  embedder,
		index:     index,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	ix.logger = ix.logger.With("component", "indexer")
	return ix, nil
}

// Run indexes the corpus file at path. With reset, the collection is
// cleared first. Any failure aborts the run.
func (ix *Indexer) Run(ctx context.Context, path string, reset bool) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("read corpus: %w", err)
	}
	return ix.RunText(ctx, string(data), reset)
}

// Prepare readies the embedder over the corpus at path without writing to
// the index. Query-only processes call it so a corpus-fitted embedder
// reproduces the vector space the index was built in.
func (ix *Indexer) Prepare(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read corpus: %w", err)
	}
	_, _, err = ix.prepare(string(data))
	return err
}

// RunText indexes an in-memory corpus.
func (ix *Indexer) RunText(ctx context.Context, text string, reset bool) (Report, error) {
	docs, report, err := ix.prepare(text)
	if err != nil {
		return report, err
	}

	if reset {
		ix.logger.Info("clearing collection")
		if err := ix.index.Reset(ctx); err != nil {
			return report, fmt.Errorf("reset index: %w", err)
		}
	}

	for start := 0; start < len(docs); start += ix.batchSize {
		end := min(start+ix.batchSize, len(docs))
		if err := ix.index.Index(ctx, docs[start:end]); err != nil {
			return report, fmt.Errorf("index documents %d-%d: %w", start, end-1, err)
		}
		report.Indexed = end
		ix.logger.Debug("batch indexed", "indexed", end, "total", len(docs))
	}
	ix.logger.Info("corpus indexed",
		"documents", report.Documents,
		"indexed", report.Indexed,
		"malformed", report.Malformed,
		"duplicates", report.Duplicates,
		"embedder", ix.embedder.Name())
	return report, nil
}

func (ix *Indexer) prepare(text string) ([]domain.Document, Report, error) {
	lines := ix.chunker.Split(text)
	if len(lines) == 0 {
		return nil, Report{}, ErrEmptyCorpus
	}
	docs, report := ix.documents(lines)
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	if err := ix.embedder.Prepare(texts); err != nil {
		return nil, report, fmt.Errorf("prepare embedder: %w", err)
	}
	return docs, report, nil
}

// documents assigns point IDs. A later line with an already seen ID
// replaces the earlier one in place.
func (ix *Indexer) documents(lines []string) ([]domain.Document, Report) {
	report := Report{Documents: len(lines)}
	docs := make([]domain.Document, 0, len(lines))
	pos := make(map[string]int, len(lines))
	for _, line := range lines {
		doc := domain.Document{Text: line}
		key, err := isbn.ParseLeading(line)
		if err != nil {
			report.Malformed++
			ix.logger.Warn("corpus line has no isbn", "err", err)
			doc.ID = linePointID(line)
		} else {
			doc.ID = PointID(key)
			doc.Metadata = map[string]any{vectorstore.ISBNKey: key}
		}
		if i, ok := pos[doc.ID]; ok {
			report.Duplicates++
			docs[i] = doc
			continue
		}
		pos[doc.ID] = len(docs)
		docs = append(docs, doc)
	}
	return docs, report
}
