// Package langchain adapts langchaingo embedding clients to the domain
// Embedder interface, for local OpenAI-compatible servers such as Ollama.
package langchain

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrModelRequired is returned when no embedding model is configured.
var ErrModelRequired = errors.New("embedding model required")

// Config configures the langchaingo-backed embedder.
type Config struct {
	// BaseURL of the OpenAI-compatible API, e.g. "http://localhost:11434/v1".
	BaseURL string
	// Token is sent as the bearer token. Local servers accept "none".
	Token string
	// Model is the embedding model identifier, e.g. "all-minilm".
	Model string
}

// Embedder implements domain.Embedder on top of langchaingo.
type Embedder struct {
	embedder  embeddings.Embedder
	model     string
	dimension atomic.Int64
	logger    *slog.Logger
}

// New creates the embedder.
func New(cfg Config) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, ErrModelRequired
	}
	if cfg.Token == "" {
		cfg.Token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(cfg.Token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, cfg.Model)
}

// NewWithClient wraps any langchaingo embedder client.
func NewWithClient(client embeddings.EmbedderClient, model string) (*Embedder, error) {
	if model == "" {
		return nil, ErrModelRequired
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}
	return &Embedder{
		embedder: embedder,
		model:    model,
		logger:   slog.Default().With("component", "langchain-embedder"),
	}, nil
}

// Name returns the embedding space identifier.
func (e *Embedder) Name() string { return "langchain:" + e.model }

// Prepare is a no-op for remote models.
func (e *Embedder) Prepare(corpus []string) error { return nil }

// Dimension is known after the first successful Embed.
func (e *Embedder) Dimension() int { return int(e.dimension.Load()) }

// Embed generates a vector for text, widened to float64.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	v, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	e.dimension.CompareAndSwap(0, int64(len(out)))
	return out, nil
}
