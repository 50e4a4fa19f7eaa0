package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"bookrec/internal/catalog"
	"bookrec/internal/chunker"
	"bookrec/internal/config"
	"bookrec/internal/domain"
	"bookrec/internal/embedding/langchain"
	"bookrec/internal/embedding/openai"
	"bookrec/internal/embedding/tfidf"
	"bookrec/internal/indexer"
	"bookrec/internal/service"
	"bookrec/internal/vectorstore"
	"bookrec/internal/vectorstore/memory"
	"bookrec/internal/vectorstore/qdrant"
)

// components are built once per process and passed explicitly to the
// adapters.
type components struct {
	catalog  *catalog.Store
	client   *vectorstore.Client
	indexer  *indexer.Indexer
	engine   *service.Engine
	defaults service.Query
}

func (c *components) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func loadConfig(c *cli.Context) (*config.AppConfig, error) {
	var (
		cfg  *config.AppConfig
		path = c.String("config")
		err  error
	)
	if path == "" {
		cfg, path, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("config loaded", "path", path, "embedder", cfg.Embedder.Type, "vector_store", cfg.VectorStore.Type)
	return cfg, nil
}

// build assembles the pipeline. With serving set, the catalog and engine
// are built too, and the embedder is made ready for queries: an in-memory
// index is populated from the corpus, a corpus-fitted embedder is prepared.
func build(ctx context.Context, cfg *config.AppConfig, serving bool) (*components, error) {
	logger := slog.Default()
	emb, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	st, err := buildStorage(cfg)
	if err != nil {
		return nil, err
	}
	client, err := vectorstore.NewClient(emb, st,
		vectorstore.WithWorkers(cfg.Indexer.Workers),
		vectorstore.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	comp := &components{
		client: client,
		defaults: service.Query{
			CandidatePoolSize: cfg.Retrieval.CandidatePoolSize,
			ResultLimit:       cfg.Retrieval.ResultLimit,
		},
	}
	comp.indexer, err = indexer.New(chunker.NewLineChunker(), emb, client,
		indexer.WithBatchSize(cfg.Indexer.BatchSize),
		indexer.WithLogger(logger))
	if err != nil {
		comp.Close()
		return nil, err
	}
	if !serving {
		return comp, nil
	}

	comp.catalog, err = catalog.Load(cfg.Catalog.Path, catalog.WithLogger(logger))
	if err != nil {
		comp.Close()
		return nil, err
	}
	switch {
	case cfg.VectorStore.Type == "memory":
		if _, err := comp.indexer.Run(ctx, cfg.Corpus.Path, false); err != nil {
			comp.Close()
			return nil, fmt.Errorf("index corpus: %w", err)
		}
	case cfg.Embedder.Type == "tfidf":
		if err := comp.indexer.Prepare(cfg.Corpus.Path); err != nil {
			comp.Close()
			return nil, err
		}
	}
	comp.engine, err = service.NewEngine(client, comp.catalog,
		service.WithTimeout(time.Duration(cfg.Retrieval.TimeoutSecs)*time.Second),
		service.WithLogger(logger))
	if err != nil {
		comp.Close()
		return nil, err
	}
	return comp, nil
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		o := cfg.Embedder.OpenAI
		client, err := openai.NewClient(openai.Config{
			BaseURL:    o.BaseURL,
			APIKeyEnv:  o.APIKeyEnv,
			Model:      o.Model,
			Timeout:    time.Duration(o.TimeoutSecs) * time.Second,
			MaxRetries: o.Retries(),
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	case "langchain":
		l := cfg.Embedder.Langchain
		emb, err := langchain.New(langchain.Config{
			BaseURL: l.BaseURL,
			Token:   os.Getenv(l.APIKeyEnv),
			Model:   l.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("langchain embedder init failed: %w", err)
		}
		return emb, nil
	}
	return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
}

func buildStorage(cfg *config.AppConfig) (vectorstore.Storage, error) {
	switch cfg.VectorStore.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		return qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.ResolvedAPIKey(),
			Collection: q.Collection,
			Distance:   q.Distance,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		})
	}
	return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
}
