package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	// MaxRetries is the number of retries after a failed call; 0 makes every
	// embedding a single attempt. Unset means DefaultMaxRetries.
	MaxRetries *int `yaml:"max_retries,omitempty"`
}

// DefaultMaxRetries applies when max_retries is not set.
const DefaultMaxRetries = 3

// Retries returns the configured retry count.
func (c *OpenAIEmbedderConfig) Retries() int {
	if c == nil || c.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.MaxRetries
}

// LangchainEmbedderConfig configures the langchaingo-backed embedder.
type LangchainEmbedderConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// EmbedderConfig selects and configures the text embedder implementation.
// The same settings must be used for indexing and querying.
type EmbedderConfig struct {
	Type      string                   `yaml:"type"`
	OpenAI    *OpenAIEmbedderConfig    `yaml:"openai,omitempty"`
	Langchain *LangchainEmbedderConfig `yaml:"langchain,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	Distance    string `yaml:"distance"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ResolvedAPIKey prefers the inline key, then the named environment variable.
func (q QdrantConfig) ResolvedAPIKey() string {
	if q.APIKey != "" {
		return q.APIKey
	}
	if q.APIKeyEnv != "" {
		return os.Getenv(q.APIKeyEnv)
	}
	return ""
}

// CatalogConfig points at the book metadata CSV.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// CorpusConfig points at the "<isbn> <description>" corpus.
type CorpusConfig struct {
	Path string `yaml:"path"`
}

// IndexerConfig tunes the offline indexing run.
type IndexerConfig struct {
	BatchSize int `yaml:"batch_size"`
	Workers   int `yaml:"workers"`
}

// RetrievalConfig holds query-time defaults.
type RetrievalConfig struct {
	CandidatePoolSize int `yaml:"candidate_pool_size"`
	ResultLimit       int `yaml:"result_limit"`
	TimeoutSecs       int `yaml:"timeout_secs"`
}

// ServerConfig configures the HTTP gallery.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Corpus      CorpusConfig      `yaml:"corpus"`
	Indexer     IndexerConfig     `yaml:"indexer"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Server      ServerConfig      `yaml:"server"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/bookrec/config.yaml.
// If neither exists, it writes defaults to ~/.config/bookrec/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects unknown implementation types and incomplete backends.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Type {
	case "tfidf":
	case "openai":
		if c.Embedder.OpenAI == nil || c.Embedder.OpenAI.Model == "" {
			return fmt.Errorf("%w: embedder.openai.model is required", ErrInvalidConfig)
		}
	case "langchain":
		if c.Embedder.Langchain == nil || c.Embedder.Langchain.Model == "" {
			return fmt.Errorf("%w: embedder.langchain.model is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown embedder type %q", ErrInvalidConfig, c.Embedder.Type)
	}
	switch c.VectorStore.Type {
	case "memory":
	case "qdrant":
		q := c.VectorStore.Qdrant
		if q == nil || q.URL == "" {
			return fmt.Errorf("%w: vector_store.qdrant.url is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown vector store type %q", ErrInvalidConfig, c.VectorStore.Type)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("%w: catalog.path is required", ErrInvalidConfig)
	}
	if c.Corpus.Path == "" {
		return fmt.Errorf("%w: corpus.path is required", ErrInvalidConfig)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bookrec", "config.yaml"), nil
}

// Default returns the configuration used when no file is present: TF-IDF
// over the local corpus with an in-memory index.
func Default() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "tfidf"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Catalog:     CatalogConfig{Path: "books_with_emotions.csv"},
		Corpus:      CorpusConfig{Path: "tagged_description.txt"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "tfidf"
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.MaxRetries == nil {
			n := DefaultMaxRetries
			cfg.Embedder.OpenAI.MaxRetries = &n
		}
	}
	if cfg.Embedder.Type == "langchain" && cfg.Embedder.Langchain != nil {
		if cfg.Embedder.Langchain.APIKeyEnv == "" {
			cfg.Embedder.Langchain.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if q := cfg.VectorStore.Qdrant; q != nil {
		if q.Collection == "" {
			q.Collection = "semantic-book-recommender"
		}
		if q.Distance == "" {
			q.Distance = "Cosine"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 100
		}
		if q.APIKeyEnv == "" {
			q.APIKeyEnv = "QDRANT_API_KEY"
		}
	}
	if cfg.Indexer.BatchSize == 0 {
		cfg.Indexer.BatchSize = 64
	}
	if cfg.Indexer.Workers == 0 {
		cfg.Indexer.Workers = max(runtime.NumCPU()/2, 1)
	}
	if cfg.Retrieval.CandidatePoolSize == 0 {
		cfg.Retrieval.CandidatePoolSize = 150
	}
	if cfg.Retrieval.ResultLimit == 0 {
		cfg.Retrieval.ResultLimit = 50
	}
	if cfg.Retrieval.TimeoutSecs == 0 {
		cfg.Retrieval.TimeoutSecs = 100
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}
