// Package config loads and validates the backend configuration from a TOML
// file with environment variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/brightpath-ai/mathtutor/internal/core/domain"
)

// Environment variables that override file values. API keys should never
// live in the config file.
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvDataDir      = "MATHTUTOR_DATA_DIR"
)

// Config is the full configuration surface consumed by the core.
type Config struct {
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Generation GenerationConfig `toml:"generation"`
	Chunking   ChunkingConfig   `toml:"chunking"`
	Retrieval  RetrievalConfig  `toml:"retrieval"`
	Prompt     PromptConfig     `toml:"prompt"`
	Index      IndexConfig      `toml:"index"`
	Server     ServerConfig     `toml:"server"`
}

// EmbeddingConfig configures the remote embedding model.
type EmbeddingConfig struct {
	Model          string `toml:"model"`
	APIKey         string `toml:"-"`
	BaseURL        string `toml:"base_url"`
	BatchSize      int    `toml:"batch_size"`
	MaxAttempts    int    `toml:"max_attempts"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// GenerationConfig configures the remote chat-completion model.
type GenerationConfig struct {
	Model          string  `toml:"model"`
	APIKey         string  `toml:"-"`
	BaseURL        string  `toml:"base_url"`
	MaxTokens      int     `toml:"max_tokens"`
	Temperature    float64 `toml:"temperature"`
	TopP           float64 `toml:"top_p"`
	MaxAttempts    int     `toml:"max_attempts"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// ChunkingConfig configures the document splitter.
type ChunkingConfig struct {
	MaxChunkSize int `toml:"max_chunk_size"`
	Overlap      int `toml:"overlap"`
}

// RetrievalConfig configures candidate selection and filtering.
type RetrievalConfig struct {
	KCandidates   int     `toml:"k_candidates"`
	KFinal        int     `toml:"k_final"`
	MinSimilarity float64 `toml:"min_similarity"`
	PerSourceCap  int     `toml:"per_source_cap"`
}

// PromptConfig bounds the assembled prompt.
type PromptConfig struct {
	TokenBudget int `toml:"token_budget"`
}

// IndexConfig selects and locates the vector index backend.
type IndexConfig struct {
	// Backend is "sqlite" or "memory".
	Backend string `toml:"backend"`

	// DataDir holds the index database. Empty means ~/.mathtutor/data.
	DataDir string `toml:"data_dir"`
}

// ServerConfig configures the HTTP front.
type ServerConfig struct {
	Addr              string   `toml:"addr"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
	AllowedOrigins    []string `toml:"allowed_origins"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Embedding: EmbeddingConfig{
			Model:          "text-embedding-004",
			BatchSize:      100,
			MaxAttempts:    3,
			TimeoutSeconds: 30,
		},
		Generation: GenerationConfig{
			Model:          "gemini-2.0-flash",
			MaxTokens:      1200,
			Temperature:    0.2,
			TopP:           0.9,
			MaxAttempts:    3,
			TimeoutSeconds: 60,
		},
		Chunking: ChunkingConfig{
			MaxChunkSize: 1000,
			Overlap:      100,
		},
		Retrieval: RetrievalConfig{
			KCandidates:   20,
			KFinal:        5,
			MinSimilarity: 0.7,
			PerSourceCap:  2,
		},
		Prompt: PromptConfig{
			TokenBudget: 2000,
		},
		Index: IndexConfig{
			Backend: "sqlite",
		},
		Server: ServerConfig{
			Addr:              ":8000",
			RequestsPerMinute: 60,
			AllowedOrigins:    []string{"*"},
		},
	}
}

// Load reads the TOML file at path, fills in defaults for anything the file
// omits, applies environment overrides and validates the result. A missing
// file is not an error: defaults plus environment apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to defaults.
		case err != nil:
			return Config{}, fmt.Errorf("reading config file: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("%w: parsing %s: %v", domain.ErrConfig, path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if key := os.Getenv(EnvGeminiAPIKey); key != "" {
		c.Embedding.APIKey = key
		c.Generation.APIKey = key
	}
	if dir := os.Getenv(EnvDataDir); dir != "" {
		c.Index.DataDir = dir
	}
}

// Validate enforces the invariants the pipeline depends on. Violations are
// fatal at startup.
func (c *Config) Validate() error {
	if c.Chunking.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: chunking.max_chunk_size must be positive", domain.ErrConfig)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxChunkSize {
		return fmt.Errorf("%w: chunking.overlap must be in [0, max_chunk_size)", domain.ErrConfig)
	}
	if c.Retrieval.KFinal <= 0 {
		return fmt.Errorf("%w: retrieval.k_final must be positive", domain.ErrConfig)
	}
	if c.Retrieval.KCandidates < c.Retrieval.KFinal {
		return fmt.Errorf("%w: retrieval.k_candidates must be >= k_final", domain.ErrConfig)
	}
	if c.Retrieval.MinSimilarity < -1 || c.Retrieval.MinSimilarity > 1 {
		return fmt.Errorf("%w: retrieval.min_similarity must be in [-1, 1]", domain.ErrConfig)
	}
	if c.Retrieval.PerSourceCap <= 0 {
		return fmt.Errorf("%w: retrieval.per_source_cap must be positive", domain.ErrConfig)
	}
	if c.Prompt.TokenBudget <= 0 {
		return fmt.Errorf("%w: prompt.token_budget must be positive", domain.ErrConfig)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding.batch_size must be positive", domain.ErrConfig)
	}
	if c.Embedding.MaxAttempts <= 0 || c.Generation.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max_attempts must be positive", domain.ErrConfig)
	}
	if c.Embedding.TimeoutSeconds <= 0 || c.Generation.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: timeout_seconds must be positive", domain.ErrConfig)
	}
	if c.Server.RequestsPerMinute <= 0 {
		return fmt.Errorf("%w: server.requests_per_minute must be positive", domain.ErrConfig)
	}
	if c.Index.Backend != "sqlite" && c.Index.Backend != "memory" {
		return fmt.Errorf("%w: index.backend must be sqlite or memory, got %q", domain.ErrConfig, c.Index.Backend)
	}
	return nil
}

// EmbeddingTimeout returns the per-call embedding timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSeconds) * time.Second
}

// GenerationTimeout returns the per-call generation timeout.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.Generation.TimeoutSeconds) * time.Second
}
