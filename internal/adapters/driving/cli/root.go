// Package cli wires configuration, adapters and core services into the
// mathtutor command tree.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	geminiembed "github.com/brightpath-ai/mathtutor/internal/adapters/driven/embedding/gemini"
	memoryindex "github.com/brightpath-ai/mathtutor/internal/adapters/driven/index/memory"
	sqliteindex "github.com/brightpath-ai/mathtutor/internal/adapters/driven/index/sqlite"
	geminillm "github.com/brightpath-ai/mathtutor/internal/adapters/driven/llm/gemini"
	"github.com/brightpath-ai/mathtutor/internal/chunker"
	"github.com/brightpath-ai/mathtutor/internal/config"
	"github.com/brightpath-ai/mathtutor/internal/core/ports/driven"
	"github.com/brightpath-ai/mathtutor/internal/core/services"
	"github.com/brightpath-ai/mathtutor/internal/logger"
	"github.com/brightpath-ai/mathtutor/internal/retry"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var (
	cfgFile string
	verbose bool
)

// Wired services, built by initServices before a command runs.
var (
	cfg         config.Config
	vectorIndex driven.VectorIndex
	tutor       *services.Pipeline
	ingestor    *services.Ingestor
)

var rootCmd = &cobra.Command{
	Use:   "mathtutor",
	Short: "Textbook-grounded math tutor for grades 1-12",
	Long: `mathtutor answers student math questions from ingested textbook
material. Ingest a directory of textbooks once, then ask questions from the
command line, an interactive chat, or over HTTP.`,
	SilenceUsage: true,
}

// Execute runs the command tree.
func Execute() error {
	defer closeIndex()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigPath(), "path to the TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// initServices loads configuration and builds the adapter stack. Commands
// call it at the top of their RunE.
func initServices() error {
	logger.SetVerbose(verbose)

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	if cfg.Embedding.APIKey == "" {
		return fmt.Errorf("%s is not set; export your Gemini API key", config.EnvGeminiAPIKey)
	}

	vectorIndex, err = openIndex()
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}

	embedder, err := geminiembed.New(geminiembed.Config{
		APIKey:    cfg.Embedding.APIKey,
		BaseURL:   cfg.Embedding.BaseURL,
		Model:     cfg.Embedding.Model,
		Timeout:   cfg.EmbeddingTimeout(),
		BatchSize: cfg.Embedding.BatchSize,
		Retry:     retryPolicy(cfg.Embedding.MaxAttempts),
	})
	if err != nil {
		return err
	}

	generator, err := geminillm.New(geminillm.Config{
		APIKey:  cfg.Generation.APIKey,
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
		Timeout: cfg.GenerationTimeout(),
		Retry:   retryPolicy(cfg.Generation.MaxAttempts),
	})
	if err != nil {
		return err
	}

	splitter, err := chunker.New(cfg.Chunking.MaxChunkSize, cfg.Chunking.Overlap)
	if err != nil {
		return err
	}

	retriever := services.NewRetriever(embedder, vectorIndex, services.RetrieverOptions{
		KCandidates:   cfg.Retrieval.KCandidates,
		KFinal:        cfg.Retrieval.KFinal,
		MinSimilarity: cfg.Retrieval.MinSimilarity,
		PerSourceCap:  cfg.Retrieval.PerSourceCap,
	})
	assembler := services.NewAssembler(cfg.Prompt.TokenBudget)

	tutor = services.NewPipeline(retriever, assembler, generator, driven.GenerateOptions{
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		TopP:        cfg.Generation.TopP,
	})
	ingestor = services.NewIngestor(splitter, embedder, vectorIndex)

	return nil
}

func openIndex() (driven.VectorIndex, error) {
	if cfg.Index.Backend == "memory" {
		logger.Warn("Using in-memory index; ingested data will not persist")
		return memoryindex.New(), nil
	}
	return sqliteindex.New(cfg.Index.DataDir)
}

func closeIndex() {
	if vectorIndex == nil {
		return
	}
	if err := vectorIndex.Close(); err != nil {
		logger.Warn("Closing index: %v", err)
	}
}

func retryPolicy(maxAttempts int) retry.Policy {
	p := retry.Default()
	p.MaxAttempts = maxAttempts
	return p
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mathtutor.toml"
	}
	return filepath.Join(home, ".mathtutor", "config.toml")
}
