// Package services implements the core query and ingestion pipelines behind
// the driving ports.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/brightpath-ai/mathtutor/internal/core/domain"
	"github.com/brightpath-ai/mathtutor/internal/core/ports/driven"
	"github.com/brightpath-ai/mathtutor/internal/core/ports/driving"
	"github.com/brightpath-ai/mathtutor/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.TutorService = (*Pipeline)(nil)

// Pipeline sequences retrieval, prompt assembly and generation for one
// question. Each call is an independent unit of work; the only shared state
// is the vector index, which is read-only at query time.
type Pipeline struct {
	retriever *Retriever
	assembler *Assembler
	generator driven.Generator
	genOpts   driven.GenerateOptions
}

// NewPipeline wires the query pipeline.
func NewPipeline(retriever *Retriever, assembler *Assembler, generator driven.Generator, genOpts driven.GenerateOptions) *Pipeline {
	return &Pipeline{
		retriever: retriever,
		assembler: assembler,
		generator: generator,
		genOpts:   genOpts,
	}
}

// Ask answers a student question from the ingested material.
//
// Outcomes are a tagged variant, never a partial answer:
//   - a grounded answer with UsedContext true and the contributing sources,
//   - the fixed no-context message with UsedContext false when nothing
//     relevant was retrieved (a success, not an error),
//   - domain.ErrInvalidInput before any network call for bad input,
//   - domain.ErrEmbeddingUnavailable / domain.ErrGenerationUnavailable once
//     the adapters exhaust their retries.
func (p *Pipeline) Ask(ctx context.Context, question string) (domain.Answer, error) {
	if err := domain.ValidateQuestion(question); err != nil {
		return domain.Answer{}, err
	}

	logger.Section("Query Pipeline")
	logger.Debug("Question: %q", truncateForLog(question))

	chunks, err := p.retriever.Retrieve(ctx, question)
	if errors.Is(err, domain.ErrNoContext) {
		logger.Info("No relevant context, returning fixed message")
		return domain.Answer{Text: domain.NoContextMessage, UsedContext: false}, nil
	}
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieve: %w", err)
	}

	prompt, used := p.assembler.Assemble(question, chunks)
	logger.Debug("Assembled prompt with %d chunks", len(used))

	text, err := p.generator.Generate(ctx, prompt, p.genOpts)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generate: %w", err)
	}

	return domain.Answer{
		Text:        domain.SanitizeAnswer(text),
		UsedContext: true,
		Sources:     sourceIDs(used),
	}, nil
}

// sourceIDs lists the distinct sources of the used chunks, best match first.
func sourceIDs(chunks []domain.ScoredChunk) []string {
	seen := make(map[string]bool, len(chunks))
	ids := make([]string, 0, len(chunks))
	for _, sc := range chunks {
		if !seen[sc.Chunk.SourceID] {
			seen[sc.Chunk.SourceID] = true
			ids = append(ids, sc.Chunk.SourceID)
		}
	}
	return ids
}

func truncateForLog(s string) string {
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}
