package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/brightpath-ai/mathtutor/internal/core/domain"
	"github.com/brightpath-ai/mathtutor/internal/core/ports/driven"
	"github.com/brightpath-ai/mathtutor/internal/logger"
)

// RetrieverOptions configures candidate selection and filtering.
type RetrieverOptions struct {
	// KCandidates is how many nearest neighbours to pull from the index
	// before filtering. Larger than KFinal so post-filtering has room.
	KCandidates int

	// KFinal is the maximum number of chunks handed to the prompt assembler.
	KFinal int

	// MinSimilarity is the relevance floor; candidates below it are dropped.
	MinSimilarity float64

	// PerSourceCap limits how many chunks a single source may contribute,
	// so one document cannot dominate the context.
	PerSourceCap int
}

// Retriever turns a question into a ranked, deduplicated set of relevant
// chunks: embed the question, query the index, filter by similarity, cap per
// source, truncate.
type Retriever struct {
	embedder driven.Embedder
	index    driven.VectorIndex
	opts     RetrieverOptions
}

// NewRetriever creates a retriever over the given embedder and index.
func NewRetriever(embedder driven.Embedder, index driven.VectorIndex, opts RetrieverOptions) *Retriever {
	return &Retriever{embedder: embedder, index: index, opts: opts}
}

// Query expansions for common math question phrasings, applied before
// embedding to improve recall. First match wins.
var queryExpansions = []struct {
	keyword   string
	additions string
}{
	{"solve", "solution steps method"},
	{"calculate", "calculation formula"},
	{"explain", "explanation concept definition"},
	{"what is", "definition meaning concept"},
	{"how to", "steps method procedure"},
	{"find", "solution answer result"},
}

// Retrieve returns the best chunks for the question, best first. When nothing
// clears the similarity floor it returns domain.ErrNoContext, distinguishing
// "no relevant material" from an empty-but-successful result.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]domain.ScoredChunk, error) {
	enhanced := enhanceQuery(question)
	if enhanced != question {
		logger.Debug("Query enhanced: %q", enhanced)
	}

	vector, err := r.embedder.Embed(ctx, enhanced)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	logger.Debug("Query embedding: %d dimensions", len(vector))

	candidates, err := r.index.Query(ctx, vector, r.opts.KCandidates, r.opts.MinSimilarity)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	logger.Debug("Candidates above threshold %.2f: %d", r.opts.MinSimilarity, len(candidates))

	if len(candidates) == 0 {
		return nil, domain.ErrNoContext
	}

	// Candidates arrive best-first with ties in index insertion order; a
	// single ordered pass keeps that ordering through deduplication.
	perSource := make(map[string]int, len(candidates))
	results := make([]domain.ScoredChunk, 0, r.opts.KFinal)
	for _, c := range candidates {
		if perSource[c.Entry.SourceID] >= r.opts.PerSourceCap {
			continue
		}
		perSource[c.Entry.SourceID]++
		results = append(results, domain.ScoredChunk{
			Chunk: domain.Chunk{
				ID:       c.Entry.ChunkID,
				SourceID: c.Entry.SourceID,
				Text:     c.Entry.Text,
			},
			Score: c.Score,
		})
		if len(results) == r.opts.KFinal {
			break
		}
	}

	logger.Info("Retrieved %d chunks for question", len(results))
	return results, nil
}

// enhanceQuery appends retrieval keywords for recognised math phrasings.
func enhanceQuery(question string) string {
	lower := strings.ToLower(question)
	for _, exp := range queryExpansions {
		if strings.Contains(lower, exp.keyword) {
			return question + " " + exp.additions
		}
	}
	return question
}
