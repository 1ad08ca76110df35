package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-ai/mathtutor/internal/adapters/driven/index/memory"
	"github.com/brightpath-ai/mathtutor/internal/core/domain"
	"github.com/brightpath-ai/mathtutor/internal/core/ports/driven"
)

func newTestPipeline(embedder *mockEmbedder, generator *mockGenerator, entries []domain.IndexEntry) *Pipeline {
	idx := memory.New()
	if len(entries) > 0 {
		if err := idx.Upsert(context.Background(), entries); err != nil {
			panic(err)
		}
	}
	retriever := NewRetriever(embedder, idx, defaultRetrieverOptions())
	assembler := NewAssembler(2000)
	return NewPipeline(retriever, assembler, generator, driven.GenerateOptions{
		MaxTokens:   1200,
		Temperature: 0.2,
		TopP:        0.9,
	})
}

func TestAsk_AnswersFromIngestedContent(t *testing.T) {
	embedder := &mockEmbedder{
		vectors: map[string][]float32{
			"triangle": {1, 0, 0},
		},
		fallback: []float32{0, 1, 0},
	}
	generator := &mockGenerator{answer: "A triangle has three sides. Keep up the great work!"}
	p := newTestPipeline(embedder, generator, []domain.IndexEntry{
		{
			ChunkID:   "geometry.txt:0",
			SourceID:  "geometry.txt",
			Text:      "A triangle is a shape with three sides and three angles.",
			Embedding: []float32{1, 0, 0},
		},
	})

	answer, err := p.Ask(context.Background(), "How many sides does a triangle have?")
	require.NoError(t, err)

	assert.True(t, answer.UsedContext)
	assert.Contains(t, answer.Text, "three")
	assert.Equal(t, []string{"geometry.txt"}, answer.Sources)

	// The prompt handed to the generator carries the retrieved material and
	// the original (unexpanded) question.
	assert.Contains(t, generator.lastPrompt, "three sides and three angles")
	assert.Contains(t, generator.lastPrompt, "STUDENT QUESTION: How many sides does a triangle have?")
	assert.InDelta(t, 0.2, generator.lastOpts.Temperature, 1e-9)
	assert.Equal(t, 1200, generator.lastOpts.MaxTokens)
}

func TestAsk_InvalidInputBeforeAnyRemoteCall(t *testing.T) {
	tests := []struct {
		name     string
		question string
	}{
		{"empty", ""},
		{"whitespace only", "   \t\n"},
		{"over length", strings.Repeat("a", domain.MaxQuestionLength+1)},
		{"harmful pattern", "what is <script>alert(1)</script>"},
		{"repetition", strings.Repeat("same ", 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := &mockEmbedder{}
			generator := &mockGenerator{answer: "should not be called"}
			p := newTestPipeline(embedder, generator, nil)

			_, err := p.Ask(context.Background(), tt.question)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Equal(t, int32(0), embedder.calls.Load(), "embedder must not be called")
			assert.Equal(t, 0, generator.calls, "generator must not be called")
		})
	}
}

func TestAsk_NoContextReturnsFixedMessage(t *testing.T) {
	// The index holds only content orthogonal to the question embedding.
	embedder := &mockEmbedder{fallback: []float32{1, 0, 0}}
	generator := &mockGenerator{answer: "should not be called"}
	p := newTestPipeline(embedder, generator, []domain.IndexEntry{
		{
			ChunkID:   "history.txt:0",
			SourceID:  "history.txt",
			Text:      "The treaty was signed in 1648.",
			Embedding: []float32{0, 0, 1},
		},
	})

	answer, err := p.Ask(context.Background(), "What is a derivative?")
	require.NoError(t, err)

	assert.Equal(t, domain.NoContextMessage, answer.Text)
	assert.False(t, answer.UsedContext)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, 0, generator.calls)
}

func TestAsk_EmbeddingFailurePropagates(t *testing.T) {
	embedder := &mockEmbedder{err: domain.ErrEmbeddingUnavailable}
	generator := &mockGenerator{}
	p := newTestPipeline(embedder, generator, []domain.IndexEntry{
		{ChunkID: "a.txt:0", SourceID: "a.txt", Text: "a", Embedding: []float32{1, 0, 0}},
	})

	_, err := p.Ask(context.Background(), "What is a fraction?")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestAsk_GenerationFailurePropagates(t *testing.T) {
	embedder := &mockEmbedder{fallback: []float32{1, 0, 0}}
	generator := &mockGenerator{err: domain.ErrGenerationUnavailable}
	p := newTestPipeline(embedder, generator, []domain.IndexEntry{
		{ChunkID: "a.txt:0", SourceID: "a.txt", Text: "relevant", Embedding: []float32{1, 0, 0}},
	})

	_, err := p.Ask(context.Background(), "What is a fraction?")
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}

func TestAsk_SanitizesGeneratedAnswer(t *testing.T) {
	embedder := &mockEmbedder{fallback: []float32{1, 0, 0}}
	generator := &mockGenerator{answer: `Two plus two is four.<script>alert("x")</script>`}
	p := newTestPipeline(embedder, generator, []domain.IndexEntry{
		{ChunkID: "a.txt:0", SourceID: "a.txt", Text: "Addition facts.", Embedding: []float32{1, 0, 0}},
	})

	answer, err := p.Ask(context.Background(), "What is two plus two?")
	require.NoError(t, err)

	assert.Contains(t, answer.Text, "Two plus two is four.")
	assert.NotContains(t, answer.Text, "<script>")
}

func TestAsk_SourcesDeduplicatedBestFirst(t *testing.T) {
	embedder := &mockEmbedder{fallback: []float32{1, 0, 0}}
	generator := &mockGenerator{answer: "ok"}
	p := newTestPipeline(embedder, generator, []domain.IndexEntry{
		{ChunkID: "geometry.txt:0", SourceID: "geometry.txt", Text: "chunk one", Embedding: []float32{1, 0, 0}},
		{ChunkID: "geometry.txt:90", SourceID: "geometry.txt", Text: "chunk two", Embedding: []float32{0.99, 0.1, 0}},
		{ChunkID: "algebra.txt:0", SourceID: "algebra.txt", Text: "chunk three", Embedding: []float32{0.9, 0.3, 0}},
	})

	answer, err := p.Ask(context.Background(), "What about shapes?")
	require.NoError(t, err)

	assert.Equal(t, []string{"geometry.txt", "algebra.txt"}, answer.Sources)
}
