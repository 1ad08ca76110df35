package services

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/brightpath-ai/mathtutor/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbedder implements driven.Embedder with deterministic vectors keyed by
// substring, so tests can steer similarity without a remote model.
type mockEmbedder struct {
	// vectors maps a substring of the input text to its embedding.
	vectors map[string][]float32

	// fallback is returned when no substring matches.
	fallback []float32

	err   error
	calls atomic.Int32
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.lookup(text)
	}
	return out, nil
}

func (m *mockEmbedder) lookup(text string) []float32 {
	for key, vec := range m.vectors {
		if strings.Contains(text, key) {
			return vec
		}
	}
	if m.fallback != nil {
		return m.fallback
	}
	return []float32{0, 0, 1}
}

func (m *mockEmbedder) Dimensions() int   { return 3 }
func (m *mockEmbedder) ModelName() string { return "mock-embedder" }

// mockGenerator implements driven.Generator and records the prompt it saw.
type mockGenerator struct {
	answer     string
	err        error
	lastPrompt string
	lastOpts   driven.GenerateOptions
	calls      int
}

func (m *mockGenerator) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.calls++
	m.lastPrompt = prompt
	m.lastOpts = opts
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func (m *mockGenerator) ModelName() string { return "mock-generator" }
