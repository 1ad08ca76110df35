// Package memory provides an in-memory vector index. It is the default for
// tests and for small corpora that fit comfortably in RAM.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/brightpath-ai/mathtutor/internal/core/domain"
	"github.com/brightpath-ai/mathtutor/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index stores entries in insertion order. Reads take the shared lock, so
// concurrent queries never block each other; writes happen only during
// ingestion.
type Index struct {
	mu         sync.RWMutex
	entries    []domain.IndexEntry
	byChunkID  map[string]int
	dimensions int
}

// New creates an empty in-memory index.
func New() *Index {
	return &Index{
		byChunkID: make(map[string]int),
	}
}

// Upsert inserts or replaces entries with full-source replace semantics:
// every source ID present in the batch has its prior entries dropped before
// the new ones are appended, so re-ingestion leaves no stale chunks.
func (i *Index) Upsert(_ context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	for _, e := range entries {
		if e.ChunkID == "" || e.SourceID == "" {
			return fmt.Errorf("index entry missing chunk or source ID")
		}
		if len(e.Embedding) == 0 {
			return fmt.Errorf("index entry %s has empty embedding", e.ChunkID)
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.dimensions == 0 {
		i.dimensions = len(entries[0].Embedding)
	}
	for _, e := range entries {
		if len(e.Embedding) != i.dimensions {
			return fmt.Errorf("entry %s has %d dimensions, index expects %d",
				e.ChunkID, len(e.Embedding), i.dimensions)
		}
	}

	replaced := make(map[string]bool, 1)
	for _, e := range entries {
		replaced[e.SourceID] = true
	}

	kept := i.entries[:0]
	for _, existing := range i.entries {
		if !replaced[existing.SourceID] {
			kept = append(kept, existing)
		}
	}
	i.entries = append(kept, entries...)

	i.byChunkID = make(map[string]int, len(i.entries))
	for pos, e := range i.entries {
		i.byChunkID[e.ChunkID] = pos
	}

	return nil
}

// Query returns up to k entries with cosine similarity >= minScore, best
// first. An empty index yields an empty result, not an error. Equal scores
// keep insertion order.
func (i *Index) Query(_ context.Context, vector []float32, k int, minScore float64) ([]domain.ScoredEntry, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.entries) == 0 {
		return []domain.ScoredEntry{}, nil
	}
	if len(vector) != i.dimensions {
		return nil, fmt.Errorf("query vector has %d dimensions, index expects %d",
			len(vector), i.dimensions)
	}

	scored := make([]domain.ScoredEntry, 0, len(i.entries))
	for _, e := range i.entries {
		score := cosine(vector, e.Embedding)
		if score >= minScore {
			scored = append(scored, domain.ScoredEntry{Entry: e, Score: score})
		}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Count reports the number of stored entries.
func (i *Index) Count(context.Context) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries), nil
}

// Close releases resources. A no-op for the in-memory index.
func (i *Index) Close() error { return nil }

// cosine computes the cosine similarity of two equal-length vectors.
// Zero vectors score zero rather than NaN.
func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for n := range a {
		dot += float64(a[n]) * float64(b[n])
		normA += float64(a[n]) * float64(a[n])
		normB += float64(b[n]) * float64(b[n])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
