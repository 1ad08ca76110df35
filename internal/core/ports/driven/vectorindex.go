package driven

import (
	"context"

	"github.com/brightpath-ai/mathtutor/internal/core/domain"
)

// VectorIndex persists (embedding, chunk text, source metadata) entries and
// serves approximate nearest-neighbour queries by cosine similarity.
//
// The index is written only during ingestion and read-only at query time.
type VectorIndex interface {
	// Upsert inserts or replaces entries by chunk ID with full-source replace
	// semantics: for every source ID present in entries, prior entries of
	// that source that are absent from the new set are deleted. This
	// guarantees no stale chunks survive a re-ingestion.
	Upsert(ctx context.Context, entries []domain.IndexEntry) error

	// Query returns up to k entries with similarity >= minScore, best first.
	// An empty index or a threshold nothing clears yields an empty slice,
	// not an error. Entries with equal scores keep insertion order.
	Query(ctx context.Context, vector []float32, k int, minScore float64) ([]domain.ScoredEntry, error)

	// Count reports the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
