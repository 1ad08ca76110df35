// Package sqlite provides a persistent vector index backed by SQLite.
// Embeddings are stored as little-endian float32 blobs and similarity
// queries scan the table, which is plenty for textbook-sized corpora.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/brightpath-ai/mathtutor/internal/core/domain"
	"github.com/brightpath-ai/mathtutor/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is a SQLite-backed vector index.
type Index struct {
	db   *sql.DB
	path string
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS index_meta (
		key TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS index_entries (
		chunk_id  TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		content   TEXT NOT NULL,
		embedding BLOB NOT NULL,
		rowid_order INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_source ON index_entries(source_id)`,
}

// New opens (or creates) the index database under dataDir.
// If dataDir is empty, defaults to ~/.mathtutor/data.
func New(dataDir string) (*Index, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".mathtutor", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// WAL mode so queries keep working while an ingestion writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("running migration: %w", err)
		}
	}

	return &Index{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (i *Index) Path() string { return i.path }

// Close closes the database connection.
func (i *Index) Close() error { return i.db.Close() }

// Upsert inserts or replaces entries in one transaction. All prior entries
// of every source ID present in the batch are deleted first, so a
// re-ingestion can never leave stale chunks behind.
func (i *Index) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	dims, err := i.dimensions(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.ChunkID == "" || e.SourceID == "" {
			return fmt.Errorf("index entry missing chunk or source ID")
		}
		if len(e.Embedding) == 0 {
			return fmt.Errorf("index entry %s has empty embedding", e.ChunkID)
		}
		if dims != 0 && len(e.Embedding) != dims {
			return fmt.Errorf("entry %s has %d dimensions, index expects %d",
				e.ChunkID, len(e.Embedding), dims)
		}
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	sources := make(map[string]bool, 1)
	for _, e := range entries {
		sources[e.SourceID] = true
	}
	for sourceID := range sources {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM index_entries WHERE source_id = ?", sourceID); err != nil {
			return fmt.Errorf("deleting prior entries for %s: %w", sourceID, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO index_entries (chunk_id, source_id, content, embedding, rowid_order)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(rowid_order), 0) + 1 FROM index_entries))
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			e.ChunkID, e.SourceID, e.Text, float32SliceToBytes(e.Embedding)); err != nil {
			return fmt.Errorf("inserting entry %s: %w", e.ChunkID, err)
		}
	}

	if dims == 0 {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO index_meta (key, value) VALUES ('dimensions', ?)",
			len(entries[0].Embedding)); err != nil {
			return fmt.Errorf("recording dimensions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

// Query scans all entries and returns up to k with cosine similarity >=
// minScore, best first. An empty index yields an empty result. Equal scores
// keep insertion order.
func (i *Index) Query(ctx context.Context, vector []float32, k int, minScore float64) ([]domain.ScoredEntry, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	dims, err := i.dimensions(ctx)
	if err != nil {
		return nil, err
	}
	if dims == 0 {
		return []domain.ScoredEntry{}, nil
	}
	if len(vector) != dims {
		return nil, fmt.Errorf("query vector has %d dimensions, index expects %d",
			len(vector), dims)
	}

	rows, err := i.db.QueryContext(ctx, `
		SELECT chunk_id, source_id, content, embedding
		FROM index_entries ORDER BY rowid_order
	`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var scored []domain.ScoredEntry
	for rows.Next() {
		var e domain.IndexEntry
		var blob []byte
		if err := rows.Scan(&e.ChunkID, &e.SourceID, &e.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.Embedding = bytesToFloat32Slice(blob)

		score := cosine(vector, e.Embedding)
		if score >= minScore {
			scored = append(scored, domain.ScoredEntry{Entry: e, Score: score})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	if scored == nil {
		scored = []domain.ScoredEntry{}
	}
	return scored, nil
}

// Count reports the number of stored entries.
func (i *Index) Count(ctx context.Context) (int, error) {
	var count int
	err := i.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM index_entries").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return count, nil
}

// dimensions returns the recorded embedding dimensionality, or 0 when the
// index has never been written.
func (i *Index) dimensions(ctx context.Context) (int, error) {
	var dims int
	err := i.db.QueryRowContext(ctx,
		"SELECT value FROM index_meta WHERE key = 'dimensions'").Scan(&dims)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading index dimensions: %w", err)
	}
	return dims, nil
}

// float32SliceToBytes converts a []float32 to a little-endian byte slice
// for BLOB storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

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
