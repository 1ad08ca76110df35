package domain

import "time"

// Document represents a single source text to be ingested, identified by a
// stable SourceID. Re-ingesting the same SourceID replaces all chunks that
// were previously derived from it.
type Document struct {
	// SourceID is the stable identifier for the source (e.g. file name).
	SourceID string

	// URI is the original location of the document (file path, URL, etc).
	URI string

	// Content is the full text content.
	Content string

	// IngestedAt is when the document was processed.
	IngestedAt time.Time
}

// Chunk is a bounded-length contiguous slice of a document, the unit of
// retrieval. Chunk IDs are deterministic so re-ingestion is idempotent.
type Chunk struct {
	// ID is derived from SourceID and Offset; identical input yields
	// identical IDs.
	ID string

	// SourceID links back to the document this chunk was cut from.
	SourceID string

	// Text is the chunk content. Its length in runes never exceeds the
	// splitter's configured maximum.
	Text string

	// Offset is the rune offset of the chunk start within the document.
	Offset int

	// OverlapPrev is the number of runes shared with the preceding chunk.
	// Zero for the first chunk of a document.
	OverlapPrev int
}

// IndexEntry is the stored unit of the vector index: a chunk together with
// its embedding. Entries are created at ingest time and read-only afterwards.
type IndexEntry struct {
	ChunkID   string
	SourceID  string
	Text      string
	Embedding []float32
}

// ScoredEntry is an index entry with its similarity to a query vector.
type ScoredEntry struct {
	Entry IndexEntry

	// Score is the cosine similarity in [-1, 1].
	Score float64
}

// ScoredChunk is a retrieved chunk with its relevance score, as returned by
// the retriever after filtering and deduplication.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// IngestSummary reports the outcome of one ingestion run.
type IngestSummary struct {
	// Documents is the number of source documents processed successfully.
	Documents int

	// Chunks is the number of chunks written to the index.
	Chunks int

	// Failures lists sources that could not be ingested.
	Failures []IngestFailure
}

// IngestFailure records a single per-source ingestion error.
type IngestFailure struct {
	SourceID string
	Err      error
}
