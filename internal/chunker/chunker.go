// Package chunker splits document text into overlapping bounded chunks
// suitable for embedding and retrieval.
package chunker

import (
	"fmt"
	"strconv"

	"github.com/brightpath-ai/mathtutor/internal/core/domain"
)

// DefaultMaxChunkSize is the default chunk size in runes.
const DefaultMaxChunkSize = 1000

// DefaultOverlap is the default overlap between consecutive chunks in runes.
const DefaultOverlap = 100

// Splitter cuts documents into chunks of at most maxSize runes where
// consecutive chunks share exactly overlap runes. Chunk boundaries prefer
// paragraph breaks, then sentence ends, falling back to a hard cut when a
// passage has neither. Splitting is deterministic: the same document and
// configuration always yield the same chunk sequence, which keeps
// re-ingestion idempotent.
type Splitter struct {
	maxSize int
	overlap int
}

// New creates a splitter. Overlap must be smaller than the chunk size.
func New(maxSize, overlap int) (*Splitter, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfig, maxSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", domain.ErrConfig, overlap)
	}
	if overlap >= maxSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			domain.ErrConfig, overlap, maxSize)
	}
	return &Splitter{maxSize: maxSize, overlap: overlap}, nil
}

// Split cuts the document into chunks. Offsets are rune offsets into the
// document content, so multi-byte text is never cut mid-character.
// Empty content produces no chunks.
func (s *Splitter) Split(doc domain.Document) []domain.Chunk {
	if doc.Content == "" {
		return nil
	}

	runes := []rune(doc.Content)
	total := len(runes)

	estimated := total/(s.maxSize-s.overlap) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	start := 0
	for start < total {
		end := start + s.maxSize
		if end >= total {
			end = total
		} else {
			end = s.cutPoint(runes, start, end)
		}

		overlapPrev := 0
		if start > 0 {
			overlapPrev = s.overlap
		}

		chunks = append(chunks, domain.Chunk{
			ID:          doc.SourceID + ":" + strconv.Itoa(start),
			SourceID:    doc.SourceID,
			Text:        string(runes[start:end]),
			Offset:      start,
			OverlapPrev: overlapPrev,
		})

		if end == total {
			break
		}
		// The next chunk starts overlap runes before this one ended, so the
		// shared region is exactly overlap runes long.
		start = end - s.overlap
	}

	return chunks
}

// MaxChunkSize returns the configured maximum chunk length in runes.
func (s *Splitter) MaxChunkSize() int { return s.maxSize }

// Overlap returns the configured overlap in runes.
func (s *Splitter) Overlap() int { return s.overlap }

// cutPoint picks where to end the chunk that starts at start and may extend
// to limit at most. It scans backwards for a paragraph break, then a sentence
// end, never cutting so early that the next chunk would not advance.
func (s *Splitter) cutPoint(runes []rune, start, limit int) int {
	// The next chunk starts at end-overlap, which must be past start to make
	// progress. Also avoid degenerate slivers shorter than half a chunk.
	floor := start + s.overlap + 1
	if half := start + s.maxSize/2; half > floor {
		floor = half
	}
	if floor >= limit {
		return limit
	}

	if cut := lastBoundary(runes, floor, limit, isParagraphBreak); cut > 0 {
		return cut
	}
	if cut := lastBoundary(runes, floor, limit, isSentenceEnd); cut > 0 {
		return cut
	}
	return limit
}

// lastBoundary returns the rightmost position in (floor, limit] that the
// boundary predicate accepts, or 0 when there is none.
func lastBoundary(runes []rune, floor, limit int, boundary func([]rune, int) bool) int {
	for pos := limit; pos > floor; pos-- {
		if boundary(runes, pos) {
			return pos
		}
	}
	return 0
}

// isParagraphBreak reports whether a chunk ending at pos would end right
// after a blank line.
func isParagraphBreak(runes []rune, pos int) bool {
	return pos >= 2 && runes[pos-1] == '\n' && runes[pos-2] == '\n'
}

// isSentenceEnd reports whether a chunk ending at pos would end right after
// sentence-final punctuation followed by whitespace.
func isSentenceEnd(runes []rune, pos int) bool {
	if pos < 2 {
		return false
	}
	prev := runes[pos-1]
	if prev != ' ' && prev != '\n' && prev != '\t' {
		return false
	}
	switch runes[pos-2] {
	case '.', '!', '?':
		return true
	}
	return false
}
