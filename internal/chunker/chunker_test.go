package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-ai/mathtutor/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("valid configuration", func(t *testing.T) {
		s, err := New(1000, 100)
		require.NoError(t, err)
		assert.Equal(t, 1000, s.MaxChunkSize())
		assert.Equal(t, 100, s.Overlap())
	})

	t.Run("overlap equal to chunk size", func(t *testing.T) {
		_, err := New(100, 100)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConfig)
	})

	t.Run("overlap larger than chunk size", func(t *testing.T) {
		_, err := New(100, 150)
		assert.ErrorIs(t, err, domain.ErrConfig)
	})

	t.Run("zero chunk size", func(t *testing.T) {
		_, err := New(0, 0)
		assert.ErrorIs(t, err, domain.ErrConfig)
	})

	t.Run("negative overlap", func(t *testing.T) {
		_, err := New(100, -1)
		assert.ErrorIs(t, err, domain.ErrConfig)
	})
}

func TestSplit_EmptyContent(t *testing.T) {
	s, err := New(100, 20)
	require.NoError(t, err)

	chunks := s.Split(domain.Document{SourceID: "empty.txt"})
	assert.Empty(t, chunks)
}

func TestSplit_SmallContent(t *testing.T) {
	s, err := New(100, 20)
	require.NoError(t, err)

	doc := domain.Document{SourceID: "small.txt", Content: "A triangle has three sides."}
	chunks := s.Split(doc)

	require.Len(t, chunks, 1)
	assert.Equal(t, doc.Content, chunks[0].Text)
	assert.Equal(t, "small.txt:0", chunks[0].ID)
	assert.Equal(t, 0, chunks[0].Offset)
	assert.Equal(t, 0, chunks[0].OverlapPrev)
}

func TestSplit_Invariants(t *testing.T) {
	tests := []struct {
		name    string
		maxSize int
		overlap int
		content string
	}{
		{
			name:    "sentences",
			maxSize: 80,
			overlap: 16,
			content: strings.Repeat("The square of the hypotenuse equals the sum of squares. ", 40),
		},
		{
			name:    "paragraphs",
			maxSize: 120,
			overlap: 30,
			content: strings.Repeat("Fractions compare parts of a whole.\n\nA half is one of two equal parts.\n\n", 25),
		},
		{
			name:    "no boundaries at all",
			maxSize: 50,
			overlap: 10,
			content: strings.Repeat("x", 1234),
		},
		{
			name:    "multibyte runes",
			maxSize: 40,
			overlap: 8,
			content: strings.Repeat("Площадь круга равна пи эр квадрат. ", 30),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.maxSize, tt.overlap)
			require.NoError(t, err)

			doc := domain.Document{SourceID: "doc.txt", Content: tt.content}
			chunks := s.Split(doc)
			require.NotEmpty(t, chunks)

			for i, ch := range chunks {
				assert.LessOrEqual(t, len([]rune(ch.Text)), tt.maxSize,
					"chunk %d exceeds max size", i)
				if i == 0 {
					assert.Equal(t, 0, ch.OverlapPrev)
				} else {
					assert.Equal(t, tt.overlap, ch.OverlapPrev,
						"chunk %d overlap", i)
				}
			}

			// Consecutive chunks share exactly the configured overlap.
			for i := 1; i < len(chunks); i++ {
				prev := []rune(chunks[i-1].Text)
				cur := []rune(chunks[i].Text)
				tail := string(prev[len(prev)-tt.overlap:])
				head := string(cur[:tt.overlap])
				assert.Equal(t, tail, head, "chunks %d/%d overlap mismatch", i-1, i)
			}

			// Concatenating chunks minus overlaps reconstructs the document.
			var rebuilt strings.Builder
			for i, ch := range chunks {
				runes := []rune(ch.Text)
				if i == 0 {
					rebuilt.WriteString(ch.Text)
				} else {
					rebuilt.WriteString(string(runes[ch.OverlapPrev:]))
				}
			}
			assert.Equal(t, tt.content, rebuilt.String())
		})
	}
}

func TestSplit_PrefersSentenceBoundaries(t *testing.T) {
	s, err := New(60, 10)
	require.NoError(t, err)

	content := "The perimeter is the distance around a shape. " +
		"To find it, add the lengths of all sides. " +
		"A square with side four has perimeter sixteen."
	chunks := s.Split(domain.Document{SourceID: "geo.txt", Content: content})
	require.Greater(t, len(chunks), 1)

	// Every non-final chunk should end at a sentence boundary, not mid-word.
	for _, ch := range chunks[:len(chunks)-1] {
		trimmed := strings.TrimRight(ch.Text, " \n\t")
		last := trimmed[len(trimmed)-1]
		assert.Contains(t, ".!?", string(last), "chunk should end a sentence: %q", ch.Text)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	s, err := New(90, 15)
	require.NoError(t, err)

	doc := domain.Document{
		SourceID: "algebra.txt",
		Content:  strings.Repeat("An equation states that two expressions are equal. ", 30),
	}

	first := s.Split(doc)
	second := s.Split(doc)
	require.Equal(t, first, second)

	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestSplit_ChunkIDsUniqueWithinDocument(t *testing.T) {
	s, err := New(50, 10)
	require.NoError(t, err)

	chunks := s.Split(domain.Document{
		SourceID: "doc.txt",
		Content:  strings.Repeat("Numbers can be even or odd. ", 40),
	})
	seen := make(map[string]bool, len(chunks))
	for _, ch := range chunks {
		assert.False(t, seen[ch.ID], "duplicate chunk ID %s", ch.ID)
		seen[ch.ID] = true
	}
}
