package driven

import "context"

// Embedder generates vector embeddings from text.
//
// Implementations must preserve input order and return exactly one vector per
// input; a partial batch is an error, never a silently shortened result.
// Vectors produced by different embedding models must never be mixed in one
// index, so Dimensions is fixed for the lifetime of the service.
type Embedder interface {
	// Embed generates a vector embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, splitting into
	// provider-sized batches as needed. The result is ordered one-to-one
	// with texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g. 768).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}
