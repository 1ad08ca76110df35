package driving

import (
	"context"

	"github.com/brightpath-ai/mathtutor/internal/core/domain"
)

// IngestService loads source documents into the vector index.
type IngestService interface {
	// IngestDir processes every supported document under dir. Per-source
	// failures are recorded in the summary and do not abort the run.
	IngestDir(ctx context.Context, dir string) (domain.IngestSummary, error)

	// IngestFile processes a single document.
	IngestFile(ctx context.Context, path string) (int, error)

	// Watch re-ingests files under dir as they change, until ctx is done.
	Watch(ctx context.Context, dir string) error
}
