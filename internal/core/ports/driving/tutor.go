package driving

import (
	"context"

	"github.com/brightpath-ai/mathtutor/internal/core/domain"
)

// TutorService answers student questions from ingested textbook material.
type TutorService interface {
	// Ask runs the full query pipeline: validate, embed, retrieve, assemble,
	// generate. It returns either a grounded answer or the fixed no-context
	// answer; errors are reserved for invalid input and exhausted remote
	// calls. Partial answers are never returned.
	Ask(ctx context.Context, question string) (domain.Answer, error)
}
