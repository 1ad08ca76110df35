package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidInput indicates a malformed, empty or over-length question.
	// Surfaced as a client error before any retrieval work happens.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig indicates invalid chunking or threshold configuration.
	// Fatal at startup.
	ErrConfig = errors.New("invalid configuration")

	// ErrNoContext signals that nothing in the index cleared the similarity
	// threshold. This is an expected outcome, not a fault: the pipeline
	// answers with a fixed "not covered" message instead of failing.
	ErrNoContext = errors.New("no relevant context")

	// ErrEmbeddingUnavailable indicates the remote embedding call exhausted
	// its retries.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGenerationUnavailable indicates the remote generation call exhausted
	// its retries.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrRateLimited indicates a client exceeded its request budget.
	ErrRateLimited = errors.New("rate limited")
)
