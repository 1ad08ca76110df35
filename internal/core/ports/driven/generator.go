package driven

import "context"

// Generator calls a remote chat-completion model with an assembled prompt.
//
// Implementations retry transient failures internally; once retries are
// exhausted they fail with an error wrapping domain.ErrGenerationUnavailable.
// An empty or refusal-style answer from a successful call is passed through
// unmodified.
type Generator interface {
	// Generate produces the answer text for the given prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the generation model being used.
	ModelName() string
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness. Kept low to favour accuracy.
	Temperature float64

	// TopP is the nucleus sampling parameter.
	TopP float64
}
