// Package gemini provides a generation adapter using the Google Gemini API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brightpath-ai/mathtutor/internal/core/domain"
	"github.com/brightpath-ai/mathtutor/internal/core/ports/driven"
	"github.com/brightpath-ai/mathtutor/internal/logger"
	"github.com/brightpath-ai/mathtutor/internal/retry"
)

// Ensure Generator implements the interface.
var _ driven.Generator = (*Generator)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the Gemini generation adapter.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// BaseURL is the API base URL. Override for testing or proxies.
	BaseURL string

	// Model is the generation model to use (default: gemini-2.0-flash).
	Model string

	// Timeout is the per-call request timeout (default: 60s).
	Timeout time.Duration

	// Retry is the backoff policy for transient failures.
	Retry retry.Policy
}

// Generator produces answers using the Gemini generateContent API.
type Generator struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	retry   retry.Policy
}

// Request/response formats for the Gemini generateContent API.
type contentPart struct {
	Text string `json:"text"`
}

type content struct {
	Role  string        `json:"role,omitempty"`
	Parts []contentPart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// New creates a Gemini generation adapter.
func New(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.Default()
	}

	return &Generator{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		retry:   cfg.Retry,
	}, nil
}

// Generate produces the answer text for the given prompt. Transient failures
// (timeouts, 429, 5xx) are retried with backoff; once the ceiling is reached
// the error wraps domain.ErrGenerationUnavailable. Empty or refusal-style
// answers from a successful call are returned unmodified.
func (g *Generator) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	reqBody := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []contentPart{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
			TopP:            opts.TopP,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var answer string
	err = g.retry.Do(ctx, func(ctx context.Context) error {
		var callErr error
		answer, callErr = g.call(ctx, jsonBody)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
	}
	return answer, nil
}

func (g *Generator) call(ctx context.Context, body []byte) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		// Network errors and timeouts are transient.
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("gemini error (status %d): %s", resp.StatusCode, string(respBody))
		if isTransientStatus(resp.StatusCode) {
			logger.Warn("Generation call failed transiently: %v", err)
			return "", err
		}
		return "", retry.Permanent(err)
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", retry.Permanent(fmt.Errorf("decode response: %w", err))
	}
	if genResp.Error != nil {
		return "", retry.Permanent(fmt.Errorf("gemini error: %s", genResp.Error.Message))
	}
	if len(genResp.Candidates) == 0 {
		// A successful call with no candidates (e.g. safety block) is not
		// retryable; the caller decides how to present it.
		return "", nil
	}

	var sb strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// ModelName returns the name of the generation model being used.
func (g *Generator) ModelName() string { return g.model }

// isTransientStatus reports whether the HTTP status is worth retrying.
func isTransientStatus(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout ||
		status >= 500
}
