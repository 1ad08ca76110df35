// Package gemini provides an embedding adapter using the Google Gemini API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brightpath-ai/mathtutor/internal/core/domain"
	"github.com/brightpath-ai/mathtutor/internal/core/ports/driven"
	"github.com/brightpath-ai/mathtutor/internal/logger"
	"github.com/brightpath-ai/mathtutor/internal/retry"
)

// Ensure Embedder implements the interface.
var _ driven.Embedder = (*Embedder)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel     = "text-embedding-004"
	DefaultTimeout   = 30 * time.Second
	DefaultBatchSize = 100
)

// Model dimensions for Gemini embedding models.
var modelDimensions = map[string]int{
	"text-embedding-004": 768,
	"embedding-001":      768,
}

// Config holds configuration for the Gemini embedding adapter.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// BaseURL is the API base URL. Override for testing or proxies.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-004).
	Model string

	// Timeout is the per-call request timeout (default: 30s).
	Timeout time.Duration

	// BatchSize caps how many texts go into one API request (default: 100,
	// the provider limit).
	BatchSize int

	// Retry is the backoff policy for transient failures.
	Retry retry.Policy
}

// Embedder generates embeddings using the Gemini batchEmbedContents API.
type Embedder struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	model     string
	batchSize int
	retry     retry.Policy
}

// Request/response formats for the Gemini embedContents API.
type embedPart struct {
	Text string `json:"text"`
}

type embedContent struct {
	Parts []embedPart `json:"parts"`
}

type embedRequest struct {
	Model   string       `json:"model"`
	Content embedContent `json:"content"`
}

type batchEmbedRequest struct {
	Requests []embedRequest `json:"requests"`
}

type batchEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// New creates a Gemini embedding adapter.
func New(cfg Config) (*Embedder, error) {
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
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.Default()
	}

	return &Embedder{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		retry:     cfg.Retry,
	}, nil
}

// Embed generates a vector embedding for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("gemini: no embedding returned")
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for texts, preserving order one-to-one.
// Requests are split into provider-sized batches; each batch is retried on
// transient failure and a partial batch fails the whole call - no item is
// ever silently dropped.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.embedOneBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (e *Embedder) embedOneBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := batchEmbedRequest{
		Requests: make([]embedRequest, len(texts)),
	}
	for i, text := range texts {
		reqBody.Requests[i] = embedRequest{
			Model:   "models/" + e.model,
			Content: embedContent{Parts: []embedPart{{Text: text}}},
		}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var vectors [][]float32
	err = e.retry.Do(ctx, func(ctx context.Context) error {
		var callErr error
		vectors, callErr = e.call(ctx, jsonBody, len(texts))
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	return vectors, nil
}

func (e *Embedder) call(ctx context.Context, body []byte, want int) ([][]float32, error) {
	url := fmt.Sprintf("%s/models/%s:batchEmbedContents", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		// Network errors and timeouts are transient.
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("gemini error (status %d): %s", resp.StatusCode, string(respBody))
		if isTransientStatus(resp.StatusCode) {
			logger.Warn("Embedding call failed transiently: %v", err)
			return nil, err
		}
		return nil, retry.Permanent(err)
	}

	var embedResp batchEmbedResponse
	if err := json.Unmarshal(respBody, &embedResp); err != nil {
		return nil, retry.Permanent(fmt.Errorf("decode response: %w", err))
	}
	if embedResp.Error != nil {
		return nil, retry.Permanent(fmt.Errorf("gemini error: %s", embedResp.Error.Message))
	}
	if len(embedResp.Embeddings) != want {
		return nil, retry.Permanent(fmt.Errorf(
			"gemini returned %d embeddings for %d inputs", len(embedResp.Embeddings), want))
	}

	vectors := make([][]float32, want)
	for i, emb := range embedResp.Embeddings {
		if len(emb.Values) == 0 {
			return nil, retry.Permanent(fmt.Errorf("gemini returned empty embedding at index %d", i))
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	if dims, ok := modelDimensions[e.model]; ok {
		return dims
	}
	return 768
}

// ModelName returns the name of the embedding model being used.
func (e *Embedder) ModelName() string { return e.model }

// isTransientStatus reports whether the HTTP status is worth retrying.
func isTransientStatus(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout ||
		status >= 500
}
