package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-ai/mathtutor/internal/core/domain"
	"github.com/brightpath-ai/mathtutor/internal/core/ports/driven"
	"github.com/brightpath-ai/mathtutor/internal/retry"
)

func fastRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func answerPayload(text string) generateResponse {
	resp := generateResponse{}
	resp.Candidates = append(resp.Candidates, struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	}{
		Content:      content{Role: "model", Parts: []contentPart{{Text: text}}},
		FinishReason: "STOP",
	})
	return resp
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestGenerate_Success(t *testing.T) {
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(answerPayload("A triangle has three sides."))
	}))
	defer srv.Close()

	g, err := New(Config{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry()})
	require.NoError(t, err)

	answer, err := g.Generate(context.Background(), "How many sides does a triangle have?",
		driven.GenerateOptions{MaxTokens: 1200, Temperature: 0.2, TopP: 0.9})
	require.NoError(t, err)
	assert.Equal(t, "A triangle has three sides.", answer)

	// The generation config reaches the wire.
	assert.InDelta(t, 0.2, gotReq.GenerationConfig.Temperature, 1e-9)
	assert.Equal(t, 1200, gotReq.GenerationConfig.MaxOutputTokens)
	assert.InDelta(t, 0.9, gotReq.GenerationConfig.TopP, 1e-9)
	require.Len(t, gotReq.Contents, 1)
	assert.Equal(t, "user", gotReq.Contents[0].Role)
}

func TestGenerate_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(answerPayload("ok"))
	}))
	defer srv.Close()

	g, err := New(Config{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry()})
	require.NoError(t, err)

	answer, err := g.Generate(context.Background(), "q", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerate_ExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g, err := New(Config{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry()})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "q", driven.GenerateOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerate_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	g, err := New(Config{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry()})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "q", driven.GenerateOptions{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestGenerate_EmptyAnswerPassedThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No candidates at all, e.g. a safety block.
		json.NewEncoder(w).Encode(generateResponse{})
	}))
	defer srv.Close()

	g, err := New(Config{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry()})
	require.NoError(t, err)

	answer, err := g.Generate(context.Background(), "q", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Empty(t, answer)
}

func TestModelName(t *testing.T) {
	g, err := New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, g.ModelName())
}
