package caption

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/image-annotate/pkg/annotate"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewGemini(GeminiConfig{
		APIKey:  "test-key",
		Model:   "test-model",
		BaseURL: srv.URL,
	})
	require.NoError(t, err)
	return g
}

func TestNewGeminiRequiresAPIKey(t *testing.T) {
	_, err := NewGemini(GeminiConfig{})
	assert.Error(t, err)
}

func TestCaptionSuccess(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "test-model")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req, "contents")

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": "a sleeping cat "}},
				},
			}},
		})
	})

	text, err := g.Caption(context.Background(), []byte("image bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "a sleeping cat", text)
}

func TestCaptionEmptyImage(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	})

	_, err := g.Caption(context.Background(), nil, "image/png")
	assert.True(t, annotate.IsTerminalFailure(err))
}

func TestCaptionBlockedContent(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"promptFeedback": map[string]any{"blockReason": "SAFETY"},
		})
	})

	_, err := g.Caption(context.Background(), []byte("image bytes"), "image/png")
	require.Error(t, err)
	assert.True(t, annotate.IsTerminalFailure(err))
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestCaptionEmptyResponseIsTerminal(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	})

	_, err := g.Caption(context.Background(), []byte("image bytes"), "image/png")
	require.Error(t, err)
	assert.True(t, annotate.IsTerminalFailure(err))
}

func TestCaptionServerErrorIsTransient(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := g.Caption(context.Background(), []byte("image bytes"), "image/png")
	require.Error(t, err)
	assert.False(t, annotate.IsTerminalFailure(err))
}

func TestCaptionRateLimitIsTransient(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := g.Caption(context.Background(), []byte("image bytes"), "image/png")
	require.Error(t, err)
	assert.False(t, annotate.IsTerminalFailure(err))
}

func TestCaptionBadRequestIsTerminal(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad payload", http.StatusBadRequest)
	})

	_, err := g.Caption(context.Background(), []byte("image bytes"), "image/png")
	require.Error(t, err)
	assert.True(t, annotate.IsTerminalFailure(err))
}
