package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGeminiClient(t *testing.T, url string) *GeminiClient {
	t.Helper()
	g, err := NewGeminiClient(context.Background(), GeminiConfig{
		APIKey:  "test-key",
		Model:   "gemini-test",
		BaseURL: url + "/",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	g.initialBackoff = time.Millisecond
	return g
}

func TestGeminiClient_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "systemInstruction")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Next 12 weeks: "},{"text":"run more"}]}}]}`))
	}))
	defer server.Close()

	got, err := newTestGeminiClient(t, server.URL).Generate(context.Background(), "continue", "previous plan")
	require.NoError(t, err)
	assert.Equal(t, "Next 12 weeks: run more", got)
}

func TestGeminiClient_Generate_RetriesServerErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"recovered"}]}}]}`))
	}))
	defer server.Close()

	got, err := newTestGeminiClient(t, server.URL).Generate(context.Background(), "", "previous plan")
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&attempts), int32(2))
}

func TestGeminiClient_Generate_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	_, err := newTestGeminiClient(t, server.URL).Generate(context.Background(), "", "previous plan")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestGeminiClient_NotConfigured(t *testing.T) {
	g, err := NewGeminiClient(context.Background(), GeminiConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultGeminiModel, g.Name())

	_, err = g.Generate(context.Background(), "", "previous plan")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
