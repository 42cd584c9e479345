package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/plotforge/pkg/adapters/openai"
	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "qwen-plus",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate_Success(t *testing.T) {
	var got map[string]any
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("The fog lifts.\n[Option 1] Walk on")))
	})

	gen := openai.New(openai.Config{
		BaseURL:     srv.URL + "/v1/chat/completions",
		APIKey:      "sk-test",
		Model:       "qwen-plus",
		MaxTokens:   512,
		Temperature: 1.2,
		TopP:        0.95,
	})

	out, err := gen.Generate(context.Background(), "Write the next scene")
	require.NoError(t, err)
	assert.Equal(t, "The fog lifts.\n[Option 1] Walk on", out)

	assert.Equal(t, "qwen-plus", got["model"])
	assert.EqualValues(t, 512, got["max_tokens"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "Write the next scene", msgs[1].(map[string]any)["content"])
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			},
		},
		{
			name: "empty content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(completion("   ")))
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.handler)
			gen := openai.New(openai.Config{Provider: "qwen-plus", BaseURL: srv.URL, APIKey: "k", Model: "m"})

			_, err := gen.Generate(context.Background(), "p")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrGeneration)

			var genErr *domain.GenerationError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, "qwen-plus", genErr.Provider)
		})
	}
}

func TestGenerate_Timeout(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	gen := openai.New(openai.Config{BaseURL: srv.URL, APIKey: "k", Model: "m", Timeout: 50 * time.Millisecond})

	_, err := gen.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestGenerate_MissingKey(t *testing.T) {
	gen := openai.New(openai.Config{BaseURL: "http://127.0.0.1:1"})
	_, err := gen.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, domain.ErrGeneration)
}
