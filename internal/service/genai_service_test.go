package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"nextrole_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenAIServiceGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "hello", req.Messages[1].Content)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": `{"ok": true}`}},
			},
		})
	}))
	defer srv.Close()

	svc := NewGenAIService(config.AIConfig{BaseURL: srv.URL, APIKey: "test-key", Model: "test-model"})
	out, err := svc.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, out)
}

func TestGenAIServiceGenerateRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	svc := NewGenAIService(config.AIConfig{BaseURL: srv.URL})
	_, err := svc.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, IsQuotaError(err))
}

func TestGenAIServiceGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer srv.Close()

	svc := NewGenAIService(config.AIConfig{BaseURL: srv.URL})
	_, err := svc.Generate(context.Background(), "hello")
	assert.Error(t, err)
}
