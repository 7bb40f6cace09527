package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepSeekChatCompletion(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "hello there"}}],
			"usage": {"prompt_tokens": 11, "completion_tokens": 4, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	p := NewDeepSeekProvider("test-key", srv.URL)
	resp, err := p.ChatCompletion(context.Background(), ChatRequest{
		Model: "deepseek-chat",
		Messages: []Message{
			{Role: "system", Content: "sys"},
			{Role: "user", Content: "hi"},
		},
		Temperature: 0.7,
		MaxTokens:   256,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "deepseek-chat", gotBody["model"])
	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, 11, resp.PromptTokens)
	assert.Equal(t, 15, resp.TotalTokens)
}

func TestDeepSeekMissingUsageDefaultsToZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "no usage"}}]}`))
	}))
	defer srv.Close()

	p := NewDeepSeekProvider("test-key", srv.URL)
	resp, err := p.ChatCompletion(context.Background(), ChatRequest{Model: "deepseek-chat"})
	require.NoError(t, err)

	assert.Equal(t, "no usage", resp.Content)
	assert.Zero(t, resp.PromptTokens)
	assert.Zero(t, resp.TotalTokens)
}

func TestDeepSeekServerErrorSurfacesAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewDeepSeekProvider("test-key", srv.URL)
	_, err := p.ChatCompletion(context.Background(), ChatRequest{Model: "deepseek-chat"})
	assert.Error(t, err)
}
