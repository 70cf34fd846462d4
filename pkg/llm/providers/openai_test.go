package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgerrors "github.com/tombee/postgen/pkg/errors"
	"github.com/tombee/postgen/pkg/llm"
)

const chatCompletionBody = `{
  "id": "chatcmpl-123",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-2024-08-06",
  "choices": [{
    "index": 0,
    "message": {"role": "assistant", "content": "Great mug! #mugs"},
    "logprobs": null,
    "finish_reason": "stop"
  }],
  "usage": {"prompt_tokens": 42, "completion_tokens": 5, "total_tokens": 47}
}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewOpenAIProvider(OpenAIConfig{
		APIKey:  "sk-test",
		BaseURL: server.URL + "/v1/",
	})
	require.NoError(t, err)
	return p
}

func TestNewOpenAIProvider_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIProvider(OpenAIConfig{})
	require.Error(t, err)

	var cfgErr *pgerrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "llm.api_key", cfgErr.Key)
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionBody))
	})

	resp, err := p.Complete(context.Background(), llm.CompletionRequest{
		Model: "gpt-4o",
		Messages: []llm.Message{
			{Role: llm.MessageRoleSystem, Content: "You are a helpful social media content creator."},
			{Role: llm.MessageRoleUser, Content: "Blue ceramic mug"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Great mug! #mugs", resp.Content)
	assert.Equal(t, llm.FinishReasonStop, resp.FinishReason)
	assert.Equal(t, "chatcmpl-123", resp.RequestID)
	assert.Equal(t, "gpt-4o-2024-08-06", resp.Model)
	assert.Equal(t, llm.TokenUsage{InputTokens: 42, OutputTokens: 5, TotalTokens: 47}, resp.Usage)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o", gotBody["model"])
	assert.NotContains(t, gotBody, "stream")

	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestOpenAIProvider_Complete_APIError(t *testing.T) {
	calls := 0
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	})

	_, err := p.Complete(context.Background(), llm.CompletionRequest{
		Model:    "gpt-4o",
		Messages: []llm.Message{{Role: llm.MessageRoleUser, Content: "hi"}},
	})
	require.Error(t, err)

	var provErr *pgerrors.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, "openai", provErr.Provider)
	assert.Equal(t, http.StatusUnauthorized, provErr.StatusCode)
	assert.Equal(t, 1, calls, "failed completions must not be retried")
}

func TestOpenAIProvider_Complete_NoChoices(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-empty","object":"chat.completion","created":1700000000,"model":"gpt-4o","choices":[]}`))
	})

	_, err := p.Complete(context.Background(), llm.CompletionRequest{
		Model:    "gpt-4o",
		Messages: []llm.Message{{Role: llm.MessageRoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestOpenAIProvider_Name(t *testing.T) {
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}
