package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletionOpenAI(t *testing.T) {
	var captured ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cmpl-1","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := NewClient(Options{Provider: ProviderOpenAI, Endpoint: server.URL + "/v1/", APIKey: "test-key", Model: "gpt-4o-mini"})
	resp, err := client.ChatCompletion(context.Background(), []ChatMessage{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "usr"},
	}, 800, 0.7)
	require.NoError(t, err)

	require.Len(t, resp.Choices, 1)
	assert.Equal(t, `{"ok":true}`, resp.Choices[0].Message.Content)
	assert.Equal(t, "gpt-4o-mini", captured.Model)
	assert.Equal(t, 800, captured.MaxTokens)
	assert.InDelta(t, 0.7, captured.Temperature, 1e-6)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[1].Role)
}

func TestChatCompletionAzure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/waste-gpt/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-06-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "azure-key", r.Header.Get("api-key"))
		w.Write([]byte(`{"choices":[{"message":{"content":"hola"}}]}`))
	}))
	defer server.Close()

	client := NewClient(Options{Provider: ProviderAzure, Endpoint: server.URL, APIKey: "azure-key", APIVersion: "2024-06-01", Model: "waste-gpt"})
	resp, err := client.ChatCompletion(context.Background(), nil, 100, 0.5)
	require.NoError(t, err)
	assert.Equal(t, "hola", resp.Choices[0].Message.Content)
}

func TestChatCompletionErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"invalid_api_key","message":"Incorrect API key provided"}}`))
	}))
	defer server.Close()

	client := NewClient(Options{Endpoint: server.URL, APIKey: "bad", Model: "gpt-4o-mini"})
	_, err := client.ChatCompletion(context.Background(), nil, 100, 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status: 401")
	assert.Contains(t, err.Error(), "Incorrect API key provided")
}

func TestChatCompletionMissingKey(t *testing.T) {
	client := NewClient(Options{Endpoint: "http://127.0.0.1:0", Model: "gpt-4o-mini"})
	_, err := client.ChatCompletion(context.Background(), nil, 100, 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is not set")
}

func TestChatCompletionThroughProxy(t *testing.T) {
	var proxiedHost string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxiedHost = r.Host
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"OK"}}]}`))
	}))
	defer proxy.Close()

	client := NewClient(Options{
		Provider: ProviderOpenAI,
		Endpoint: "http://llm.example.internal/v1",
		APIKey:   "test-key",
		Model:    "gpt-4o-mini",
		ProxyURL: proxy.URL,
	})
	resp, err := client.ChatCompletion(context.Background(), []ChatMessage{{Role: "user", Content: "ping"}}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Choices[0].Message.Content)
	assert.Equal(t, "llm.example.internal", proxiedHost)
}
