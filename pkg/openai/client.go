package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Provider flavours understood by Client.
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
)

// Client はOpenAI互換のChat Completions REST APIへのリクエストを管理します。
// ProviderAzure の場合は deployments パスと api-key ヘッダーを使用し、
// ProviderOpenAI の場合は /chat/completions と Bearer 認証を使用します。
type Client struct {
	provider   string
	endpoint   string
	apiKey     string
	apiVersion string
	model      string
	httpClient *http.Client
}

// Options configures a Client.
type Options struct {
	Provider   string
	Endpoint   string
	APIKey     string
	APIVersion string // Azure only
	Model      string // model name (OpenAI) or deployment name (Azure)
	Timeout    time.Duration
	ProxyURL   string
}

// NewClient は新しいクライアントを作成します。
func NewClient(opts Options) *Client {
	transport := &http.Transport{}
	if opts.ProxyURL != "" {
		proxy, err := url.Parse(opts.ProxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxy)
			log.Println("🔧 HTTP client proxy configured:", opts.ProxyURL)
		} else {
			log.Printf("⚠️ invalid proxy URL, ignoring it: %v", err)
		}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	provider := opts.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	return &Client{
		provider:   provider,
		endpoint:   strings.TrimSuffix(opts.Endpoint, "/"),
		apiKey:     opts.APIKey,
		apiVersion: opts.APIVersion,
		model:      opts.Model,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// Model returns the configured model or deployment name.
func (c *Client) Model() string { return c.model }

// --- データ構造定義 ---

// ChatMessage チャットメッセージ
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest チャット補完リクエスト
type ChatCompletionRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature"`
}

// ChatCompletionResponse チャット補完レスポンス
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// ErrorResponse エラーレスポンス
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// --- メソッド定義 ---

// ChatCompletion チャット補完を実行
func (c *Client) ChatCompletion(ctx context.Context, messages []ChatMessage, maxTokens int, temperature float32) (*ChatCompletionResponse, error) {
	request := ChatCompletionRequest{
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	if c.provider != ProviderAzure {
		request.Model = c.model
	}

	var response ChatCompletionResponse
	if err := c.doRequest(ctx, c.chatURL(), request, &response); err != nil {
		return nil, fmt.Errorf("chat completion call failed: %w", err)
	}
	return &response, nil
}

func (c *Client) chatURL() string {
	if c.provider == ProviderAzure {
		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			c.endpoint, c.model, c.apiVersion)
	}
	return c.endpoint + "/chat/completions"
}

// doRequest はHTTPリクエストの実行と基本的なレスポンス処理を行う共通メソッドです。
func (c *Client) doRequest(ctx context.Context, url string, requestData interface{}, responseData interface{}) error {
	if c.apiKey == "" {
		return fmt.Errorf("API key is not set")
	}

	requestBody, err := json.Marshal(requestData)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to build HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.provider == ProviderAzure {
		req.Header.Set("api-key", c.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			return fmt.Errorf("API error (status: %d): %s", resp.StatusCode, errorResp.Error.Message)
		}
		return fmt.Errorf("API error (status: %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, responseData); err != nil {
		return fmt.Errorf("failed to decode response JSON: %w", err)
	}

	return nil
}
