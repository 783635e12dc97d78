package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	config "waste-process-api/configs"
	"waste-process-api/pkg/openai"

	genai "google.golang.org/genai"
)

// LLMGateway sends a two-message prompt to a completion service and returns
// the raw text of the first choice. Every failure wraps ErrUpstream.
type LLMGateway interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// GatewayParams are the fixed sampling parameters shared by all gateways.
type GatewayParams struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIGateway talks to OpenAI or Azure OpenAI chat completions.
type OpenAIGateway struct {
	client *openai.Client
	params GatewayParams
}

// NewOpenAIGateway wraps an existing REST client.
func NewOpenAIGateway(client *openai.Client, params GatewayParams) *OpenAIGateway {
	return &OpenAIGateway{client: client, params: params}
}

// Complete implements LLMGateway.
func (g *OpenAIGateway) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []openai.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}

	start := time.Now()
	resp, err := g.client.ChatCompletion(ctx, messages, g.params.MaxTokens, g.params.Temperature)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion returned no choices", ErrUpstream)
	}
	log.Printf("🤖 %s completion in %v (tokens: %d)", g.client.Model(), time.Since(start).Round(time.Millisecond), resp.Usage.TotalTokens)

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// GeminiGateway talks to the Gemini API through the genai SDK.
type GeminiGateway struct {
	client *genai.Client
	params GatewayParams
}

// NewGeminiGateway creates a Gemini client bound to apiKey. An empty baseURL
// keeps the SDK default endpoint.
func NewGeminiGateway(ctx context.Context, apiKey, baseURL string, params GatewayParams) (*GeminiGateway, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGateway{client: client, params: params}, nil
}

// Complete implements LLMGateway.
func (g *GeminiGateway) Complete(ctx context.Context, system, user string) (string, error) {
	if g.params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.params.Timeout)
		defer cancel()
	}

	temperature := g.params.Temperature
	resp, err := g.client.Models.GenerateContent(ctx, g.params.Model,
		genai.Text(user),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			Temperature:       &temperature,
			MaxOutputTokens:   int32(g.params.MaxTokens),
		},
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: completion returned no candidates", ErrUpstream)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

// NewGatewayFromConfig builds the gateway selected by cfg.LLMProvider.
func NewGatewayFromConfig(ctx context.Context, cfg *config.Config) (LLMGateway, error) {
	timeout := time.Duration(cfg.LLMTimeoutSec) * time.Second

	switch cfg.LLMProvider {
	case openai.ProviderOpenAI:
		client := openai.NewClient(openai.Options{
			Provider: openai.ProviderOpenAI,
			Endpoint: cfg.OpenAIBaseURL,
			APIKey:   cfg.OpenAIAPIKey,
			Model:    cfg.OpenAIModel,
			Timeout:  timeout,
			ProxyURL: cfg.LLMProxyURL,
		})
		return NewOpenAIGateway(client, GatewayParams{
			Model:       cfg.OpenAIModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
			Timeout:     timeout,
		}), nil
	case openai.ProviderAzure:
		client := openai.NewClient(openai.Options{
			Provider:   openai.ProviderAzure,
			Endpoint:   cfg.AzureOpenAIEndpoint,
			APIKey:     cfg.AzureOpenAIAPIKey,
			APIVersion: cfg.AzureOpenAIAPIVersion,
			Model:      cfg.AzureOpenAIDeploymentName,
			Timeout:    timeout,
			ProxyURL:   cfg.LLMProxyURL,
		})
		return NewOpenAIGateway(client, GatewayParams{
			Model:       cfg.AzureOpenAIDeploymentName,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
			Timeout:     timeout,
		}), nil
	case "gemini":
		return NewGeminiGateway(ctx, cfg.GeminiAPIKey, cfg.GeminiBaseURL, GatewayParams{
			Model:       cfg.GeminiModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
			Timeout:     timeout,
		})
	}
	return nil, errors.New("unsupported LLM provider: " + cfg.LLMProvider)
}
