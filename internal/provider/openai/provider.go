// Package openai adapts OpenAI-compatible chat completion endpoints (Groq by
// default) to domain.Provider using the in-tree HTTP client.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openaiapi "github.com/tjfontaine/hookgen/internal/api/openai"
	"github.com/tjfontaine/hookgen/internal/config"
	"github.com/tjfontaine/hookgen/internal/domain"
	"github.com/tjfontaine/hookgen/internal/provider/registry"
)

// ProviderType is the provider type identifier used in configuration.
const ProviderType = config.ProviderOpenAI

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = httpClient
	}
}

// Provider implements domain.Provider using our own OpenAI-compatible client.
type Provider struct {
	client     *openaiapi.Client
	baseURL    string
	httpClient *http.Client
}

// New creates a new OpenAI-compatible provider.
func New(apiKey string, opts ...ProviderOption) *Provider {
	p := &Provider{}
	for _, opt := range opts {
		opt(p)
	}

	var clientOpts []openaiapi.ClientOption
	if p.baseURL != "" {
		clientOpts = append(clientOpts, openaiapi.WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		clientOpts = append(clientOpts, openaiapi.WithHTTPClient(p.httpClient))
	}

	p.client = openaiapi.NewClient(apiKey, clientOpts...)
	return p
}

func (p *Provider) Name() string {
	return ProviderType
}

func (p *Provider) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, toAPIRequest(req), &openaiapi.RequestOptions{
		UserAgent: req.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	return toCompletionResponse(resp)
}

func toAPIRequest(req *domain.CompletionRequest) *openaiapi.ChatCompletionRequest {
	msgs := make([]openaiapi.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openaiapi.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	apiReq := &openaiapi.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  msgs,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		apiReq.Temperature = &temp
	}
	return apiReq
}

var errNoChoices = errors.New("response contained no choices")

func toCompletionResponse(resp *openaiapi.ChatCompletionResponse) (*domain.CompletionResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, errNoChoices
	}
	choice := resp.Choices[0]
	if strings.TrimSpace(choice.Message.Content) == "" {
		return nil, fmt.Errorf("choice %d has empty content (finish_reason=%q)", choice.Index, choice.FinishReason)
	}

	return &domain.CompletionResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Text:         choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// CreateFromConfig creates a provider from configuration.
func CreateFromConfig(cfg config.ProviderConfig) (domain.Provider, error) {
	var opts []ProviderOption
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	return New(cfg.APIKey, opts...), nil
}

// ValidateConfig validates the provider configuration.
func ValidateConfig(cfg config.ProviderConfig) error {
	if cfg.APIKey == "" {
		return errors.New("api key is required")
	}
	return nil
}

// RegisterProviderFactory registers the OpenAI-compatible factory once.
func RegisterProviderFactory() {
	if registry.IsRegistered(ProviderType) {
		return
	}
	registry.RegisterFactory(registry.ProviderFactory{
		Type:           ProviderType,
		Description:    "OpenAI-compatible chat completions (Groq by default)",
		Create:         CreateFromConfig,
		ValidateConfig: ValidateConfig,
	})
}
