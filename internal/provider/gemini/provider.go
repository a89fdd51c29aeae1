// Package gemini adapts Google's Gemini models to domain.Provider via
// generative-ai-go.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/tjfontaine/hookgen/internal/config"
	"github.com/tjfontaine/hookgen/internal/domain"
	"github.com/tjfontaine/hookgen/internal/provider/registry"
)

// ProviderType is the provider type identifier used in configuration.
const ProviderType = config.ProviderGemini

// Provider implements domain.Provider. A client is opened per request and
// closed when it returns.
type Provider struct {
	opts []option.ClientOption
}

// New creates a Gemini provider. Extra client options (endpoint, HTTP
// client) are passed through to genai.NewClient.
func New(apiKey string, opts ...option.ClientOption) *Provider {
	return &Provider{opts: append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)}
}

func (p *Provider) Name() string {
	return ProviderType
}

func (p *Provider) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	client, err := genai.NewClient(ctx, p.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(req.Model)
	if req.Temperature > 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	system, parts := splitMessages(req.Messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, err
	}
	return toCompletionResponse(req.Model, resp)
}

// splitMessages folds system messages into one instruction and the rest into
// prompt parts, in order.
func splitMessages(msgs []domain.Message) (string, []genai.Part) {
	var system []string
	var parts []genai.Part
	for _, m := range msgs {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	return strings.Join(system, "\n\n"), parts
}

var errNoCandidates = errors.New("gemini: response contained no candidates")

func toCompletionResponse(model string, resp *genai.GenerateContentResponse) (*domain.CompletionResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, errNoCandidates
	}

	cand := resp.Candidates[0]
	text := candidateText(cand)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("gemini: candidate has no text (finish_reason=%s)", cand.FinishReason)
	}

	out := &domain.CompletionResponse{
		Model:        model,
		Text:         text,
		FinishReason: strings.ToLower(cand.FinishReason.String()),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = domain.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

func candidateText(cand *genai.Candidate) string {
	if cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

// CreateFromConfig creates a provider from configuration.
func CreateFromConfig(cfg config.ProviderConfig) (domain.Provider, error) {
	var opts []option.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	return New(cfg.APIKey, opts...), nil
}

// ValidateConfig validates the provider configuration.
func ValidateConfig(cfg config.ProviderConfig) error {
	if cfg.APIKey == "" {
		return errors.New("gemini api key missing; set GEMINI_API_KEY or provider.api_key")
	}
	return nil
}

// RegisterProviderFactory registers the Gemini factory once.
func RegisterProviderFactory() {
	if registry.IsRegistered(ProviderType) {
		return
	}
	registry.RegisterFactory(registry.ProviderFactory{
		Type:           ProviderType,
		Description:    "Google Gemini via generative-ai-go",
		Create:         CreateFromConfig,
		ValidateConfig: ValidateConfig,
	})
}
