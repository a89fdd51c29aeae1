// Package template is an offline provider that fills fixed hook templates
// with the request topic. It never touches the network.
package template

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tjfontaine/hookgen/internal/config"
	"github.com/tjfontaine/hookgen/internal/domain"
	"github.com/tjfontaine/hookgen/internal/provider/registry"
)

// ProviderType is the provider type identifier used in configuration.
const ProviderType = config.ProviderTemplate

var templates = []string{
	"Start with a surprising stat and finish with a clear call-to-action.",
	"Open with a short personal story, then share the one tip that changed everything.",
	"Ask a bold question in the first 2 seconds and promise a quick result.",
}

type Provider struct{}

func New() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string {
	return ProviderType
}

func (p *Provider) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, errors.New("template provider needs a topic")
	}

	lines := make([]string, len(templates))
	for i, t := range templates {
		lines[i] = fmt.Sprintf("Hook idea for %q: %s", topic, t)
	}

	return &domain.CompletionResponse{
		Model:        ProviderType,
		Text:         strings.Join(lines, "\n"),
		FinishReason: "stop",
	}, nil
}

// CreateFromConfig creates a provider from configuration.
func CreateFromConfig(config.ProviderConfig) (domain.Provider, error) {
	return New(), nil
}

// RegisterProviderFactory registers the template factory once.
func RegisterProviderFactory() {
	if registry.IsRegistered(ProviderType) {
		return
	}
	registry.RegisterFactory(registry.ProviderFactory{
		Type:        ProviderType,
		Description: "Offline templated hooks (no network)",
		Create:      CreateFromConfig,
	})
}
