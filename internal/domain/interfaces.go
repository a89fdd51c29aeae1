package domain

import (
	"context"
)

// Provider defines the interface for text generation providers.
type Provider interface {
	Name() string

	// Complete issues a single synchronous generation request. Adapters must
	// validate the upstream response shape and return an error rather than an
	// empty CompletionResponse.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}
