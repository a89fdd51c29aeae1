// Package provider wires the built-in generation providers into the registry
// and builds the configured one.
//
// # Adding a New Provider
//
// Implement domain.Provider in a subpackage and expose a
// RegisterProviderFactory function that calls registry.RegisterFactory,
// then add it to RegisterBuiltins.
package provider

import (
	"github.com/tjfontaine/hookgen/internal/config"
	"github.com/tjfontaine/hookgen/internal/domain"
	"github.com/tjfontaine/hookgen/internal/provider/gemini"
	"github.com/tjfontaine/hookgen/internal/provider/openai"
	"github.com/tjfontaine/hookgen/internal/provider/openaisdk"
	"github.com/tjfontaine/hookgen/internal/provider/registry"
	"github.com/tjfontaine/hookgen/internal/provider/template"
)

// Re-export types from registry for convenience
type ProviderFactory = registry.ProviderFactory

// ListProviderTypes returns all registered provider type names (delegated to registry).
var ListProviderTypes = registry.ListProviderTypes

// IsRegistered returns true if a provider type is registered (delegated to registry).
var IsRegistered = registry.IsRegistered

// RegisterBuiltins registers every provider shipped with hookgen. Safe to
// call more than once.
func RegisterBuiltins() {
	openai.RegisterProviderFactory()
	openaisdk.RegisterProviderFactory()
	gemini.RegisterProviderFactory()
	template.RegisterProviderFactory()
}

// New builds the provider selected by cfg.Type.
func New(cfg config.ProviderConfig) (domain.Provider, error) {
	RegisterBuiltins()
	return registry.CreateFromFactory(cfg)
}
