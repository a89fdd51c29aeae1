// Package hookgen provides the public API for embedding the hook generation
// service. This is the stable API for external consumers.
package hookgen

import (
	"github.com/tjfontaine/hookgen/internal/config"
	"github.com/tjfontaine/hookgen/internal/domain"
	"github.com/tjfontaine/hookgen/internal/runtime"
)

// App is a fully wired service instance.
// See internal/runtime.App for full documentation.
type App = runtime.App

// Option is a functional option for configuring an App.
type Option = runtime.Option

// Config is the service configuration.
type Config = config.Config

// Request and result types.
type (
	GenerationRequest  = domain.GenerationRequest
	GenerationResult   = domain.GenerationResult
	Provider           = domain.Provider
	CompletionRequest  = domain.CompletionRequest
	CompletionResponse = domain.CompletionResponse
	APIError           = domain.APIError
)

// New creates a new App from cfg.
// Example:
//
//	cfg, _ := hookgen.LoadConfig("config.yaml")
//	app, err := hookgen.New(cfg, hookgen.WithLogger(logger))
//	http.ListenAndServe(":8080", app.Handler())
var New = runtime.New

// LoadConfig reads a config file (optional) and HOOKGEN_ env overrides.
var LoadConfig = config.LoadFile

// Configuration options
var (
	WithLogger   = runtime.WithLogger
	WithProvider = runtime.WithProvider
	WithStore    = runtime.WithStore
)
