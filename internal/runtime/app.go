// Package runtime assembles the service from configuration: provider, store,
// quota policy, pipeline, and HTTP router. Commands and the Lambda entry point
// all build through New so they serve identical behaviour.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tjfontaine/hookgen/internal/auth"
	"github.com/tjfontaine/hookgen/internal/config"
	"github.com/tjfontaine/hookgen/internal/domain"
	"github.com/tjfontaine/hookgen/internal/frontdoor/hooks"
	"github.com/tjfontaine/hookgen/internal/pipeline"
	"github.com/tjfontaine/hookgen/internal/provider"
	"github.com/tjfontaine/hookgen/internal/quota"
	"github.com/tjfontaine/hookgen/internal/server"
	"github.com/tjfontaine/hookgen/internal/storage"
	"github.com/tjfontaine/hookgen/internal/storage/gormdb"
	"github.com/tjfontaine/hookgen/internal/storage/memory"
	"github.com/tjfontaine/hookgen/internal/storage/sqldb"
)

// App is a fully wired service instance.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider domain.Provider
	store    storage.Store
	pipeline *pipeline.Pipeline
	server   *server.Server
}

// New validates cfg and builds every dependency once.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	app := &App{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if app.provider == nil {
		p, err := provider.New(cfg.Provider)
		if err != nil {
			return nil, fmt.Errorf("create provider: %w", err)
		}
		app.provider = p
	}

	if app.store == nil {
		store, err := OpenStore(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		app.store = store
	}

	var policy quota.Policy = quota.Unmetered{}
	if cfg.Quota.Mode == config.QuotaBalance {
		policy = quota.NewBalanceGate(app.store)
	}

	pipeOpts := []pipeline.Option{pipeline.WithLogger(app.logger)}
	if cfg.Memo.Enabled {
		pipeOpts = append(pipeOpts, pipeline.WithMemo(app.store, cfg.Memo.Persist))
	}
	app.pipeline = pipeline.New(app.provider, policy, pipeline.Settings{
		Model:           cfg.Provider.Model,
		Temperature:     cfg.Provider.Temperature,
		MaxTokens:       cfg.Provider.MaxTokens,
		Count:           cfg.Hooks.Count,
		MaxWords:        cfg.Hooks.MaxWords,
		MinChars:        cfg.Hooks.MinChars,
		MaxPromptTokens: cfg.Hooks.MaxPromptTokens,
		Validation:      cfg.Validation,
	}, pipeOpts...)

	app.server = server.New(server.Options{
		Port:        cfg.Server.Port,
		Timeout:     cfg.Server.Timeout,
		ServiceName: cfg.Telemetry.ServiceName,
	}, app.logger, auth.NewAuthenticator(cfg.Auth.APIKeys))

	hooks.NewHandler(app.pipeline, hooks.Options{
		Strict: cfg.Validation == config.ValidationStrict,
		Logger: app.logger,
	}).Register(app.server.Router, cfg.Server.Path)

	app.logger.Info("app initialized",
		slog.String("provider", app.provider.Name()),
		slog.String("model", cfg.Provider.Model),
		slog.String("storage", cfg.Storage.Type),
		slog.String("quota", cfg.Quota.Mode),
		slog.Bool("memo", cfg.Memo.Enabled),
		slog.String("path", cfg.Server.Path))

	return app, nil
}

var openSupabase = gormdb.Open

// OpenStore opens the store selected by cfg.Type.
func OpenStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case config.StorageMemory, "":
		return memory.New(), nil
	case config.StorageSQLite:
		return sqldb.New(sqldb.Config{Driver: "sqlite", DSN: cfg.DSN})
	case config.StoragePostgres:
		return sqldb.New(sqldb.Config{Driver: "pgx", DSN: cfg.DSN})
	case config.StorageSupabase:
		return openSupabase(cfg.DSN, gormdb.Options{AutoMigrate: cfg.AutoMigrate})
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// Handler returns the HTTP router with all middleware applied.
func (a *App) Handler() http.Handler {
	return a.server.Router
}

// Pipeline returns the generation pipeline.
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// Store returns the balance and memo store.
func (a *App) Store() storage.Store {
	return a.store
}

// Start serves HTTP until ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	return a.server.Start(ctx)
}

// Close releases the store.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close storage", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
