package runtime

import (
	"errors"
	"log/slog"

	"github.com/tjfontaine/hookgen/internal/domain"
	"github.com/tjfontaine/hookgen/internal/storage"
)

// Option is a functional option for configuring an App.
type Option func(*App) error

// WithLogger sets the logger used by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		a.logger = logger
		return nil
	}
}

// WithProvider uses p instead of building one from config.
func WithProvider(p domain.Provider) Option {
	return func(a *App) error {
		a.provider = p
		return nil
	}
}

// WithStore uses store instead of opening one from config.
func WithStore(store storage.Store) Option {
	return func(a *App) error {
		a.store = store
		return nil
	}
}
