package server

import (
	"context"
	"net/http"

	"github.com/tjfontaine/hookgen/internal/auth"
	"github.com/tjfontaine/hookgen/internal/domain"
)

type apiKeyContextKey struct{}

// AuthMiddleware validates the bearer API key. Health checks pass through so
// load balancers need no credentials.
func AuthMiddleware(authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			apiKey, err := auth.ExtractAPIKey(r)
			if err != nil {
				WriteError(w, r, domain.ErrUnauthorized(err.Error()))
				return
			}

			key, err := authenticator.ValidateAPIKey(apiKey)
			if err != nil {
				WriteError(w, r, domain.ErrUnauthorized("invalid API key"))
				return
			}

			AddLogField(r.Context(), "api_key", key.Description)
			ctx := context.WithValue(r.Context(), apiKeyContextKey{}, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAPIKey retrieves the authenticated key from context.
// Returns nil if auth is disabled.
func GetAPIKey(ctx context.Context) *auth.Key {
	if k, ok := ctx.Value(apiKeyContextKey{}).(*auth.Key); ok {
		return k
	}
	return nil
}
