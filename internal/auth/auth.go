// Package auth validates service API keys presented as bearer tokens.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/tjfontaine/hookgen/internal/config"
)

var (
	ErrMissingKey    = errors.New("missing Authorization header")
	ErrInvalidKey    = errors.New("invalid API key")
	ErrBadAuthFormat = errors.New("invalid Authorization header format")
)

// Key is a configured caller identity.
type Key struct {
	Hash        string
	Description string
}

// Authenticator validates API keys against stored SHA-256 hashes.
type Authenticator struct {
	keys map[string]Key // keyhash -> key
}

// NewAuthenticator builds an authenticator from configured key hashes.
// Returns nil when no keys are configured, which disables auth.
func NewAuthenticator(keys []config.APIKeyConfig) *Authenticator {
	if len(keys) == 0 {
		return nil
	}

	a := &Authenticator{keys: make(map[string]Key, len(keys))}
	for _, k := range keys {
		h := strings.ToLower(strings.TrimSpace(k.KeyHash))
		a.keys[h] = Key{Hash: h, Description: k.Description}
	}
	return a
}

// ValidateAPIKey validates an API key and returns the matching Key.
func (a *Authenticator) ValidateAPIKey(apiKey string) (*Key, error) {
	keyHash := HashAPIKey(apiKey)

	k, ok := a.keys[keyHash]
	if !ok {
		return nil, ErrInvalidKey
	}

	// Constant-time comparison to prevent timing attacks
	if subtle.ConstantTimeCompare([]byte(keyHash), []byte(k.Hash)) != 1 {
		return nil, ErrInvalidKey
	}
	return &k, nil
}

// ExtractAPIKey extracts the API key from the Authorization header
func ExtractAPIKey(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingKey
	}

	// Support "Bearer <key>" format
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		return "", ErrBadAuthFormat
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return "", ErrBadAuthFormat
	}

	return strings.TrimSpace(parts[1]), nil
}

// HashAPIKey creates a SHA-256 hash of an API key for storage
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}
