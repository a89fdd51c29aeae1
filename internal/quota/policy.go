// Package quota decides whether a user may generate and records the spend.
package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tjfontaine/hookgen/internal/domain"
	"github.com/tjfontaine/hookgen/internal/storage"
)

// Decision is the outcome of a successful Check.
type Decision struct {
	// Gated reports whether a successful generation must be debited.
	Gated bool

	// Tokens is the balance seen at check time (gated only).
	Tokens int
}

// Policy gates generation requests.
type Policy interface {
	// Check returns an *domain.APIError when the request must be rejected
	// before any provider call.
	Check(ctx context.Context, userID string) (Decision, error)

	// Debit records one successful generation and returns the remaining
	// balance. Only called when Check returned a gated decision.
	Debit(ctx context.Context, userID string) (int, error)
}

// Unmetered allows every request and never debits.
type Unmetered struct{}

func (Unmetered) Check(ctx context.Context, userID string) (Decision, error) {
	return Decision{}, nil
}

func (Unmetered) Debit(ctx context.Context, userID string) (int, error) {
	return 0, nil
}

// BalanceGate requires a known user with at least one token.
type BalanceGate struct {
	store storage.BalanceStore
}

// NewBalanceGate creates a gate over store.
func NewBalanceGate(store storage.BalanceStore) *BalanceGate {
	return &BalanceGate{store: store}
}

func (g *BalanceGate) Check(ctx context.Context, userID string) (Decision, error) {
	if strings.TrimSpace(userID) == "" {
		return Decision{}, domain.ErrUnauthorized("userId is required").WithParam("userId")
	}

	bal, err := g.store.GetBalance(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return Decision{}, domain.ErrNotFound("no token balance for user")
	}
	if err != nil {
		return Decision{}, domain.ErrInternal("failed to read balance", err)
	}
	if bal.Tokens <= 0 {
		return Decision{}, domain.ErrQuotaExceeded("no tokens remaining")
	}

	return Decision{Gated: true, Tokens: bal.Tokens}, nil
}

// Debit decrements atomically at the store. A lost race surfaces as
// storage.ErrInsufficientTokens.
func (g *BalanceGate) Debit(ctx context.Context, userID string) (int, error) {
	remaining, err := g.store.DebitBalance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("debit %s: %w", userID, err)
	}
	return remaining, nil
}
