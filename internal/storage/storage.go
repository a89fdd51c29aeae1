// Package storage defines the balance and memo persistence contracts shared
// by the memory, SQL, and Supabase stores.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no balance row or hook set matches.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientTokens is returned by DebitBalance when the row exists
	// but already holds zero tokens.
	ErrInsufficientTokens = errors.New("insufficient tokens")
)

// Balance is a user's remaining generation allowance.
type Balance struct {
	UserID    string    `json:"userId" db:"user_id"`
	Tokens    int       `json:"tokens" db:"tokens"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// HookSet is a memoized hook list keyed by topic.
type HookSet struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Hooks     []string  `json:"hooks"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

// BalanceStore owns per-user token balances.
type BalanceStore interface {
	// GetBalance returns ErrNotFound when the user has no row.
	GetBalance(ctx context.Context, userID string) (*Balance, error)

	// SetBalance creates or overwrites the user's balance.
	SetBalance(ctx context.Context, userID string, tokens int) (*Balance, error)

	// GrantTokens adds delta (which may be negative) to an existing balance,
	// clamping at zero. Returns ErrNotFound when the user has no row.
	GrantTokens(ctx context.Context, userID string, delta int) (*Balance, error)

	// DebitBalance atomically decrements tokens by one when tokens > 0 and
	// returns the remaining count. Returns ErrNotFound or
	// ErrInsufficientTokens when nothing was decremented.
	DebitBalance(ctx context.Context, userID string) (int, error)
}

// HookSetStore owns memoized hook lists.
type HookSetStore interface {
	// FindHookSet returns the newest set whose topic contains topic,
	// case-insensitively. Returns ErrNotFound on a miss.
	FindHookSet(ctx context.Context, topic string) (*HookSet, error)

	// SaveHookSet inserts set, assigning ID and CreatedAt when empty.
	SaveHookSet(ctx context.Context, set *HookSet) error
}

// Store is implemented by every backend.
type Store interface {
	BalanceStore
	HookSetStore
	Close() error
}

// Fold is the case folding used for memo topic matching.
func Fold(s string) string {
	return strings.ToLower(s)
}

// LikePattern builds a case-folded `%needle%` pattern for a LIKE ... ESCAPE '\'
// clause, escaping the wildcard characters in needle.
func LikePattern(needle string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(Fold(needle)) + "%"
}
