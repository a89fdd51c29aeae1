// Package memory is an in-process Store for tests and local development.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/hookgen/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu       sync.RWMutex
	balances map[string]*storage.Balance
	hookSets []*storage.HookSet
}

var _ storage.Store = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{
		balances: make(map[string]*storage.Balance),
	}
}

func (s *Store) GetBalance(ctx context.Context, userID string) (*storage.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.balances[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) SetBalance(ctx context.Context, userID string, tokens int) (*storage.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := &storage.Balance{UserID: userID, Tokens: max(tokens, 0), UpdatedAt: time.Now().UTC()}
	s.balances[userID] = b
	cp := *b
	return &cp, nil
}

func (s *Store) GrantTokens(ctx context.Context, userID string, delta int) (*storage.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.balances[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	b.Tokens = max(b.Tokens+delta, 0)
	b.UpdatedAt = time.Now().UTC()
	cp := *b
	return &cp, nil
}

func (s *Store) DebitBalance(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.balances[userID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	if b.Tokens <= 0 {
		return 0, storage.ErrInsufficientTokens
	}
	b.Tokens--
	b.UpdatedAt = time.Now().UTC()
	return b.Tokens, nil
}

func (s *Store) FindHookSet(ctx context.Context, topic string) (*storage.HookSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := storage.Fold(topic)
	var best *storage.HookSet
	for _, set := range s.hookSets {
		if !strings.Contains(storage.Fold(set.Topic), needle) {
			continue
		}
		// later inserts win ties
		if best == nil || !set.CreatedAt.Before(best.CreatedAt) {
			best = set
		}
	}
	if best == nil {
		return nil, storage.ErrNotFound
	}

	cp := *best
	cp.Hooks = append([]string(nil), best.Hooks...)
	return &cp, nil
}

func (s *Store) SaveHookSet(ctx context.Context, set *storage.HookSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now().UTC()
	}

	cp := *set
	cp.Hooks = append([]string(nil), set.Hooks...)
	s.hookSets = append(s.hookSets, &cp)
	return nil
}

func (s *Store) Close() error {
	return nil
}
