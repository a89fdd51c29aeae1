// Package storagetest holds behaviour tests every storage.Store must pass.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tjfontaine/hookgen/internal/storage"
)

// Run exercises the storage.Store contract against stores built by newStore.
// Each subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("GetBalance missing", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.GetBalance(context.Background(), "nobody"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("GetBalance() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("SetBalance and GetBalance", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if _, err := s.SetBalance(ctx, "u1", 5); err != nil {
			t.Fatalf("SetBalance() error = %v", err)
		}
		b, err := s.SetBalance(ctx, "u1", 3)
		if err != nil {
			t.Fatalf("SetBalance() overwrite error = %v", err)
		}
		if b.Tokens != 3 {
			t.Errorf("SetBalance() tokens = %d, want 3", b.Tokens)
		}

		got, err := s.GetBalance(ctx, "u1")
		if err != nil {
			t.Fatalf("GetBalance() error = %v", err)
		}
		if got.UserID != "u1" || got.Tokens != 3 {
			t.Errorf("GetBalance() = %+v", got)
		}
		if got.UpdatedAt.IsZero() {
			t.Error("UpdatedAt not set")
		}
	})

	t.Run("GrantTokens", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if _, err := s.GrantTokens(ctx, "ghost", 1); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("GrantTokens() on missing user error = %v, want ErrNotFound", err)
		}

		mustSet(t, s, "u1", 2)
		b, err := s.GrantTokens(ctx, "u1", 3)
		if err != nil {
			t.Fatalf("GrantTokens() error = %v", err)
		}
		if b.Tokens != 5 {
			t.Errorf("tokens = %d, want 5", b.Tokens)
		}

		b, err = s.GrantTokens(ctx, "u1", -10)
		if err != nil {
			t.Fatalf("GrantTokens() negative error = %v", err)
		}
		if b.Tokens != 0 {
			t.Errorf("tokens = %d, want clamp to 0", b.Tokens)
		}
	})

	t.Run("DebitBalance", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if _, err := s.DebitBalance(ctx, "ghost"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("DebitBalance() on missing user error = %v, want ErrNotFound", err)
		}

		mustSet(t, s, "u1", 1)
		remaining, err := s.DebitBalance(ctx, "u1")
		if err != nil {
			t.Fatalf("DebitBalance() error = %v", err)
		}
		if remaining != 0 {
			t.Errorf("remaining = %d, want 0", remaining)
		}

		if _, err := s.DebitBalance(ctx, "u1"); !errors.Is(err, storage.ErrInsufficientTokens) {
			t.Fatalf("DebitBalance() at zero error = %v, want ErrInsufficientTokens", err)
		}

		b, err := s.GetBalance(ctx, "u1")
		if err != nil {
			t.Fatalf("GetBalance() error = %v", err)
		}
		if b.Tokens != 0 {
			t.Errorf("tokens = %d, never below zero", b.Tokens)
		}
	})

	t.Run("DebitBalance concurrent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustSet(t, s, "u1", 3)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.DebitBalance(ctx, "u1"); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if successes != 3 {
			t.Errorf("successful debits = %d, want 3", successes)
		}
		b, err := s.GetBalance(ctx, "u1")
		if err != nil {
			t.Fatalf("GetBalance() error = %v", err)
		}
		if b.Tokens != 0 {
			t.Errorf("tokens = %d, want 0", b.Tokens)
		}
	})

	t.Run("FindHookSet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if _, err := s.FindHookSet(ctx, "coffee"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("FindHookSet() on empty store error = %v, want ErrNotFound", err)
		}

		base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		older := &storage.HookSet{Topic: "Cold Brew Coffee", Hooks: []string{"old hook one"}, Source: "provider", CreatedAt: base}
		newer := &storage.HookSet{Topic: "coffee shop marketing", Hooks: []string{"new hook one", "new hook two"}, Source: "provider", CreatedAt: base.Add(time.Hour)}
		other := &storage.HookSet{Topic: "100% juice", Hooks: []string{"juice hook"}, Source: "provider", CreatedAt: base.Add(2 * time.Hour)}
		for _, set := range []*storage.HookSet{older, newer, other} {
			if err := s.SaveHookSet(ctx, set); err != nil {
				t.Fatalf("SaveHookSet() error = %v", err)
			}
			if set.ID == "" {
				t.Fatal("SaveHookSet() did not assign an ID")
			}
		}

		got, err := s.FindHookSet(ctx, "COFFEE")
		if err != nil {
			t.Fatalf("FindHookSet() error = %v", err)
		}
		if got.ID != newer.ID {
			t.Errorf("FindHookSet() = %q, want newest match %q", got.Topic, newer.Topic)
		}
		if len(got.Hooks) != 2 || got.Hooks[1] != "new hook two" {
			t.Errorf("Hooks = %v", got.Hooks)
		}

		got, err = s.FindHookSet(ctx, "brew")
		if err != nil {
			t.Fatalf("FindHookSet(brew) error = %v", err)
		}
		if got.ID != older.ID {
			t.Errorf("FindHookSet(brew) = %q", got.Topic)
		}

		// wildcard characters match literally
		if _, err := s.FindHookSet(ctx, "0%"); err != nil {
			t.Errorf("FindHookSet(0%%) error = %v", err)
		}
		if _, err := s.FindHookSet(ctx, "c_ld"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("FindHookSet(c_ld) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("FindHookSet folds non-ASCII case", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		set := &storage.HookSet{Topic: "Über Fitness", Hooks: []string{"fit hook one"}, Source: "provider"}
		if err := s.SaveHookSet(ctx, set); err != nil {
			t.Fatalf("SaveHookSet() error = %v", err)
		}

		for _, needle := range []string{"über", "ÜBER FIT", "fitness"} {
			got, err := s.FindHookSet(ctx, needle)
			if err != nil {
				t.Fatalf("FindHookSet(%q) error = %v", needle, err)
			}
			if got.ID != set.ID {
				t.Errorf("FindHookSet(%q) = %q, want %q", needle, got.Topic, set.Topic)
			}
		}
	})
}

func mustSet(t *testing.T, s storage.Store, userID string, tokens int) {
	t.Helper()
	if _, err := s.SetBalance(context.Background(), userID, tokens); err != nil {
		t.Fatalf("SetBalance() error = %v", err)
	}
}
