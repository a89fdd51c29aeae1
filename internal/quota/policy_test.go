package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/tjfontaine/hookgen/internal/domain"
	"github.com/tjfontaine/hookgen/internal/storage"
	"github.com/tjfontaine/hookgen/internal/storage/memory"
)

type failingStore struct {
	storage.BalanceStore
}

func (failingStore) GetBalance(ctx context.Context, userID string) (*storage.Balance, error) {
	return nil, errors.New("connection refused")
}

func TestUnmetered(t *testing.T) {
	var p Policy = Unmetered{}
	d, err := p.Check(context.Background(), "")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if d.Gated {
		t.Error("Unmetered decision should not be gated")
	}
}

func TestBalanceGate_Check(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	store.SetBalance(ctx, "rich", 5)
	store.SetBalance(ctx, "broke", 0)

	tests := []struct {
		name     string
		store    storage.BalanceStore
		userID   string
		wantType domain.ErrorType
		wantTok  int
	}{
		{name: "has tokens", store: store, userID: "rich", wantTok: 5},
		{name: "missing user id", store: store, userID: "  ", wantType: domain.ErrorTypeUnauthorized},
		{name: "no balance row", store: store, userID: "stranger", wantType: domain.ErrorTypeNotFound},
		{name: "zero tokens", store: store, userID: "broke", wantType: domain.ErrorTypeQuotaExceeded},
		{name: "store failure", store: failingStore{}, userID: "rich", wantType: domain.ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewBalanceGate(tt.store).Check(ctx, tt.userID)
			if tt.wantType != "" {
				if !domain.IsType(err, tt.wantType) {
					t.Fatalf("Check() error = %v, want %s", err, tt.wantType)
				}
				return
			}
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if !d.Gated || d.Tokens != tt.wantTok {
				t.Errorf("Check() = %+v, want gated with %d tokens", d, tt.wantTok)
			}
		})
	}
}

func TestBalanceGate_Debit(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	store.SetBalance(ctx, "u1", 1)
	gate := NewBalanceGate(store)

	remaining, err := gate.Debit(ctx, "u1")
	if err != nil {
		t.Fatalf("Debit() error = %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}

	if _, err := gate.Debit(ctx, "u1"); !errors.Is(err, storage.ErrInsufficientTokens) {
		t.Errorf("Debit() at zero error = %v, want ErrInsufficientTokens", err)
	}

	if _, err := gate.Check(ctx, "u1"); !domain.IsType(err, domain.ErrorTypeQuotaExceeded) {
		t.Errorf("Check() after spend error = %v, want quota_exceeded", err)
	}
}
