package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/tjfontaine/hookgen/internal/domain"
	"github.com/tjfontaine/hookgen/internal/quota"
	"github.com/tjfontaine/hookgen/internal/storage"
	"github.com/tjfontaine/hookgen/internal/storage/memory"
)

const goodReply = "1. Stop scrolling, this changes everything\n2) Surprising fact hook\n3. You have been doing this wrong\n\nHi"

type stubProvider struct {
	text  string
	err   error
	calls atomic.Int32
	last  *domain.CompletionRequest
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	p.calls.Add(1)
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	return &domain.CompletionResponse{Model: req.Model, Text: p.text}, nil
}

// failingDebit passes every check and fails every debit.
type failingDebit struct{}

func (failingDebit) Check(ctx context.Context, userID string) (quota.Decision, error) {
	return quota.Decision{Gated: true, Tokens: 1}, nil
}

func (failingDebit) Debit(ctx context.Context, userID string) (int, error) {
	return 0, errors.New("connection reset")
}

// brokenMemo fails every lookup.
type brokenMemo struct{ storage.HookSetStore }

func (brokenMemo) FindHookSet(ctx context.Context, topic string) (*storage.HookSet, error) {
	return nil, errors.New("database is locked")
}

func testSettings() Settings {
	return Settings{Model: "test-model", Temperature: 0.8, Count: 5, MaxWords: 15, MinChars: 6}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func balanceStore(t *testing.T, userID string, tokens int) *memory.Store {
	t.Helper()
	store := memory.New()
	if _, err := store.SetBalance(context.Background(), userID, tokens); err != nil {
		t.Fatalf("SetBalance() error = %v", err)
	}
	return store
}

func wantAPIError(t *testing.T, err error, want domain.ErrorType) {
	t.Helper()
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *domain.APIError", err)
	}
	if apiErr.Type != want {
		t.Fatalf("error type = %q, want %q (%v)", apiErr.Type, want, err)
	}
}

func TestGenerate_Ungated(t *testing.T) {
	provider := &stubProvider{text: goodReply}
	p := New(provider, nil, testSettings(), WithLogger(quietLogger()))

	res, err := p.Generate(context.Background(), &domain.GenerationRequest{
		Topic: " cold brew ", Platform: "TikTok", Tone: "bold", UserAgent: "curl/8.0",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	want := []string{"Stop scrolling, this changes everything", "Surprising fact hook", "You have been doing this wrong"}
	if strings.Join(res.Hooks, "|") != strings.Join(want, "|") {
		t.Errorf("hooks = %q, want %q", res.Hooks, want)
	}
	if res.Source != domain.SourceProvider {
		t.Errorf("source = %q, want provider", res.Source)
	}
	if res.TokensRemaining != nil {
		t.Errorf("tokensRemaining = %d, want unset", *res.TokensRemaining)
	}

	req := provider.last
	if req.Model != "test-model" || req.Temperature != 0.8 {
		t.Errorf("request model/temperature = %q/%v", req.Model, req.Temperature)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v, want one user message", req.Messages)
	}
	if !strings.Contains(req.Messages[0].Content, "TikTok video about cold brew in a bold tone") {
		t.Errorf("prompt = %q", req.Messages[0].Content)
	}
	if req.UserAgent != "curl/8.0" || req.Topic != "cold brew" {
		t.Errorf("user agent/topic = %q/%q", req.UserAgent, req.Topic)
	}
}

func TestGenerate_DebitsToZeroThenRejects(t *testing.T) {
	store := balanceStore(t, "u1", 1)
	provider := &stubProvider{text: goodReply}
	p := New(provider, quota.NewBalanceGate(store), testSettings(), WithLogger(quietLogger()))
	req := &domain.GenerationRequest{Topic: "meal prep", UserID: "u1"}

	res, err := p.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}
	if res.TokensRemaining == nil || *res.TokensRemaining != 0 {
		t.Errorf("tokensRemaining = %v, want 0", res.TokensRemaining)
	}

	bal, err := store.GetBalance(context.Background(), "u1")
	if err != nil || bal.Tokens != 0 {
		t.Fatalf("stored balance = %+v, %v, want 0", bal, err)
	}

	_, err = p.Generate(context.Background(), req)
	wantAPIError(t, err, domain.ErrorTypeQuotaExceeded)
	if got := provider.calls.Load(); got != 1 {
		t.Errorf("provider calls = %d, want 1", got)
	}
}

func TestGenerate_GateRejections(t *testing.T) {
	tests := []struct {
		name   string
		tokens int
		userID string
		want   domain.ErrorType
	}{
		{name: "zero tokens", tokens: 0, userID: "u1", want: domain.ErrorTypeQuotaExceeded},
		{name: "missing user id", tokens: 3, userID: "", want: domain.ErrorTypeUnauthorized},
		{name: "unknown user", tokens: 3, userID: "ghost", want: domain.ErrorTypeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{text: goodReply}
			gate := quota.NewBalanceGate(balanceStore(t, "u1", tt.tokens))
			p := New(provider, gate, testSettings(), WithLogger(quietLogger()))

			_, err := p.Generate(context.Background(), &domain.GenerationRequest{Topic: "x topic", UserID: tt.userID})
			wantAPIError(t, err, tt.want)
			if got := provider.calls.Load(); got != 0 {
				t.Errorf("provider calls = %d, want 0", got)
			}
		})
	}
}

func TestGenerate_ProviderFailureDoesNotDebit(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
	}{
		{name: "call error", provider: &stubProvider{err: errors.New("status 500: upstream exploded")}},
		{name: "unusable text", provider: &stubProvider{text: "\n1.\nHi\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := balanceStore(t, "u1", 2)
			p := New(tt.provider, quota.NewBalanceGate(store), testSettings(), WithLogger(quietLogger()))

			_, err := p.Generate(context.Background(), &domain.GenerationRequest{Topic: "sleep", UserID: "u1"})
			wantAPIError(t, err, domain.ErrorTypeProvider)
			if strings.Contains(domain.AsAPIError(err).Message, "exploded") {
				t.Errorf("upstream detail leaked into message: %q", domain.AsAPIError(err).Message)
			}

			bal, _ := store.GetBalance(context.Background(), "u1")
			if bal.Tokens != 2 {
				t.Errorf("tokens = %d, want 2 (no debit)", bal.Tokens)
			}
		})
	}
}

func TestGenerate_Validation(t *testing.T) {
	tests := []struct {
		name       string
		validation string
		req        *domain.GenerationRequest
		wantParam  string
	}{
		{name: "nil request", req: nil, wantParam: "topic"},
		{name: "missing topic", req: &domain.GenerationRequest{Platform: "TikTok", Tone: "bold", UserID: "u1"}, wantParam: "topic"},
		{name: "blank topic", req: &domain.GenerationRequest{Topic: "   "}, wantParam: "topic"},
		{name: "strict missing platform", validation: ValidationStrict, req: &domain.GenerationRequest{Topic: "t", Tone: "bold"}, wantParam: "platform"},
		{name: "strict missing tone", validation: ValidationStrict, req: &domain.GenerationRequest{Topic: "t", Platform: "Reels"}, wantParam: "tone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{text: goodReply}
			settings := testSettings()
			settings.Validation = tt.validation
			p := New(provider, quota.NewBalanceGate(memory.New()), settings, WithLogger(quietLogger()))

			_, err := p.Generate(context.Background(), tt.req)
			wantAPIError(t, err, domain.ErrorTypeInvalidRequest)
			if got := domain.AsAPIError(err).Param; got != tt.wantParam {
				t.Errorf("param = %q, want %q", got, tt.wantParam)
			}
			if provider.calls.Load() != 0 {
				t.Error("provider called for invalid request")
			}
		})
	}
}

func TestGenerate_LooseAcceptsMissingPlatformAndTone(t *testing.T) {
	p := New(&stubProvider{text: goodReply}, nil, testSettings(), WithLogger(quietLogger()))
	if _, err := p.Generate(context.Background(), &domain.GenerationRequest{Topic: "houseplants"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestGenerate_PromptTooLong(t *testing.T) {
	settings := testSettings()
	settings.MaxPromptTokens = 50
	provider := &stubProvider{text: goodReply}
	p := New(provider, nil, settings, WithLogger(quietLogger()))

	_, err := p.Generate(context.Background(), &domain.GenerationRequest{Topic: strings.Repeat("very long topic ", 40)})
	wantAPIError(t, err, domain.ErrorTypeInvalidRequest)
	if provider.calls.Load() != 0 {
		t.Error("provider called for oversized prompt")
	}
}

func TestGenerate_DebitFailureKeepsHooks(t *testing.T) {
	p := New(&stubProvider{text: goodReply}, failingDebit{}, testSettings(), WithLogger(quietLogger()))

	res, err := p.Generate(context.Background(), &domain.GenerationRequest{Topic: "running", UserID: "u1"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(res.Hooks) != 3 {
		t.Errorf("hooks = %q, want 3", res.Hooks)
	}
	if res.TokensRemaining != nil {
		t.Errorf("tokensRemaining = %d, want unset after failed debit", *res.TokensRemaining)
	}
}

func TestGenerate_Memo(t *testing.T) {
	ctx := context.Background()

	t.Run("hit skips provider", func(t *testing.T) {
		store := memory.New()
		if err := store.SaveHookSet(ctx, &storage.HookSet{
			Topic: "Cold Brew Coffee at home",
			Hooks: []string{"1. Stored hook one", "Stored hook two", "Hi"},
		}); err != nil {
			t.Fatalf("SaveHookSet() error = %v", err)
		}
		provider := &stubProvider{text: goodReply}
		p := New(provider, nil, testSettings(), WithMemo(store, false), WithLogger(quietLogger()))

		res, err := p.Generate(ctx, &domain.GenerationRequest{Topic: "cold brew"})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if res.Source != domain.SourceMemo || res.MemoID == "" {
			t.Errorf("source/memoId = %q/%q, want memo hit", res.Source, res.MemoID)
		}
		if strings.Join(res.Hooks, "|") != "Stored hook one|Stored hook two" {
			t.Errorf("hooks = %q", res.Hooks)
		}
		if provider.calls.Load() != 0 {
			t.Error("provider called on memo hit")
		}
	})

	t.Run("miss persists generation", func(t *testing.T) {
		store := memory.New()
		provider := &stubProvider{text: goodReply}
		p := New(provider, nil, testSettings(), WithMemo(store, true), WithLogger(quietLogger()))

		first, err := p.Generate(ctx, &domain.GenerationRequest{Topic: "Desk Setup"})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if first.Source != domain.SourceProvider || first.MemoID == "" {
			t.Errorf("first = %+v, want provider result with memo id", first)
		}

		second, err := p.Generate(ctx, &domain.GenerationRequest{Topic: "desk"})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if second.Source != domain.SourceMemo || second.MemoID != first.MemoID {
			t.Errorf("second = %+v, want memo hit on %s", second, first.MemoID)
		}
		if provider.calls.Load() != 1 {
			t.Errorf("provider calls = %d, want 1", provider.calls.Load())
		}
	})

	t.Run("memo hit is still debited", func(t *testing.T) {
		store := balanceStore(t, "u1", 2)
		if err := store.SaveHookSet(ctx, &storage.HookSet{Topic: "yoga", Hooks: []string{"Yoga hook one", "Yoga hook two"}}); err != nil {
			t.Fatalf("SaveHookSet() error = %v", err)
		}
		p := New(&stubProvider{text: goodReply}, quota.NewBalanceGate(store), testSettings(), WithMemo(store, false), WithLogger(quietLogger()))

		res, err := p.Generate(ctx, &domain.GenerationRequest{Topic: "yoga", UserID: "u1"})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if res.TokensRemaining == nil || *res.TokensRemaining != 1 {
			t.Errorf("tokensRemaining = %v, want 1", res.TokensRemaining)
		}
	})

	t.Run("lookup failure falls through", func(t *testing.T) {
		provider := &stubProvider{text: goodReply}
		p := New(provider, nil, testSettings(), WithMemo(brokenMemo{}, false), WithLogger(quietLogger()))

		res, err := p.Generate(ctx, &domain.GenerationRequest{Topic: "chess"})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if res.Source != domain.SourceProvider || provider.calls.Load() != 1 {
			t.Errorf("source = %q calls = %d, want provider fallthrough", res.Source, provider.calls.Load())
		}
	})
}
