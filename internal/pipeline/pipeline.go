package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/hookgen/internal/domain"
	"github.com/tjfontaine/hookgen/internal/quota"
	"github.com/tjfontaine/hookgen/internal/storage"
	"github.com/tjfontaine/hookgen/internal/tokens"
)

// Validation policies.
const (
	ValidationLoose  = "loose"
	ValidationStrict = "strict"
)

// Settings are the per-deployment generation parameters.
type Settings struct {
	Model       string
	Temperature float32
	MaxTokens   int

	Count    int
	MaxWords int
	MinChars int

	// MaxPromptTokens rejects prompts above this size. Zero disables the check.
	MaxPromptTokens int

	// Validation is ValidationLoose (default) or ValidationStrict.
	Validation string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMemo enables lookup-before-generate against store. When persist is set,
// fresh generations are saved for later lookups.
func WithMemo(store storage.HookSetStore, persist bool) Option {
	return func(p *Pipeline) {
		p.memo = store
		p.persistMemo = persist
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithTokenCounter sets the counter used for the prompt size guard.
func WithTokenCounter(c *tokens.Counter) Option {
	return func(p *Pipeline) {
		p.counter = c
	}
}

// Pipeline generates hooks for one request at a time. It holds no
// per-request state and is safe for concurrent use.
type Pipeline struct {
	provider    domain.Provider
	policy      quota.Policy
	settings    Settings
	memo        storage.HookSetStore
	persistMemo bool
	counter     *tokens.Counter
	logger      *slog.Logger
	tracer      trace.Tracer
}

// New creates a pipeline. A nil policy means quota.Unmetered.
func New(provider domain.Provider, policy quota.Policy, settings Settings, opts ...Option) *Pipeline {
	if policy == nil {
		policy = quota.Unmetered{}
	}
	if settings.Count <= 0 {
		settings.Count = 5
	}
	if settings.MaxWords <= 0 {
		settings.MaxWords = 15
	}
	if settings.MinChars <= 0 {
		settings.MinChars = 6
	}

	p := &Pipeline{
		provider: provider,
		policy:   policy,
		settings: settings,
		logger:   slog.Default(),
		tracer:   otel.Tracer("hookgen/pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.counter == nil && settings.MaxPromptTokens > 0 {
		p.counter = tokens.NewCounter()
	}
	return p
}

// Generate runs the full request sequence. Returned errors are always
// *domain.APIError.
func (p *Pipeline) Generate(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Generate", trace.WithAttributes(
		attribute.String("hookgen.provider", p.provider.Name()),
		attribute.Bool("hookgen.memo", p.memo != nil),
	))
	defer span.End()

	result, err := p.generate(ctx, req)
	if err != nil {
		apiErr := domain.AsAPIError(err)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, string(apiErr.Type))
		return nil, apiErr
	}

	span.SetAttributes(
		attribute.String("hookgen.source", result.Source),
		attribute.Int("hookgen.hooks", len(result.Hooks)),
	)
	return result, nil
}

func (p *Pipeline) generate(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	prompt, err := p.validate(req)
	if err != nil {
		return nil, err
	}
	topic := strings.TrimSpace(req.Topic)

	decision, err := p.policy.Check(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	result := p.lookupMemo(ctx, topic)
	if result == nil {
		hooks, err := p.callProvider(ctx, req, prompt)
		if err != nil {
			return nil, err
		}
		result = &domain.GenerationResult{Hooks: hooks, Source: domain.SourceProvider}
		p.saveMemo(ctx, topic, result)
	}

	if decision.Gated {
		remaining, err := p.policy.Debit(ctx, req.UserID)
		if err != nil {
			// hooks are already produced; never discard them over a failed debit
			p.logger.WarnContext(ctx, "balance debit failed",
				slog.String("user_id", req.UserID),
				slog.String("error", err.Error()))
		} else {
			result.TokensRemaining = &remaining
		}
	}

	return result, nil
}

// validate checks the request and returns the prompt it will send.
func (p *Pipeline) validate(req *domain.GenerationRequest) (string, error) {
	if req == nil || strings.TrimSpace(req.Topic) == "" {
		return "", domain.ErrInvalidRequest("topic is required").WithParam("topic")
	}
	if p.settings.Validation == ValidationStrict {
		if strings.TrimSpace(req.Platform) == "" {
			return "", domain.ErrInvalidRequest("platform is required").WithParam("platform")
		}
		if strings.TrimSpace(req.Tone) == "" {
			return "", domain.ErrInvalidRequest("tone is required").WithParam("tone")
		}
	}

	prompt := BuildPrompt(req, PromptOptions{Count: p.settings.Count, MaxWords: p.settings.MaxWords})

	if p.settings.MaxPromptTokens > 0 {
		msgs := []domain.Message{{Role: "user", Content: prompt}}
		n, err := p.counter.CountMessages(p.settings.Model, msgs)
		if err != nil {
			n = tokens.Estimate(msgs)
		}
		if n > p.settings.MaxPromptTokens {
			return "", domain.ErrInvalidRequest("topic is too long").WithParam("topic")
		}
	}
	return prompt, nil
}

func (p *Pipeline) callProvider(ctx context.Context, req *domain.GenerationRequest, prompt string) (domain.HookList, error) {
	ctx, span := p.tracer.Start(ctx, "provider.Complete")
	defer span.End()

	resp, err := p.provider.Complete(ctx, &domain.CompletionRequest{
		Model:       p.settings.Model,
		Messages:    []domain.Message{{Role: "user", Content: prompt}},
		Temperature: p.settings.Temperature,
		MaxTokens:   p.settings.MaxTokens,
		UserAgent:   req.UserAgent,
		Topic:       strings.TrimSpace(req.Topic),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
		p.logger.ErrorContext(ctx, "provider call failed",
			slog.String("provider", p.provider.Name()),
			slog.String("error", err.Error()))
		return nil, domain.ErrProvider("generation provider failed", err)
	}

	span.SetAttributes(
		attribute.String("hookgen.model", resp.Model),
		attribute.Int("hookgen.usage.total_tokens", resp.Usage.TotalTokens),
	)

	hooks := Normalize(resp.Text, NormalizeOptions{Count: p.settings.Count, MinChars: p.settings.MinChars})
	if len(hooks) == 0 {
		p.logger.ErrorContext(ctx, "provider returned no usable hooks",
			slog.String("provider", p.provider.Name()),
			slog.Int("raw_len", len(resp.Text)))
		return nil, domain.ErrProvider("empty or malformed generation", nil)
	}
	return hooks, nil
}

// lookupMemo returns a memo hit or nil. Store failures fall through to the
// provider.
func (p *Pipeline) lookupMemo(ctx context.Context, topic string) *domain.GenerationResult {
	if p.memo == nil {
		return nil
	}

	set, err := p.memo.FindHookSet(ctx, topic)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		p.logger.WarnContext(ctx, "memo lookup failed", slog.String("error", err.Error()))
		return nil
	}

	hooks := Normalize(strings.Join(set.Hooks, "\n"), NormalizeOptions{Count: p.settings.Count, MinChars: p.settings.MinChars})
	if len(hooks) == 0 {
		return nil
	}
	return &domain.GenerationResult{Hooks: hooks, Source: domain.SourceMemo, MemoID: set.ID}
}

func (p *Pipeline) saveMemo(ctx context.Context, topic string, result *domain.GenerationResult) {
	if p.memo == nil || !p.persistMemo {
		return
	}

	set := &storage.HookSet{Topic: topic, Hooks: result.Hooks, Source: p.provider.Name()}
	if err := p.memo.SaveHookSet(ctx, set); err != nil {
		p.logger.WarnContext(ctx, "memo save failed", slog.String("error", err.Error()))
		return
	}
	result.MemoID = set.ID
}
