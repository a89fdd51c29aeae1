// Package hooks is the HTTP front door for hook generation.
package hooks

import (
	"context"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/thedevsaddam/govalidator"

	"github.com/tjfontaine/hookgen/internal/domain"
	"github.com/tjfontaine/hookgen/internal/server"
)

// maxBodyBytes bounds the JSON request body.
const maxBodyBytes = 64 << 10

// Generator runs one generation request.
type Generator interface {
	Generate(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error)
}

// Options configure a Handler.
type Options struct {
	// Strict requires platform and tone in addition to topic.
	Strict bool
	Logger *slog.Logger
}

type Handler struct {
	gen    Generator
	strict bool
	logger *slog.Logger
}

func NewHandler(gen Generator, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{gen: gen, strict: opts.Strict, logger: opts.Logger}
}

// Register mounts the generate endpoint at path and GET /healthz.
func (h *Handler) Register(r chi.Router, path string) {
	r.Post(path, h.HandleGenerate)
	r.Get("/healthz", h.HandleHealth)
}

// generateBody is the wire shape of a generation request.
type generateBody struct {
	Topic    string `json:"topic"`
	Platform string `json:"platform"`
	Tone     string `json:"tone"`
	UserID   string `json:"userId"`
}

func (h *Handler) rules() govalidator.MapData {
	rules := govalidator.MapData{
		"topic":    []string{"required", "max:500"},
		"platform": []string{"max:64"},
		"tone":     []string{"max:64"},
		"userId":   []string{"max:128"},
	}
	if h.strict {
		rules["platform"] = []string{"required", "max:64"}
		rules["tone"] = []string{"required", "max:64"}
	}
	return rules
}

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		server.WriteError(w, r, domain.ErrMethodNotAllowed("use POST"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var body generateBody
	v := govalidator.New(govalidator.Options{
		Request: r,
		Data:    &body,
		Rules:   h.rules(),
	})
	if errs := v.ValidateJSON(); len(errs) != 0 {
		server.WriteError(w, r, validationError(errs))
		return
	}

	req := &domain.GenerationRequest{
		Topic:     body.Topic,
		Platform:  body.Platform,
		Tone:      body.Tone,
		UserID:    body.UserID,
		UserAgent: r.UserAgent(),
	}
	server.AddLogField(r.Context(), "user_id", req.UserID)

	res, err := h.gen.Generate(r.Context(), req)
	if err != nil {
		server.WriteError(w, r, err)
		return
	}

	server.AddLogField(r.Context(), "source", res.Source)
	if res.MemoID != "" {
		server.AddLogField(r.Context(), "memo_id", res.MemoID)
	}
	if res.TokensRemaining != nil {
		server.SetTokensRemaining(r.Context(), *res.TokensRemaining)
	}
	server.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	server.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validationError reports the first failing field, in key order so the
// message is stable.
func validationError(errs map[string][]string) *domain.APIError {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	field := keys[0]
	msg := "invalid request"
	if len(errs[field]) > 0 {
		msg = errs[field][0]
	}
	if field == "_error" {
		return domain.ErrInvalidRequest("request body must be valid JSON")
	}
	return domain.ErrInvalidRequest(msg).WithParam(field)
}
