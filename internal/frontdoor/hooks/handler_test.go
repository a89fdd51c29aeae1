package hooks

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tjfontaine/hookgen/internal/domain"
	"github.com/tjfontaine/hookgen/internal/server"
)

type stubGenerator struct {
	res  *domain.GenerationResult
	err  error
	last *domain.GenerationRequest
}

func (g *stubGenerator) Generate(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	g.last = req
	return g.res, g.err
}

func newTestRouter(gen Generator, strict bool) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := server.New(server.Options{Timeout: time.Second}, logger, nil)
	NewHandler(gen, Options{Strict: strict, Logger: logger}).Register(s.Router, "/api/generate")
	return s.Router
}

func do(t *testing.T, h http.Handler, method, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/api/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "hookctl/1.0")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Param   string `json:"param"`
	} `json:"error"`
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var e errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return e
}

func TestHandleGenerate_Success(t *testing.T) {
	remaining := 4
	gen := &stubGenerator{res: &domain.GenerationResult{
		Hooks:           domain.HookList{"Hook one here", "Hook two here"},
		Source:          domain.SourceProvider,
		TokensRemaining: &remaining,
	}}

	rec := do(t, newTestRouter(gen, false), http.MethodPost,
		`{"topic":"cold brew","platform":"TikTok","tone":"bold","userId":"u1"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(server.TokensRemainingHeader); got != "4" {
		t.Errorf("%s = %q, want 4", server.TokensRemainingHeader, got)
	}

	var out struct {
		Hooks           []string `json:"hooks"`
		Source          string   `json:"source"`
		TokensRemaining *int     `json:"tokensRemaining"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Hooks) != 2 || out.Source != "provider" || out.TokensRemaining == nil || *out.TokensRemaining != 4 {
		t.Errorf("body = %s", rec.Body.String())
	}

	want := domain.GenerationRequest{Topic: "cold brew", Platform: "TikTok", Tone: "bold", UserID: "u1", UserAgent: "hookctl/1.0"}
	if *gen.last != want {
		t.Errorf("request = %+v, want %+v", *gen.last, want)
	}
}

func TestHandleGenerate_UngatedOmitsTokens(t *testing.T) {
	gen := &stubGenerator{res: &domain.GenerationResult{Hooks: domain.HookList{"Hook one here"}, Source: domain.SourceMemo}}

	rec := do(t, newTestRouter(gen, false), http.MethodPost, `{"topic":"cold brew"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "tokensRemaining") {
		t.Errorf("body = %s, want no tokensRemaining", rec.Body.String())
	}
	if rec.Header().Get(server.TokensRemainingHeader) != "" {
		t.Error("unexpected tokens header")
	}
}

func TestHandleGenerate_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		strict     bool
		wantStatus int
		wantType   string
		wantParam  string
	}{
		{name: "wrong method", method: http.MethodGet, wantStatus: http.StatusMethodNotAllowed, wantType: "method_not_allowed"},
		{name: "put", method: http.MethodPut, body: `{"topic":"x"}`, wantStatus: http.StatusMethodNotAllowed, wantType: "method_not_allowed"},
		{name: "missing topic", method: http.MethodPost, body: `{"platform":"TikTok","tone":"bold"}`, wantStatus: http.StatusBadRequest, wantType: "invalid_request", wantParam: "topic"},
		{name: "malformed json", method: http.MethodPost, body: `{"topic":`, wantStatus: http.StatusBadRequest, wantType: "invalid_request"},
		{name: "empty body", method: http.MethodPost, body: ``, wantStatus: http.StatusBadRequest, wantType: "invalid_request"},
		{name: "strict missing tone", method: http.MethodPost, body: `{"topic":"x","platform":"TikTok"}`, strict: true, wantStatus: http.StatusBadRequest, wantType: "invalid_request", wantParam: "tone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{res: &domain.GenerationResult{Hooks: domain.HookList{"never"}}}
			rec := do(t, newTestRouter(gen, tt.strict), tt.method, tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			e := decodeErr(t, rec)
			if e.Error.Type != tt.wantType {
				t.Errorf("type = %q, want %q", e.Error.Type, tt.wantType)
			}
			if tt.wantParam != "" && e.Error.Param != tt.wantParam {
				t.Errorf("param = %q, want %q", e.Error.Param, tt.wantParam)
			}
			if gen.last != nil {
				t.Error("generator called for rejected request")
			}
		})
	}
}

func TestHandleGenerate_PipelineErrors(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{domain.ErrUnauthorized("userId is required"), http.StatusUnauthorized},
		{domain.ErrQuotaExceeded("no tokens remaining"), http.StatusForbidden},
		{domain.ErrNotFound("no token balance for user"), http.StatusNotFound},
		{domain.ErrProvider("generation provider failed", nil), http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		gen := &stubGenerator{err: tt.err}
		rec := do(t, newTestRouter(gen, false), http.MethodPost, `{"topic":"x","userId":"u1"}`)
		if rec.Code != tt.wantStatus {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.wantStatus)
		}
	}
}

func TestHandleGenerate_DirectMethodCheck(t *testing.T) {
	h := NewHandler(&stubGenerator{}, Options{})
	rec := httptest.NewRecorder()
	h.HandleGenerate(rec, httptest.NewRequest(http.MethodDelete, "/api/generate", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if got := rec.Header().Get("Allow"); got != http.MethodPost {
		t.Errorf("Allow = %q, want POST", got)
	}
}

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&stubGenerator{}, false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}
}
