package server

import (
	"context"
	"net/http"
	"strconv"
)

// TokensRemainingHeader reports the caller's balance after a debit.
const TokensRemainingHeader = "X-Tokens-Remaining"

type tokensContextKey struct{}

// tokensInfo is filled by handlers and read when headers are written.
type tokensInfo struct {
	remaining *int
}

// SetTokensRemaining records the post-debit balance for the response header.
// No-op if TokensRemainingMiddleware isn't present.
func SetTokensRemaining(ctx context.Context, remaining int) {
	if info, ok := ctx.Value(tokensContextKey{}).(*tokensInfo); ok {
		info.remaining = &remaining
	}
}

// TokensRemainingMiddleware writes X-Tokens-Remaining when a handler set it.
func TokensRemainingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &tokensInfo{}
		ctx := context.WithValue(r.Context(), tokensContextKey{}, info)
		wrapped := &tokensResponseWriter{ResponseWriter: w, info: info}
		next.ServeHTTP(wrapped, r.WithContext(ctx))
	})
}

type tokensResponseWriter struct {
	http.ResponseWriter
	info         *tokensInfo
	wroteHeaders bool
}

func (rw *tokensResponseWriter) WriteHeader(code int) {
	rw.writeTokensHeader()
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *tokensResponseWriter) Write(b []byte) (int, error) {
	rw.writeTokensHeader()
	return rw.ResponseWriter.Write(b)
}

func (rw *tokensResponseWriter) writeTokensHeader() {
	if rw.wroteHeaders {
		return
	}
	rw.wroteHeaders = true
	if rw.info.remaining != nil {
		// 0 is a meaningful value here
		rw.Header().Set(TokensRemainingHeader, strconv.Itoa(*rw.info.remaining))
	}
}

// Flush forwards Flush to the underlying ResponseWriter if it supports http.Flusher.
func (rw *tokensResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
