package lambdaproxy

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

func event(method, path, body string) events.APIGatewayV2HTTPRequest {
	ev := events.APIGatewayV2HTTPRequest{
		RawPath: path,
		Headers: map[string]string{"content-type": "application/json"},
		Body:    body,
	}
	ev.RequestContext.HTTP.Method = method
	ev.RequestContext.HTTP.SourceIP = "203.0.113.9"
	ev.RequestContext.HTTP.UserAgent = "curl/8.0"
	return ev
}

func TestHandle(t *testing.T) {
	var gotBody, gotUA, gotQuery, gotRemote string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotUA = r.UserAgent()
		gotQuery = r.URL.Query().Get("debug")
		gotRemote = r.RemoteAddr
		w.Header().Set("Content-Type", "application/json")
		w.Header().Add("Set-Cookie", "a=1")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	})

	ev := event(http.MethodPost, "/api/generate", `{"topic":"x"}`)
	ev.RawQueryString = "debug=1"

	resp, err := New(next).Handle(context.Background(), ev)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
	if resp.Body != `{"ok":true}` || resp.IsBase64Encoded {
		t.Errorf("body = %q base64 = %v", resp.Body, resp.IsBase64Encoded)
	}
	if resp.Headers["Content-Type"] != "application/json" {
		t.Errorf("headers = %v", resp.Headers)
	}
	if len(resp.Cookies) != 1 || resp.Cookies[0] != "a=1" {
		t.Errorf("cookies = %v", resp.Cookies)
	}
	if gotBody != `{"topic":"x"}` || gotUA != "curl/8.0" || gotQuery != "1" || gotRemote != "203.0.113.9" {
		t.Errorf("request body=%q ua=%q query=%q remote=%q", gotBody, gotUA, gotQuery, gotRemote)
	}
}

func TestHandle_Base64Body(t *testing.T) {
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = string(b)
		w.Write([]byte{0xff, 0xfe})
	})

	ev := event(http.MethodPost, "/", base64.StdEncoding.EncodeToString([]byte("hello")))
	ev.IsBase64Encoded = true

	resp, err := New(next).Handle(context.Background(), ev)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got != "hello" {
		t.Errorf("decoded body = %q, want hello", got)
	}
	if !resp.IsBase64Encoded || resp.Body != base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe}) {
		t.Errorf("binary response = %q base64 = %v", resp.Body, resp.IsBase64Encoded)
	}
}

func TestHandle_BadBase64(t *testing.T) {
	ev := event(http.MethodPost, "/", "%%%")
	ev.IsBase64Encoded = true

	if _, err := New(http.NotFoundHandler()).Handle(context.Background(), ev); err == nil {
		t.Fatal("expected error for invalid base64 body")
	}
}
