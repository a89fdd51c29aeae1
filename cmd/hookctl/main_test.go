package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "provider:\n  type: template\nstorage:\n  type: sqlite\n  dsn: " + filepath.Join(dir, "hooks.db") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), append([]string{"hookctl"}, args...))
	return out.String(), err
}

func TestBalanceCommands(t *testing.T) {
	cfg := writeConfig(t)

	if _, err := run(t, "--config", cfg, "balance", "get", "u1"); err == nil || !strings.Contains(err.Error(), "no balance") {
		t.Fatalf("get missing error = %v", err)
	}

	out, err := run(t, "--config", cfg, "balance", "set", "--tokens", "1200", "u1")
	if err != nil {
		t.Fatalf("set error = %v", err)
	}
	if !strings.Contains(out, "1,200 tokens") {
		t.Errorf("set output = %q", out)
	}

	out, err = run(t, "--config", cfg, "balance", "grant", "--tokens=-200", "u1")
	if err != nil {
		t.Fatalf("grant error = %v", err)
	}
	if !strings.Contains(out, "u1\t1,000 tokens") {
		t.Errorf("grant output = %q", out)
	}
}

func TestKeyhash(t *testing.T) {
	out, err := run(t, "keyhash", "secret")
	if err != nil {
		t.Fatalf("keyhash error = %v", err)
	}
	if !strings.Contains(out, "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b") {
		t.Errorf("output = %q", out)
	}

	out, err = run(t, "keyhash", "--generate")
	if err != nil || !strings.Contains(out, "API Key: hk_") {
		t.Errorf("generate output = %q, err = %v", out, err)
	}

	if _, err := run(t, "keyhash"); err == nil {
		t.Error("expected error without key")
	}
}

func TestGenerateCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hooks":["First hook line","Second hook line"],"source":"provider","tokensRemaining":1500}`))
	}))
	defer server.Close()

	out, err := run(t, "generate", "--url", server.URL, "--user", "u1", "cold", "brew")
	if err != nil {
		t.Fatalf("generate error = %v", err)
	}
	for _, want := range []string{"1. First hook line", "2. Second hook line", "1,500 tokens remaining"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}
