package gemini

import (
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"github.com/tjfontaine/hookgen/internal/domain"
)

func TestToCompletionResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text("1. First hook\n"), genai.Text("2. Second hook")},
			},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 20, CandidatesTokenCount: 10, TotalTokenCount: 30},
	}

	got, err := toCompletionResponse("gemini-2.0-flash", resp)
	if err != nil {
		t.Fatalf("toCompletionResponse() error = %v", err)
	}
	if got.Text != "1. First hook\n2. Second hook" {
		t.Errorf("Text = %q", got.Text)
	}
	if got.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q", got.Model)
	}
	if got.Usage.TotalTokens != 30 || got.Usage.PromptTokens != 20 {
		t.Errorf("Usage = %+v", got.Usage)
	}
}

func TestToCompletionResponse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{"nil response", nil},
		{"no candidates", &genai.GenerateContentResponse{}},
		{"nil candidate", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{nil}}},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}}},
		{"non-text parts", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png", Data: []byte{1}}}},
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := toCompletionResponse("m", tt.resp); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := toCompletionResponse("m", nil); !errors.Is(err, errNoCandidates) {
		t.Errorf("nil response error = %v, want errNoCandidates", err)
	}
	if _, err := toCompletionResponse("m", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{nil}}); !errors.Is(err, errNoCandidates) {
		t.Errorf("nil candidate error = %v, want errNoCandidates", err)
	}
}

func TestSplitMessages(t *testing.T) {
	system, parts := splitMessages([]domain.Message{
		{Role: "system", Content: "You write hooks."},
		{Role: "user", Content: "Topic: coffee"},
	})
	if system != "You write hooks." {
		t.Errorf("system = %q", system)
	}
	if len(parts) != 1 || parts[0] != genai.Text("Topic: coffee") {
		t.Errorf("parts = %v", parts)
	}
}
