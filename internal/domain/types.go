package domain

// Message represents a chat message sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationRequest is the inbound hook request. Platform and Tone are free
// text used only to build the prompt.
type GenerationRequest struct {
	Topic    string `json:"topic"`
	Platform string `json:"platform"`
	Tone     string `json:"tone"`
	UserID   string `json:"userId"`
	// UserAgent is the User-Agent header from the incoming request.
	UserAgent string `json:"-"`
}

// HookList is an ordered list of cleaned single-line hooks.
type HookList []string

// Source values reported on a GenerationResult.
const (
	SourceProvider = "provider"
	SourceMemo     = "memo"
)

// GenerationResult is the successful output of one pipeline run.
type GenerationResult struct {
	Hooks  HookList `json:"hooks"`
	Source string   `json:"source"`
	// TokensRemaining is set only when a balance was debited.
	TokensRemaining *int `json:"tokensRemaining,omitempty"`
	// MemoID identifies the stored hook set that served or recorded this result.
	MemoID string `json:"memoId,omitempty"`
}

// CompletionRequest is a provider-neutral text generation request.
type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	UserAgent   string    `json:"-"`
	// Topic is the raw request topic, for providers that do not read prompts.
	Topic string `json:"-"`
}

// Usage represents provider token usage, when reported.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the decoded text of the first candidate.
type CompletionResponse struct {
	ID           string `json:"id,omitempty"`
	Model        string `json:"model"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        Usage  `json:"usage"`
}
