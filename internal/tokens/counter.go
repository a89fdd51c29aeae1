// Package tokens counts prompt tokens so oversized requests can be rejected
// before a provider call.
package tokens

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/tjfontaine/hookgen/internal/domain"
)

// Chat formatting overhead, per OpenAI's counting guide.
const (
	tokensPerMessage = 3
	tokensPerRole    = 1
	assistantPriming = 3
)

// Counter counts tokens with tiktoken. Models without a published tiktoken
// encoding (llama, gemini) are counted with the closest BPE encoding, which is
// close enough for a size guard.
type Counter struct {
	// codecCache caches tokenizer codecs by encoding name
	codecCache map[tokenizer.Encoding]tokenizer.Codec
	cacheMu    sync.RWMutex
}

// NewCounter creates a new token counter.
func NewCounter() *Counter {
	return &Counter{
		codecCache: make(map[tokenizer.Encoding]tokenizer.Codec),
	}
}

func (c *Counter) getCodec(model string) (tokenizer.Codec, error) {
	encoding := modelToEncoding(model)

	c.cacheMu.RLock()
	if cached, ok := c.codecCache[encoding]; ok {
		c.cacheMu.RUnlock()
		return cached, nil
	}
	c.cacheMu.RUnlock()

	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer encoding: %w", err)
	}

	c.cacheMu.Lock()
	c.codecCache[encoding] = codec
	c.cacheMu.Unlock()

	return codec, nil
}

// modelToEncoding maps model names to a tiktoken encoding.
//
// Encoding reference:
// - O200kBase: GPT-4o, GPT-4.1, GPT-5, o-series
// - Cl100kBase: GPT-4, GPT-3.5-turbo, and everything else
func modelToEncoding(model string) tokenizer.Encoding {
	model = strings.ToLower(model)

	switch {
	case strings.HasPrefix(model, "gpt-5"),
		strings.HasPrefix(model, "gpt-4.1"),
		strings.HasPrefix(model, "gpt-4o"),
		strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return tokenizer.O200kBase
	default:
		return tokenizer.Cl100kBase
	}
}

// CountText counts tokens for a plain text string.
func (c *Counter) CountText(model, text string) (int, error) {
	codec, err := c.getCodec(model)
	if err != nil {
		return 0, err
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// CountMessages counts a chat prompt including per-message overhead.
func (c *Counter) CountMessages(model string, msgs []domain.Message) (int, error) {
	codec, err := c.getCodec(model)
	if err != nil {
		return 0, err
	}

	total := assistantPriming
	for _, msg := range msgs {
		ids, _, err := codec.Encode(msg.Content)
		if err != nil {
			return 0, err
		}
		total += tokensPerMessage + tokensPerRole + len(ids)
	}
	return total, nil
}

// Estimate approximates a token count at four characters per token. Used
// when no codec is available.
func Estimate(msgs []domain.Message) int {
	chars := 0
	for _, msg := range msgs {
		chars += len(msg.Role) + len(msg.Content) + 4
	}
	return chars / 4
}
