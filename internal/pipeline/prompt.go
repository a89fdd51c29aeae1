package pipeline

import (
	"fmt"
	"strings"

	"github.com/tjfontaine/hookgen/internal/domain"
)

// PromptOptions controls the formatting rules embedded in the prompt.
type PromptOptions struct {
	Count    int
	MaxWords int
}

// BuildPrompt renders the single instruction sent to the provider. Missing
// platform or tone fall back to neutral wording.
func BuildPrompt(req *domain.GenerationRequest, opts PromptOptions) string {
	platform := strings.TrimSpace(req.Platform)
	if platform == "" {
		platform = "short-form"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d viral hooks for a %s video about %s", opts.Count, platform, strings.TrimSpace(req.Topic))
	if tone := strings.TrimSpace(req.Tone); tone != "" {
		fmt.Fprintf(&b, " in a %s tone", tone)
	}
	b.WriteString(".\n")
	b.WriteString("Rules:\n")
	b.WriteString("- One hook per line.\n")
	fmt.Fprintf(&b, "- Max %d words per hook.\n", opts.MaxWords)
	b.WriteString("- No emojis. No hashtags. No numbering or bullets.\n")
	b.WriteString("- Plain text only.")
	return b.String()
}
