package pipeline

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tjfontaine/hookgen/internal/domain"
)

// NormalizeOptions bounds the cleaned hook list.
type NormalizeOptions struct {
	// Count caps the number of hooks returned.
	Count int

	// MinChars drops lines with fewer non-whitespace characters.
	MinChars int
}

var lineBreak = regexp.MustCompile(`\r?\n`)

// markerChars are stripped from the start of every line.
const markerChars = "0123456789.)(-*•–—#> \t"

// quoteChars may wrap a whole line.
const quoteChars = "\"'“”‘’`"

// Normalize turns raw provider text into a clean hook list. Output lines are
// fixed points of the per-line cleanup, so Normalize is idempotent. JSON
// string arrays (or objects with a "hooks" array) are unpacked wherever they
// appear: as the whole reply, as a single line, or as the emitted lines read
// back together.
func Normalize(raw string, opts NormalizeOptions) domain.HookList {
	out := normalizePass(raw, opts)
	for {
		joined := strings.Join(out, "\n")
		if decodeJSONList(joined) == nil {
			return out
		}
		out = normalizePass(joined, opts)
	}
}

type collector struct {
	opts NormalizeOptions
	seen map[string]struct{}
	out  domain.HookList
}

func normalizePass(raw string, opts NormalizeOptions) domain.HookList {
	c := &collector{opts: opts, seen: make(map[string]struct{}), out: domain.HookList{}}
	c.add(raw)
	return c.out
}

// add reports false once the cap is reached.
func (c *collector) add(text string) bool {
	if list := decodeJSONList(text); list != nil {
		text = strings.Join(list, "\n")
	}
	for _, line := range lineBreak.Split(text, -1) {
		line = cleanLine(line)
		if list := decodeJSONList(line); list != nil {
			if !c.add(strings.Join(list, "\n")) {
				return false
			}
			continue
		}
		if nonSpaceLen(line) < c.opts.MinChars {
			continue
		}
		key := strings.ToLower(line)
		if _, dup := c.seen[key]; dup {
			continue
		}
		c.seen[key] = struct{}{}
		c.out = append(c.out, line)
		if c.opts.Count > 0 && len(c.out) == c.opts.Count {
			return false
		}
	}
	return true
}

// cleanLine strips enumeration markers and wrapping quotes until neither
// applies.
func cleanLine(line string) string {
	for {
		next := strings.TrimSpace(line)
		next = strings.TrimLeft(next, markerChars)
		next = strings.TrimSpace(unquote(next))
		if next == line {
			return next
		}
		line = next
	}
}

// unquote removes one pair of wrapping quotes, if present.
func unquote(s string) string {
	first, firstSize := utf8.DecodeRuneInString(s)
	last, lastSize := utf8.DecodeLastRuneInString(s)
	if len(s) < firstSize+lastSize || !strings.ContainsRune(quoteChars, first) || !strings.ContainsRune(quoteChars, last) {
		return s
	}
	return s[firstSize : len(s)-lastSize]
}

func nonSpaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// decodeJSONList returns nil unless raw is a JSON string array or an object
// carrying one under "hooks".
func decodeJSONList(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "```"), "```")
	raw = strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(raw, "["):
		var list []string
		if json.Unmarshal([]byte(raw), &list) == nil {
			return list
		}
	case strings.HasPrefix(raw, "{"):
		var obj struct {
			Hooks []string `json:"hooks"`
		}
		if json.Unmarshal([]byte(raw), &obj) == nil && obj.Hooks != nil {
			return obj.Hooks
		}
	}
	return nil
}
