package runtime

import (
	"io"
	"log/slog"
	"strings"

	"github.com/tjfontaine/hookgen/internal/config"
)

// NewLogger returns a JSON slog logger at the configured level. Unknown
// levels fall back to info.
func NewLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
