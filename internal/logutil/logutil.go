// Package logutil builds the slog loggers used by the command line tool.
package logutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gitrdm/gopdaaal/pkg/pushdown"
)

// LevelTrace is the level of per-edge saturation events.
const LevelTrace = pushdown.LevelTrace

// NewLogger returns a text logger, or a JSON logger when json is set, that
// writes records at level and above to w. LevelTrace is rendered as
// "TRACE".
func NewLogger(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				if l, ok := attr.Value.Any().(slog.Level); ok && l <= LevelTrace {
					attr.Value = slog.StringValue("TRACE")
				}
			case slog.SourceKey:
				if source, ok := attr.Value.Any().(*slog.Source); ok {
					source.File = filepath.Base(source.File)
				}
			}
			return attr
		},
	}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel parses trace, debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// EnvLevel lowers level according to PDAAAL_DEBUG: "1" selects Debug and
// "2" selects LevelTrace and switches on per-edge tracing.
func EnvLevel(level slog.Level) slog.Level {
	switch os.Getenv("PDAAAL_DEBUG") {
	case "1", "true":
		return min(level, slog.LevelDebug)
	case "2", "trace":
		pushdown.EnableTrace(true)
		return LevelTrace
	}
	return level
}
