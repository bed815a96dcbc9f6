// Package logging provides the leveled logger passed through the compile
// context.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Level orders messages by severity.
type Level = slog.Level

const (
	LevelDebug   Level = slog.LevelDebug
	LevelVerbose Level = -2
	LevelInfo    Level = slog.LevelInfo
	LevelWarn    Level = slog.LevelWarn
	LevelError   Level = slog.LevelError
)

var levelNames = map[Level]string{
	LevelDebug:   "DEBUG",
	LevelVerbose: "VERBOSE",
	LevelInfo:    "INFO",
	LevelWarn:    "WARN",
	LevelError:   "ERROR",
}

// ParseLevel maps a config or flag value to a Level. Empty means info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "verbose":
		return LevelVerbose, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("logging: unknown level %q", s)
}

// Logger writes leveled text lines. Safe for concurrent use; a nil Logger
// discards everything.
type Logger struct {
	l *slog.Logger
}

// New returns a logger that drops messages below min.
func New(w io.Writer, min Level) *Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: min,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.Attr{}
			case slog.LevelKey:
				if lv, ok := a.Value.Any().(slog.Level); ok {
					if name, ok := levelNames[lv]; ok {
						a.Value = slog.StringValue(name)
					}
				}
			}
			return a
		},
	})
	return &Logger{l: slog.New(h)}
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return New(io.Discard, LevelError+1)
}

// With returns a logger that adds key/value attributes to every line.
func (l *Logger) With(args ...any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{l: l.l.With(args...)}
}

func (l *Logger) logf(level Level, format string, args ...any) {
	if l == nil {
		return
	}
	ctx := context.Background()
	if !l.l.Enabled(ctx, level) {
		return
	}
	l.l.Log(ctx, level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...any)   { l.logf(LevelDebug, format, args...) }
func (l *Logger) Verbosef(format string, args ...any) { l.logf(LevelVerbose, format, args...) }
func (l *Logger) Infof(format string, args ...any)    { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)    { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any)   { l.logf(LevelError, format, args...) }
