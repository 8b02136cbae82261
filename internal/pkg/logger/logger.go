package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	globalLogger *slog.Logger
	once         sync.Once
)

// Attribute keys whose string values are credentials. They are masked at the
// handler, so a call site that forgets Mask still never logs one in full.
var secretKeys = map[string]bool{
	"secret":         true,
	"api_secret":     true,
	"passphrase":     true,
	"api_passphrase": true,
	"api_key":        true,
	"private_key":    true,
}

func Init(level string) {
	once.Do(func() {
		globalLogger = slog.New(newHandler(os.Stdout, parseLevel(level)))
		slog.SetDefault(globalLogger)
	})
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newHandler is the JSON handler every process logs through.
func newHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactSecrets,
	})
}

func redactSecrets(groups []string, a slog.Attr) slog.Attr {
	if !secretKeys[strings.ToLower(a.Key)] || a.Value.Kind() != slog.KindString {
		return a
	}
	v := a.Value.String()
	if isMasked(v) {
		return a
	}
	return slog.String(a.Key, Mask(v))
}

// Get returns the global logger instance
func Get() *slog.Logger {
	if globalLogger == nil {
		Init("info")
	}
	return globalLogger
}

func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

func Error(msg string, args ...any) {
	Get().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}

func With(args ...any) *slog.Logger {
	return Get().With(args...)
}

func LogError(ctx context.Context, err error, msg string, args ...any) {
	if err == nil {
		return
	}
	args = append(args, slog.String("error", err.Error()))
	Get().ErrorContext(ctx, msg, args...)
}

// Mask renders a secret as a short prefix plus its total length, e.g. "abcd…(len=44)".
func Mask(secret string) string {
	if secret == "" {
		return "<empty>"
	}
	prefix := secret
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return fmt.Sprintf("%s…(len=%d)", prefix, len(secret))
}

func isMasked(v string) bool {
	return v == "<empty>" || strings.Contains(v, "…(len=")
}
