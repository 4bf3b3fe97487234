package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/runvoy/lambdahost/internal/constants"

	"github.com/lmittmann/tint"
)

// Initialize sets up the global slog logger based on the environment
func Initialize(env constants.Environment, level slog.Level) *slog.Logger {
	logger := New(os.Stderr, env, level)
	slog.SetDefault(logger)
	slog.Debug("logger initialized", "env", env, "level", level)

	return logger
}

// New builds a logger writing to w without touching the process-wide default.
// Production (Lambda) output is JSON so CloudWatch can index it, everything else goes through tint.
func New(w io.Writer, env constants.Environment, level slog.Level) *slog.Logger {
	var handler slog.Handler

	if env == constants.Production {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level:       level,
			TimeFormat:  time.TimeOnly,
			ReplaceAttr: replaceAttrForDev,
		})
	}

	return slog.New(handler)
}

// replaceAttrForDev renders map attributes as sorted key=value pairs so that the
// "context" maps used across the codebase stay readable in a terminal.
func replaceAttrForDev(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindAny {
		return a
	}

	switch a.Value.Any().(type) {
	case map[string]any, map[string]string:
		return slog.String(a.Key, flattenMapAttr(a.Key, a.Value.Any()))
	default:
		return a
	}
}

func flattenMapAttr(prefix string, value any) string {
	var pairs []string

	appendPair := func(key string, v any) {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := v.(map[string]any); ok {
			pairs = append(pairs, flattenMapAttr(fullKey, nested))
			return
		}
		if nested, ok := v.(map[string]string); ok {
			pairs = append(pairs, flattenMapAttr(fullKey, nested))
			return
		}
		pairs = append(pairs, fmt.Sprintf("%s=%v", fullKey, v))
	}

	switch m := value.(type) {
	case map[string]any:
		for k, v := range m {
			appendPair(k, v)
		}
	case map[string]string:
		for k, v := range m {
			appendPair(k, v)
		}
	default:
		return fmt.Sprint(value)
	}

	sort.Strings(pairs)
	return strings.Join(pairs, " ")
}
