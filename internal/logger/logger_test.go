package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/runvoy/lambdahost/internal/constants"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenMapAttr(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		value    any
		expected string
	}{
		{
			name:   "simple map[string]string",
			prefix: "",
			value: map[string]string{
				"status":   "200",
				"deadline": "none",
			},
			expected: "deadline=none status=200",
		},
		{
			name:   "simple map[string]any",
			prefix: "",
			value: map[string]any{
				"count": 42,
				"name":  "test",
			},
			expected: "count=42 name=test",
		},
		{
			name:   "nested map",
			prefix: "event",
			value: map[string]any{
				"kind": "REST_V1",
				"request": map[string]string{
					"method": "GET",
				},
			},
			expected: "event.kind=REST_V1 event.request.method=GET",
		},
		{
			name:     "non-map value",
			prefix:   "",
			value:    "simple string",
			expected: "simple string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, flattenMapAttr(tt.prefix, tt.value))
		})
	}
}

func TestReplaceAttrForDev(t *testing.T) {
	t.Run("map attr gets flattened", func(t *testing.T) {
		result := replaceAttrForDev(nil, slog.Any("context", map[string]any{"path": "/test"}))
		assert.Equal(t, "context.path=/test", result.Value.String())
	})

	t.Run("string attr unchanged", func(t *testing.T) {
		result := replaceAttrForDev(nil, slog.String("message", "hello"))
		assert.Equal(t, "hello", result.Value.String())
	})

	t.Run("int attr unchanged", func(t *testing.T) {
		result := replaceAttrForDev(nil, slog.Int("count", 42))
		assert.Equal(t, int64(42), result.Value.Int64())
	})
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name  string
		env   constants.Environment
		level slog.Level
	}{
		{"production environment with info level", constants.Production, slog.LevelInfo},
		{"development environment with debug level", constants.Development, slog.LevelDebug},
		{"CLI environment with warn level", constants.CLI, slog.LevelWarn},
	}

	original := slog.Default()
	defer slog.SetDefault(original)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := Initialize(tt.env, tt.level)

			assert.NotNil(t, logger, "Logger should not be nil")
			assert.Equal(t, logger, slog.Default(), "Logger should be set as default")
		})
	}
}

func TestNew_ProductionWritesJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(buf, constants.Production, slog.LevelInfo)

	log.Info("dispatching", "path", "/test")
	log.Debug("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dispatching", entry["msg"])
	assert.Equal(t, "/test", entry["path"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNew_DevelopmentUsesTint(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(buf, constants.Development, slog.LevelDebug)

	log.Debug("dispatching", "context", map[string]any{"path": "/test"})

	assert.Contains(t, buf.String(), "dispatching")
	assert.Contains(t, buf.String(), "context.path=/test")
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		expected string
	}{
		{
			name:     "empty context",
			ctx:      context.Background(),
			expected: "",
		},
		{
			name:     "context with request ID",
			ctx:      context.WithValue(context.Background(), requestIDContextKey, "test-request-123"),
			expected: "test-request-123",
		},
		{
			name:     "context with wrong type",
			ctx:      context.WithValue(context.Background(), requestIDContextKey, 12345),
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetRequestID(tt.ctx))
		})
	}
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "test-request-123")
	assert.Equal(t, "test-request-123", GetRequestID(ctx))
}

func TestDeriveRequestLogger(t *testing.T) {
	t.Run("nil base logger returns default", func(t *testing.T) {
		logger := DeriveRequestLogger(context.Background(), nil)
		assert.Equal(t, slog.Default(), logger)
	})

	t.Run("uses request ID from context value", func(t *testing.T) {
		buf := &bytes.Buffer{}
		base := slog.New(slog.NewJSONHandler(buf, nil))

		ctx := WithRequestID(context.Background(), "req-123")
		DeriveRequestLogger(ctx, base).Info("hello")

		assert.Contains(t, buf.String(), `"requestID":"req-123"`)
	})

	t.Run("falls back to lambda request ID", func(t *testing.T) {
		buf := &bytes.Buffer{}
		base := slog.New(slog.NewJSONHandler(buf, nil))

		ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{
			AwsRequestID: "lambda-456",
		})
		DeriveRequestLogger(ctx, base).Info("hello")

		assert.Contains(t, buf.String(), `"requestID":"lambda-456"`)
	})

	t.Run("context value wins over lambda context", func(t *testing.T) {
		buf := &bytes.Buffer{}
		base := slog.New(slog.NewJSONHandler(buf, nil))

		ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{
			AwsRequestID: "lambda-456",
		})
		ctx = WithRequestID(ctx, "explicit-789")
		DeriveRequestLogger(ctx, base).Info("hello")

		assert.Contains(t, buf.String(), "explicit-789")
		assert.NotContains(t, buf.String(), "lambda-456")
	})

	t.Run("no request ID leaves logger untouched", func(t *testing.T) {
		base := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
		assert.Same(t, base, DeriveRequestLogger(context.Background(), base))
	})
}

func TestGetDeadlineInfo(t *testing.T) {
	t.Run("no deadline", func(t *testing.T) {
		info := GetDeadlineInfo(context.Background())
		assert.Equal(t, []any{"deadline", "none", "deadline_remaining", "none"}, info)
	})

	t.Run("with deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		info := GetDeadlineInfo(ctx)
		require.Len(t, info, 4)
		assert.Equal(t, "deadline", info[0])
		assert.Equal(t, "deadline_remaining", info[2])
		assert.NotEqual(t, "none", info[1])
	})
}

func TestSliceToMap(t *testing.T) {
	tests := []struct {
		name     string
		args     []any
		expected map[string]any
	}{
		{
			name:     "even pairs",
			args:     []any{"method", "GET", "status", 200},
			expected: map[string]any{"method": "GET", "status": 200},
		},
		{
			name:     "odd trailing element ignored",
			args:     []any{"method", "GET", "dangling"},
			expected: map[string]any{"method": "GET"},
		},
		{
			name:     "non-string key skipped",
			args:     []any{42, "value", "path", "/"},
			expected: map[string]any{"path": "/"},
		},
		{
			name:     "empty",
			args:     nil,
			expected: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SliceToMap(tt.args))
		})
	}
}
