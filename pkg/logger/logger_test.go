package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLoggerCarriesContextFields(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Level: zerolog.InfoLevel, Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-1")
	ctx = logg.WithOrderID(ctx, "order-9")
	ctx = logg.WithFields(ctx, map[string]any{"store_id": "store-2"})
	logg.Info(ctx, "checkout.complete")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "order-9", entry["order_id"])
	assert.Equal(t, "store-2", entry["store_id"])
	assert.Equal(t, "checkout.complete", entry["message"])
}

func TestLoggerErrorIncludesStack(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf})

	logg.Error(context.Background(), "boom", errors.New("db down"))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "db down", entry["error"])
	assert.NotEmpty(t, entry["stack"])
}

func TestLoggerLevelFilters(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Level: zerolog.WarnLevel, Output: &buf})

	logg.Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())
}

func TestWithTraceIDUsesSpanContext(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf})

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logg.Info(logg.WithTraceID(ctx), "traced")

	entry := decodeLine(t, &buf)
	assert.Equal(t, traceID.String(), entry["trace_id"])
}

func TestParseLevel(t *testing.T) {
	if got := ParseLevel("WARN"); got != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %s", got)
	}
	if got := ParseLevel("nonsense"); got != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", got)
	}
}
