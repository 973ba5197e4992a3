package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestSetupJSONFormatIncludesServiceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("langservice", "0.1.0", FormatJSON, slog.LevelInfo, &buf)

	logger.Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log line: %v\noutput: %s", err, buf.String())
	}
	if entry["service"] != "langservice" || entry["version"] != "0.1.0" {
		t.Fatalf("expected service/version fields, got %+v", entry)
	}
}

func TestSetupTextFormatWritesPlainLine(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("docqlctl", "0.1.0", FormatText, slog.LevelInfo, &buf)

	logger.Info("hello")

	output := buf.String()
	if !strings.Contains(output, "hello") || !strings.Contains(output, "docqlctl") {
		t.Fatalf("expected text output to contain message and service, got %q", output)
	}
}

func TestHandlerAddsTraceContextWhenPresent(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("langservice", "0.1.0", FormatJSON, slog.LevelInfo, &buf)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logger.InfoContext(ctx, "traced")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if entry["trace_id"] != "4bf92f3577b34da6a3ce929d0e0e4736" || entry["span_id"] != "00f067aa0ba902b7" {
		t.Fatalf("expected trace/span IDs to be attached, got %+v", entry)
	}
}

func TestHandlerOmitsTraceFieldsWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("langservice", "0.1.0", FormatJSON, slog.LevelInfo, &buf)

	logger.Info("untraced")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if _, ok := entry["trace_id"]; ok {
		t.Fatalf("expected no trace_id field without a span, got %+v", entry)
	}
}

func TestSetDefaultInstallsPackageDefault(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	SetDefault("test-service", "0.0.1", FormatJSON, slog.LevelDebug)

	if slog.Default() == original {
		t.Fatalf("expected SetDefault to replace the package default logger")
	}
}
