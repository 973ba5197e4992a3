// Package logging provides structured logging decorated with OpenTelemetry
// trace context: a slog.Handler wrapper that stamps every record with
// service/version fields and, when the logging call carries a span, its
// trace/span IDs.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// traceHandler decorates a base slog.Handler with static service/version
// fields and per-record trace context pulled from the call's context.Context.
type traceHandler struct {
	base    slog.Handler
	service string
	version string
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("service", h.service),
		slog.String("version", h.version),
	)

	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", spanCtx.TraceID().String()))
	}
	if spanCtx.HasSpanID() {
		r.AddAttrs(slog.String("span_id", spanCtx.SpanID().String()))
	}

	return h.base.Handle(ctx, r)
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{base: h.base.WithAttrs(attrs), service: h.service, version: h.version}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{base: h.base.WithGroup(name), service: h.service, version: h.version}
}

// Format selects the base handler's output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Setup builds a *slog.Logger for service/version at the given level,
// writing JSON by default or plain text when format is FormatText. A nil
// writer defaults to os.Stderr. A terminal-facing CLI typically wants text;
// a long-lived service wants JSON for its log pipeline.
func Setup(service, version string, format Format, level slog.Level, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	if format == FormatText {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	return slog.New(&traceHandler{base: base, service: service, version: version})
}

// SetDefault builds a logger with Setup and installs it as slog's package
// default.
func SetDefault(service, version string, format Format, level slog.Level) {
	slog.SetDefault(Setup(service, version, format, level, nil))
}
