// Package telemetry exposes the service's tracer as a package-level
// otel.Tracer. No exporter is configured here: a process embedding this
// service with the default no-op TracerProvider gets spans that cost
// nothing and go nowhere; a host that wants real traces registers its own
// provider before calling in. Tracing is an injected concern, not one this
// package owns end to end.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/querycanvas/langservice"

// Tracer returns the package-wide tracer. No other package in this module
// calls it, so schema refresh, expander loads and persistence I/O run
// without spans.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
