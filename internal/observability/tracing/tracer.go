// Package tracing wires OpenTelemetry into the coordinator's HTTP surface:
// incoming W3C trace context is joined, every request gets a server span,
// and the trace ID is echoed on the response for client-side correlation.
package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("rss-coordinator")

// GetTracer returns the coordinator's tracer for opening spans outside the
// HTTP middleware, e.g. around worker batch runs.
func GetTracer() trace.Tracer {
	return tracer
}
