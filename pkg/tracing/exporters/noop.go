package exporters

import (
	"context"

	"go.opentelemetry.io/otel/sdk/trace"
)

// NoopExporter drops every span. Used when no collector endpoint is configured.
type NoopExporter struct{}

func (NoopExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	return nil
}

func (NoopExporter) Shutdown(ctx context.Context) error {
	return nil
}
