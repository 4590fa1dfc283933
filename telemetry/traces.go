package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CycleSpan represents one lifecycle cycle span
type CycleSpan struct {
	span trace.Span
}

// StartCycle starts the wsreap.cycle span
func StartCycle(ctx context.Context, tracer trace.Tracer, region string, dryRun bool) (context.Context, *CycleSpan) {
	ctx, span := tracer.Start(ctx, "wsreap.cycle",
		trace.WithAttributes(
			attribute.String("cloud.region", region),
			attribute.Bool("dry_run", dryRun),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx, &CycleSpan{span: span}
}

// Span returns the underlying span for event helpers.
func (c *CycleSpan) Span() trace.Span {
	return c.span
}

// Fail marks the cycle as failed.
func (c *CycleSpan) Fail(err error) {
	c.span.RecordError(err)
	c.span.SetStatus(codes.Error, err.Error())
}

// End ends the cycle span
func (c *CycleSpan) End() {
	c.span.End()
}
