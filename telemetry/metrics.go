package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds the cycle instruments using OTEL semantic conventions
type Metrics struct {
	cycles           metric.Int64Counter
	cycleDuration    metric.Float64Histogram
	outcomes         metric.Int64Counter
	retries          metric.Int64Counter
	resourcesScanned metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	cycles, err := meter.Int64Counter(
		"wsreap.cycles",
		metric.WithDescription("Number of lifecycle cycles run"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	cycleDuration, err := meter.Float64Histogram(
		"wsreap.cycle.duration",
		metric.WithDescription("Duration of lifecycle cycles"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	outcomes, err := meter.Int64Counter(
		"wsreap.outcomes",
		metric.WithDescription("Per-workspace outcomes by status"),
		metric.WithUnit("{workspace}"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter(
		"wsreap.api.retries",
		metric.WithDescription("Throttled provider calls that were retried"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	resourcesScanned, err := meter.Int64Counter(
		"wsreap.resources.scanned",
		metric.WithDescription("Workspaces enumerated by the lister"),
		metric.WithUnit("{workspace}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		cycles:           cycles,
		cycleDuration:    cycleDuration,
		outcomes:         outcomes,
		retries:          retries,
		resourcesScanned: resourcesScanned,
	}, nil
}

// NoopMetrics returns instruments that record nothing.
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(instrumentationName))
	return m
}

// RecordCycle records a finished cycle with its status ("success" or "failed").
func (m *Metrics) RecordCycle(ctx context.Context, status string, d time.Duration, dryRun bool) {
	attrs := metric.WithAttributes(
		attribute.String("status", status),
		attribute.Bool("dry_run", dryRun),
	)
	m.cycles.Add(ctx, 1, attrs)
	m.cycleDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordOutcome records one workspace outcome.
func (m *Metrics) RecordOutcome(ctx context.Context, status string, decision string) {
	m.outcomes.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("status", status),
			attribute.String("decision", decision),
		),
	)
}

// RecordRetry records one backoff retry of operation.
func (m *Metrics) RecordRetry(ctx context.Context, operation string) {
	m.retries.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
		),
	)
}

// RecordScanned records n enumerated workspaces.
func (m *Metrics) RecordScanned(ctx context.Context, n int) {
	m.resourcesScanned.Add(ctx, int64(n))
}
