package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestMetrics_Names(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetrics(provider.Meter("wsreap"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordCycle(ctx, "success", 2*time.Second, false)
	m.RecordOutcome(ctx, "terminated", "terminate")
	m.RecordRetry(ctx, "Describe")
	m.RecordScanned(ctx, 3)

	got := collectMetrics(t, reader)
	for _, name := range []string{
		"wsreap.cycles",
		"wsreap.cycle.duration",
		"wsreap.outcomes",
		"wsreap.api.retries",
		"wsreap.resources.scanned",
	} {
		assert.Contains(t, got, name)
	}
}

func TestMetrics_OutcomeAttributes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMetrics(provider.Meter("wsreap"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordOutcome(ctx, "warned", "warn")
	m.RecordOutcome(ctx, "warned", "warn")
	m.RecordOutcome(ctx, "skipped", "no_action")

	sum, ok := collectMetrics(t, reader)["wsreap.outcomes"].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byStatus := map[string]int64{}
	for _, dp := range sum.DataPoints {
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		byStatus[status.AsString()] = dp.Value
	}
	assert.Equal(t, int64(2), byStatus["warned"])
	assert.Equal(t, int64(1), byStatus["skipped"])
}

func TestNoopMetrics(t *testing.T) {
	m := NoopMetrics()
	require.NotNil(t, m)
	assert.NotPanics(t, func() {
		m.RecordCycle(context.Background(), "failed", time.Second, true)
		m.RecordRetry(context.Background(), "ListPage")
	})
}
