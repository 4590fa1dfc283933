package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_AddsTraceIDs(t *testing.T) {
	_, provider := newTestTracer(t)
	ctx, span := provider.Tracer("test").Start(context.Background(), "cycle")
	defer span.End()

	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "orchestrator")
	logger.WithContext(ctx).Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "orchestrator", entry["component"])
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
}

func TestLogger_NoSpanNoTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "executor")
	logger.WithContext(context.Background()).Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "trace_id")
}

func TestConfigureGlobal(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	require.NoError(t, ConfigureGlobal("wsreap", "debug", "json"))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	require.NoError(t, ConfigureGlobal("wsreap", "WARN", "console"))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	assert.Error(t, ConfigureGlobal("wsreap", "loud", "json"))
	assert.Error(t, ConfigureGlobal("wsreap", "info", "xml"))
}
