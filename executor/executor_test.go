package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yairfalse/wsreap/internal/backoff"
	"github.com/yairfalse/wsreap/inventory"
	"github.com/yairfalse/wsreap/inventory/inventorytest"
	"github.com/yairfalse/wsreap/lifecycle"
	"github.com/yairfalse/wsreap/notify/notifytest"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func testRecord() inventory.Record {
	last := testNow.Add(-(90*24 + 1) * time.Hour)
	return inventory.Record{
		ID:             "ws-1",
		Owner:          "jdoe",
		ComputerName:   "WSAMZN-1",
		LastConnection: &last,
	}
}

func newTestDispatcher(p *inventorytest.Provider, s *notifytest.Recorder, opts Options) *Dispatcher {
	if opts.Domain == "" {
		opts.Domain = "corp.example"
	}
	exec := backoff.New(backoff.Policy{MaxAttempts: 5, InitialDelay: time.Millisecond, Multiplier: 2})
	return NewDispatcher(p, s, exec, lifecycle.DefaultThresholds(), opts)
}

func TestApply_NoActionMakesNoCalls(t *testing.T) {
	p := inventorytest.New()
	s := &notifytest.Recorder{}

	out := newTestDispatcher(p, s, Options{}).Apply(context.Background(), testRecord(), lifecycle.NoAction(), testNow)

	assert.Equal(t, StatusNoAction, out.Status)
	assert.NoError(t, out.Err)
	assert.Empty(t, p.Calls)
	assert.Empty(t, s.Messages())
}

func TestApply_WarnSendsOneMessage(t *testing.T) {
	p := inventorytest.New()
	s := &notifytest.Recorder{}
	d := newTestDispatcher(p, s, Options{AdminEmail: "admin@corp.example"})

	out := d.Apply(context.Background(), testRecord(), lifecycle.Warn(5), testNow)

	assert.Equal(t, StatusWarned, out.Status)
	assert.NoError(t, out.Err)
	assert.Empty(t, p.TerminatedIDs())

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"jdoe@corp.example", "admin@corp.example"}, msgs[0].To)
	assert.Equal(t, "Workspace Notification", msgs[0].Subject)
	assert.Contains(t, msgs[0].HTML, "In 5 days")
}

func TestApply_WarnNotificationFailure(t *testing.T) {
	s := &notifytest.Recorder{Err: errors.New("ses: message rejected")}

	out := newTestDispatcher(inventorytest.New(), s, Options{}).
		Apply(context.Background(), testRecord(), lifecycle.Warn(5), testNow)

	assert.Equal(t, StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, ErrNotificationFailed)
	assert.True(t, out.NotificationFailed())
}

func TestApply_TerminateThenNotify(t *testing.T) {
	p := inventorytest.New()
	s := &notifytest.Recorder{}

	out := newTestDispatcher(p, s, Options{}).
		Apply(context.Background(), testRecord(), lifecycle.Terminate(lifecycle.ReasonCutoffExceeded), testNow)

	assert.Equal(t, StatusTerminated, out.Status)
	assert.NoError(t, out.Err)
	assert.Equal(t, []string{"ws-1"}, p.TerminatedIDs())

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"jdoe@corp.example"}, msgs[0].To)
	assert.Contains(t, msgs[0].HTML, "has been deleted")
}

func TestApply_TerminationFailureSkipsNotification(t *testing.T) {
	p := inventorytest.New()
	p.FailWith("Terminate:ws-1", errors.New("access denied"))
	s := &notifytest.Recorder{}

	out := newTestDispatcher(p, s, Options{}).
		Apply(context.Background(), testRecord(), lifecycle.Terminate(lifecycle.ReasonCutoffExceeded), testNow)

	assert.Equal(t, StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, ErrTerminationFailed)
	assert.False(t, out.NotificationFailed())
	assert.Empty(t, s.Messages())
	assert.Equal(t, 1, p.CallCount("Terminate:ws-1"))
}

func TestApply_TerminationRetriesThrottling(t *testing.T) {
	p := inventorytest.New()
	p.FailWith("Terminate:ws-1", backoff.ErrThrottled, backoff.ErrThrottled)
	s := &notifytest.Recorder{}

	out := newTestDispatcher(p, s, Options{}).
		Apply(context.Background(), testRecord(), lifecycle.Terminate(lifecycle.ReasonCutoffExceeded), testNow)

	assert.Equal(t, StatusTerminated, out.Status)
	assert.Equal(t, 3, p.CallCount("Terminate:ws-1"))
	assert.Len(t, s.Messages(), 1)
}

func TestApply_NotificationFailureAfterTermination(t *testing.T) {
	p := inventorytest.New()
	s := &notifytest.Recorder{Err: errors.New("ses: throttled")}

	out := newTestDispatcher(p, s, Options{}).
		Apply(context.Background(), testRecord(), lifecycle.Terminate(lifecycle.ReasonNeverUsedGraceExpired), testNow)

	assert.Equal(t, StatusTerminated, out.Status, "termination stands")
	assert.ErrorIs(t, out.Err, ErrNotificationFailed)
	assert.Equal(t, []string{"ws-1"}, p.TerminatedIDs())
}

func TestApply_DryRun(t *testing.T) {
	p := inventorytest.New()
	s := &notifytest.Recorder{}
	d := newTestDispatcher(p, s, Options{DryRun: true})
	require.True(t, d.DryRun())

	term := d.Apply(context.Background(), testRecord(), lifecycle.Terminate(lifecycle.ReasonCutoffExceeded), testNow)
	warn := d.Apply(context.Background(), testRecord(), lifecycle.Warn(5), testNow)

	assert.Equal(t, StatusTerminated, term.Status)
	assert.True(t, term.DryRun)
	assert.Equal(t, StatusWarned, warn.Status)
	assert.Empty(t, p.Calls)
	assert.Empty(t, s.Messages())
}

func TestApply_UnknownReasonFailsBeforeSideEffects(t *testing.T) {
	p := inventorytest.New()
	s := &notifytest.Recorder{}

	out := newTestDispatcher(p, s, Options{}).
		Apply(context.Background(), testRecord(), lifecycle.Terminate(lifecycle.Reason("quota")), testNow)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Error(t, out.Err)
	assert.Empty(t, p.Calls)
	assert.Empty(t, s.Messages())
}

func TestApply_RecordsSpanEvents(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	ctx, span := tp.Tracer("test").Start(context.Background(), "cycle")

	newTestDispatcher(inventorytest.New(), &notifytest.Recorder{}, Options{}).
		Apply(ctx, testRecord(), lifecycle.Terminate(lifecycle.ReasonCutoffExceeded), testNow)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 2)
	assert.Equal(t, "lifecycle.action", spans[0].Events[0].Name)
}

func TestWithThresholds(t *testing.T) {
	s := &notifytest.Recorder{}
	d := newTestDispatcher(inventorytest.New(), s, Options{})
	custom := lifecycle.Thresholds{WarnDays: 25, CutoffDays: 30, NeverUsedGraceDays: 7}

	d.WithThresholds(custom).Apply(context.Background(), testRecord(), lifecycle.Warn(5), testNow)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].HTML, "logged into for 25 days")
}
