// Package executor applies lifecycle decisions to workspaces.
package executor

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/wsreap/internal/backoff"
	"github.com/yairfalse/wsreap/inventory"
	"github.com/yairfalse/wsreap/lifecycle"
	"github.com/yairfalse/wsreap/notify"
	"github.com/yairfalse/wsreap/telemetry"
)

// Dispatcher turns a decision into at most one termination and one
// notification. It never retries a notification and never undoes a
// termination.
type Dispatcher struct {
	terminator Terminator
	sender     notify.Sender
	exec       *backoff.Executor
	thresholds lifecycle.Thresholds
	options    Options
	logger     *telemetry.Logger
}

// NewDispatcher creates a dispatcher. Terminations go through exec.
func NewDispatcher(
	terminator Terminator,
	sender notify.Sender,
	exec *backoff.Executor,
	thresholds lifecycle.Thresholds,
	options Options,
) *Dispatcher {
	return &Dispatcher{
		terminator: terminator,
		sender:     sender,
		exec:       exec,
		thresholds: thresholds,
		options:    options,
		logger:     telemetry.NewLogger("executor"),
	}
}

// WithThresholds returns a copy that renders messages for th.
func (d *Dispatcher) WithThresholds(th lifecycle.Thresholds) *Dispatcher {
	cp := *d
	cp.thresholds = th
	return &cp
}

// DryRun reports whether side effects are suppressed.
func (d *Dispatcher) DryRun() bool {
	return d.options.DryRun
}

// Apply executes decision for rec.
func (d *Dispatcher) Apply(ctx context.Context, rec inventory.Record, decision lifecycle.Decision, now time.Time) Outcome {
	out := Outcome{
		ResourceID: rec.ID,
		Decision:   decision,
		DryRun:     d.options.DryRun,
	}

	if !decision.IsAction() {
		out.Status = StatusNoAction
		return out
	}

	msg, err := notify.Compose(rec, decision, d.thresholds, now, d.options.Domain)
	if err != nil {
		out.Status = StatusFailed
		out.Err = err
		d.record(ctx, "compose", out)
		return out
	}

	switch decision.Kind {
	case lifecycle.KindWarn:
		return d.warn(ctx, rec, msg, out)
	case lifecycle.KindTerminate:
		return d.terminate(ctx, rec, msg, out)
	default:
		out.Status = StatusFailed
		out.Err = fmt.Errorf("unsupported decision %s", decision)
		return out
	}
}

func (d *Dispatcher) record(ctx context.Context, action string, out Outcome) {
	errMsg := ""
	if out.Err != nil {
		errMsg = out.Err.Error()
	}
	telemetry.RecordActionEvent(trace.SpanFromContext(ctx), action, out.ResourceID, string(out.Status), out.DryRun, errMsg)
}

func (d *Dispatcher) recipients(rec inventory.Record) []string {
	to := []string{rec.ContactAddress(d.options.Domain)}
	if d.options.AdminEmail != "" {
		to = append(to, d.options.AdminEmail)
	}
	return to
}
