// Package orchestrator runs the scan -> classify -> act cycle.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yairfalse/wsreap/executor"
	"github.com/yairfalse/wsreap/inventory"
	"github.com/yairfalse/wsreap/lifecycle"
	"github.com/yairfalse/wsreap/telemetry"
)

// Source yields the fleet lazily. *inventory.Lister implements it.
type Source interface {
	All(ctx context.Context) iter.Seq2[inventory.Record, error]
}

// Config holds the per-cycle settings
type Config struct {
	Thresholds lifecycle.Thresholds
	// Workers bounds concurrent classify+dispatch. 1 keeps the cycle sequential.
	Workers int
	Region  string
}

// Orchestrator coordinates list → classify → dispatch
type Orchestrator struct {
	source     Source
	dispatcher *executor.Dispatcher
	config     Config
	clock      lifecycle.Clock
	metrics    *telemetry.Metrics
	logger     *telemetry.Logger
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(source Source, dispatcher *executor.Dispatcher, config Config) *Orchestrator {
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Orchestrator{
		source:     source,
		dispatcher: dispatcher,
		config:     config,
		clock:      lifecycle.SystemClock{},
		metrics:    telemetry.NoopMetrics(),
		logger:     telemetry.NewLogger("orchestrator"),
	}
}

// WithClock sets the clock read at cycle start
func (o *Orchestrator) WithClock(c lifecycle.Clock) *Orchestrator {
	o.clock = c
	return o
}

// WithMetrics sets the metric instruments
func (o *Orchestrator) WithMetrics(m *telemetry.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// RunCycle runs one lifecycle cycle. Per-workspace failures are counted and
// the scan goes on; only a fatal listing error aborts, in which case the
// partial summary is returned with the error.
func (o *Orchestrator) RunCycle(ctx context.Context) (*Summary, error) {
	th := o.config.Thresholds
	if err := th.Validate(); err != nil {
		return nil, fmt.Errorf("thresholds: %w", err)
	}
	now := o.clock.Now()
	dispatcher := o.dispatcher.WithThresholds(th)

	summary := &Summary{
		StartTime: time.Now(),
		DryRun:    dispatcher.DryRun(),
	}

	ctx, cycle := telemetry.StartCycle(ctx, telemetry.Tracer, o.config.Region, summary.DryRun)
	defer cycle.End()

	o.logger.WithContext(ctx).Info().
		Time("now", now).
		Int("warn_days", th.WarnDays).
		Int("cutoff_days", th.CutoffDays).
		Int("never_used_grace_days", th.NeverUsedGraceDays).
		Int("workers", o.config.Workers).
		Bool("dry_run", summary.DryRun).
		Msg("starting lifecycle cycle")

	var (
		mu    sync.Mutex
		g     errgroup.Group
		fatal error
	)
	g.SetLimit(o.config.Workers)

	for rec, err := range o.source.All(ctx) {
		if err != nil {
			if errors.Is(err, inventory.ErrDetailLookupFailed) {
				o.skip(ctx, &mu, summary, rec, err)
				continue
			}
			fatal = err
			break
		}

		mu.Lock()
		summary.Scanned++
		mu.Unlock()

		g.Go(func() error {
			out := o.processRecord(ctx, dispatcher, rec, now, th)
			mu.Lock()
			summary.add(out)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	o.metrics.RecordScanned(ctx, summary.Scanned)

	if fatal != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("listing failed: %v", fatal))
		cycle.Fail(fatal)
		return o.finishCycle(ctx, cycle, summary, "failed"), fmt.Errorf("cycle aborted: %w", fatal)
	}

	return o.finishCycle(ctx, cycle, summary, "success"), nil
}

func (o *Orchestrator) skip(ctx context.Context, mu *sync.Mutex, summary *Summary, rec inventory.Record, err error) {
	o.logger.WithContext(ctx).Warn().
		Err(err).
		Str("workspace_id", rec.ID).
		Msg("skipping workspace")

	mu.Lock()
	summary.Scanned++
	summary.add(executor.Outcome{ResourceID: rec.ID, Status: executor.StatusSkipped, Err: err})
	mu.Unlock()

	o.metrics.RecordOutcome(ctx, string(executor.StatusSkipped), "")
}

func (o *Orchestrator) processRecord(
	ctx context.Context,
	dispatcher *executor.Dispatcher,
	rec inventory.Record,
	now time.Time,
	th lifecycle.Thresholds,
) executor.Outcome {
	in := rec.ClassifierInput()
	decision := lifecycle.Classify(in, now, th)

	idle, ok := lifecycle.IdleDays(in, now)
	if !ok {
		idle = -1
	}
	telemetry.RecordDecisionEvent(trace.SpanFromContext(ctx), rec.ID, decision.Kind.String(),
		string(decision.Reason), decision.DaysRemaining, idle)

	event := o.logger.WithContext(ctx).Debug()
	if decision.IsAction() {
		event = o.logger.WithContext(ctx).Info()
	}
	event.
		Str("workspace_id", rec.ID).
		Str("owner", rec.Owner).
		Int("idle_days", idle).
		Str("decision", decision.String()).
		Msg("workspace classified")

	out := dispatcher.Apply(ctx, rec, decision, now)
	o.metrics.RecordOutcome(ctx, string(out.Status), decision.Kind.String())
	return out
}

func (o *Orchestrator) finishCycle(ctx context.Context, cycle *telemetry.CycleSpan, summary *Summary, status string) *Summary {
	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)

	telemetry.RecordCycleCompletedEvent(cycle.Span(), summary.Counts(), summary.Duration.Seconds(), summary.DryRun)
	o.metrics.RecordCycle(ctx, status, summary.Duration, summary.DryRun)

	o.logger.WithContext(ctx).Info().
		Int("scanned", summary.Scanned).
		Int("no_action", summary.NoAction).
		Int("warned", summary.Warned).
		Int("terminated", summary.Terminated).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("notification_failures", summary.NotificationFailures).
		Dur("duration", summary.Duration).
		Bool("dry_run", summary.DryRun).
		Str("status", status).
		Msg("lifecycle cycle complete")

	return summary
}
