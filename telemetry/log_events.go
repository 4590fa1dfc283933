package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RecordDecisionEvent adds a lifecycle.decision event to span
func RecordDecisionEvent(
	span trace.Span,
	workspaceID string,
	kind string,
	reason string,
	daysRemaining int,
	idleDays int,
) {
	if span == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("event.type", "lifecycle.decision"),
		attribute.String("workspace.id", workspaceID),
		attribute.String("decision.kind", kind),
	}
	if reason != "" {
		attrs = append(attrs, attribute.String("decision.reason", reason))
	}
	if daysRemaining > 0 {
		attrs = append(attrs, attribute.Int("decision.days_remaining", daysRemaining))
	}
	if idleDays >= 0 {
		attrs = append(attrs, attribute.Int("workspace.idle_days", idleDays))
	}

	span.AddEvent("lifecycle.decision", trace.WithAttributes(attrs...))
}

// RecordActionEvent adds a lifecycle.action event to span
func RecordActionEvent(
	span trace.Span,
	action string,
	workspaceID string,
	status string,
	dryRun bool,
	errorMsg string,
) {
	if span == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("event.type", "lifecycle.action"),
		attribute.String("action.type", action),
		attribute.String("workspace.id", workspaceID),
		attribute.String("status", status),
		attribute.Bool("dry_run", dryRun),
	}

	if errorMsg != "" {
		attrs = append(attrs, attribute.String("error", errorMsg))
	}

	span.AddEvent("lifecycle.action", trace.WithAttributes(attrs...))
}

// CycleCounts is the subset of a cycle summary carried by the completion event.
type CycleCounts struct {
	Scanned              int
	NoAction             int
	Warned               int
	Terminated           int
	Skipped              int
	Failed               int
	NotificationFailures int
}

// RecordCycleCompletedEvent adds a lifecycle.cycle.completed event to span
func RecordCycleCompletedEvent(span trace.Span, c CycleCounts, durationSeconds float64, dryRun bool) {
	if span == nil {
		return
	}

	span.AddEvent("lifecycle.cycle.completed", trace.WithAttributes(
		attribute.String("event.type", "lifecycle.cycle.completed"),
		attribute.Int("workspaces.scanned", c.Scanned),
		attribute.Int("workspaces.no_action", c.NoAction),
		attribute.Int("workspaces.warned", c.Warned),
		attribute.Int("workspaces.terminated", c.Terminated),
		attribute.Int("workspaces.skipped", c.Skipped),
		attribute.Int("workspaces.failed", c.Failed),
		attribute.Int("notifications.failed", c.NotificationFailures),
		attribute.Float64("duration.seconds", durationSeconds),
		attribute.Bool("dry_run", dryRun),
	))
}
