package orchestrator

import (
	"time"

	"github.com/yairfalse/wsreap/executor"
	"github.com/yairfalse/wsreap/telemetry"
)

// Summary contains the results of a lifecycle cycle
type Summary struct {
	StartTime            time.Time     `json:"start_time" yaml:"start_time"`
	EndTime              time.Time     `json:"end_time" yaml:"end_time"`
	Duration             time.Duration `json:"duration" yaml:"duration"`
	Scanned              int           `json:"scanned" yaml:"scanned"`
	NoAction             int           `json:"no_action" yaml:"no_action"`
	Warned               int           `json:"warned" yaml:"warned"`
	Terminated           int           `json:"terminated" yaml:"terminated"`
	Skipped              int           `json:"skipped" yaml:"skipped"`
	Failed               int           `json:"failed" yaml:"failed"`
	NotificationFailures int           `json:"notification_failures" yaml:"notification_failures"`
	DryRun               bool          `json:"dry_run" yaml:"dry_run"`
	Errors               []string      `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func (s *Summary) add(out executor.Outcome) {
	switch out.Status {
	case executor.StatusNoAction:
		s.NoAction++
	case executor.StatusWarned:
		s.Warned++
	case executor.StatusTerminated:
		s.Terminated++
	case executor.StatusSkipped:
		s.Skipped++
	case executor.StatusFailed:
		s.Failed++
	}
	if out.NotificationFailed() {
		s.NotificationFailures++
	}
	if out.Err != nil {
		s.Errors = append(s.Errors, out.ResourceID+": "+out.Err.Error())
	}
}

// Counts returns the counters carried by the completion span event.
func (s *Summary) Counts() telemetry.CycleCounts {
	return telemetry.CycleCounts{
		Scanned:              s.Scanned,
		NoAction:             s.NoAction,
		Warned:               s.Warned,
		Terminated:           s.Terminated,
		Skipped:              s.Skipped,
		Failed:               s.Failed,
		NotificationFailures: s.NotificationFailures,
	}
}
