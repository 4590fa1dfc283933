// Package lifecycle decides what happens to a workspace based on how
// recently it was used.
package lifecycle

import (
	"fmt"
	"time"
)

// Thresholds are the day counts that drive classification. They are read
// once per cycle and never mutated.
type Thresholds struct {
	WarnDays           int `json:"warn_days" yaml:"warn_days"`
	CutoffDays         int `json:"cutoff_days" yaml:"cutoff_days"`
	NeverUsedGraceDays int `json:"never_used_grace_days" yaml:"never_used_grace_days"`
}

// DefaultThresholds returns the stock 85/90/14 day policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WarnDays:           85,
		CutoffDays:         90,
		NeverUsedGraceDays: 14,
	}
}

// Validate checks the thresholds are usable.
func (t Thresholds) Validate() error {
	if t.WarnDays <= 0 {
		return fmt.Errorf("warn_days must be positive (got %d)", t.WarnDays)
	}
	if t.CutoffDays <= 0 {
		return fmt.Errorf("cutoff_days must be positive (got %d)", t.CutoffDays)
	}
	if t.NeverUsedGraceDays <= 0 {
		return fmt.Errorf("never_used_grace_days must be positive (got %d)", t.NeverUsedGraceDays)
	}
	if t.CutoffDays <= t.WarnDays {
		return fmt.Errorf("cutoff_days (%d) must be greater than warn_days (%d)", t.CutoffDays, t.WarnDays)
	}
	return nil
}

// Kind is the decision variant.
type Kind int

const (
	KindNoAction Kind = iota
	KindWarn
	KindTerminate
)

func (k Kind) String() string {
	switch k {
	case KindNoAction:
		return "no_action"
	case KindWarn:
		return "warn"
	case KindTerminate:
		return "terminate"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Reason explains a termination.
type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonNeverUsedGraceExpired Reason = "never-used-grace-expired"
	ReasonCutoffExceeded        Reason = "cutoff-exceeded"
)

// Decision is the output of Classify. Only the fields matching Kind are set.
type Decision struct {
	Kind          Kind   `json:"kind"`
	DaysRemaining int    `json:"days_remaining,omitempty"`
	Reason        Reason `json:"reason,omitempty"`
}

// NoAction leaves the workspace alone.
func NoAction() Decision {
	return Decision{Kind: KindNoAction}
}

// Warn notifies the owner that termination is daysRemaining days away.
func Warn(daysRemaining int) Decision {
	return Decision{Kind: KindWarn, DaysRemaining: daysRemaining}
}

// Terminate removes the workspace for the given reason.
func Terminate(reason Reason) Decision {
	return Decision{Kind: KindTerminate, Reason: reason}
}

// IsAction reports whether the decision has side effects.
func (d Decision) IsAction() bool {
	return d.Kind != KindNoAction
}

func (d Decision) String() string {
	switch d.Kind {
	case KindWarn:
		return fmt.Sprintf("warn(%d days remaining)", d.DaysRemaining)
	case KindTerminate:
		return fmt.Sprintf("terminate(%s)", d.Reason)
	default:
		return d.Kind.String()
	}
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant. Useful in tests and for
// replaying a cycle as of a given date.
type FixedClock time.Time

// Now returns the fixed instant in UTC.
func (c FixedClock) Now() time.Time {
	return time.Time(c).UTC()
}
