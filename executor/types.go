package executor

import (
	"context"
	"errors"

	"github.com/yairfalse/wsreap/lifecycle"
)

// Status is the result of applying one decision
type Status string

const (
	StatusNoAction   Status = "no_action"
	StatusWarned     Status = "warned"
	StatusTerminated Status = "terminated"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

var (
	// ErrTerminationFailed marks an outcome whose termination call failed.
	// No notification is sent in that case.
	ErrTerminationFailed = errors.New("termination failed")

	// ErrNotificationFailed marks an outcome whose e-mail could not be sent.
	ErrNotificationFailed = errors.New("notification failed")
)

// Outcome is what Apply did for one workspace
type Outcome struct {
	ResourceID string             `json:"resource_id"`
	Decision   lifecycle.Decision `json:"decision"`
	Status     Status             `json:"status"`
	Err        error              `json:"-"`
	// DryRun is set when the side effects were only logged. Status then
	// reports what would have happened.
	DryRun bool `json:"dry_run,omitempty"`
}

// NotificationFailed reports whether the outcome carries a failed e-mail.
func (o Outcome) NotificationFailed() bool {
	return errors.Is(o.Err, ErrNotificationFailed)
}

// Terminator removes a workspace.
type Terminator interface {
	Terminate(ctx context.Context, id string) error
}

// Options configure dispatcher behavior
type Options struct {
	// Domain completes owner addresses (<owner>@<domain>).
	Domain string `json:"domain"`
	// AdminEmail is copied on every notification when set.
	AdminEmail string `json:"admin_email"`
	DryRun     bool   `json:"dry_run"`
}
