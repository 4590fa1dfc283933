// Package notify turns lifecycle decisions into owner e-mails.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/yairfalse/wsreap/inventory"
	"github.com/yairfalse/wsreap/lifecycle"
)

// Subject is shared by every notification.
const Subject = "Workspace Notification"

// ErrNoTemplate is returned for a decision that has no message, including
// NoAction.
var ErrNoTemplate = errors.New("no message template for decision")

// Sender delivers one HTML message.
type Sender interface {
	Send(ctx context.Context, to []string, subject, html string) error
}

// Message is a composed notification.
type Message struct {
	Subject string
	HTML    string
}

type messageData struct {
	Thresholds     lifecycle.Thresholds
	DaysRemaining  int
	WorkspaceID    string
	ComputerName   string
	UserName       string
	Email          string
	LastConnection string
}

// Compose renders the message for an actionable decision. Every Warn and
// Terminate variant has exactly one template.
func Compose(rec inventory.Record, d lifecycle.Decision, th lifecycle.Thresholds, now time.Time, domain string) (Message, error) {
	name, err := templateName(d)
	if err != nil {
		return Message{}, err
	}

	data := messageData{
		Thresholds:     th,
		DaysRemaining:  d.DaysRemaining,
		WorkspaceID:    rec.ID,
		ComputerName:   rec.ComputerName,
		UserName:       rec.Owner,
		Email:          rec.ContactAddress(domain),
		LastConnection: lastConnection(rec.LastConnection, now),
	}
	if data.UserName == "" {
		data.UserName = "Unknown"
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Message{Subject: Subject, HTML: buf.String()}, nil
}

func templateName(d lifecycle.Decision) (string, error) {
	switch d.Kind {
	case lifecycle.KindWarn:
		return "warn", nil
	case lifecycle.KindTerminate:
		switch d.Reason {
		case lifecycle.ReasonNeverUsedGraceExpired:
			return "terminated-never-used", nil
		case lifecycle.ReasonCutoffExceeded:
			return "terminated-idle", nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoTemplate, d)
}

func lastConnection(t *time.Time, now time.Time) string {
	if t == nil {
		return "Never"
	}
	return fmt.Sprintf("%s (%s)",
		t.UTC().Format("2006-01-02 15:04 MST"),
		humanize.RelTime(*t, now, "ago", "from now"))
}
