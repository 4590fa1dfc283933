// Package tagger stamps new workspaces with their creation date.
package tagger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yairfalse/wsreap/inventory"
	"github.com/yairfalse/wsreap/lifecycle"
	"github.com/yairfalse/wsreap/telemetry"
)

// ErrNoWorkspaceID is returned for a creation event without workspace ids.
var ErrNoWorkspaceID = errors.New("no workspace id in creation event")

// Tagger writes one tag on a workspace.
type Tagger interface {
	Tag(ctx context.Context, id, key, value string) error
}

// createDetail is the part of a CreateWorkspaces CloudTrail record we read.
type createDetail struct {
	ResponseElements struct {
		WorkspaceID     string `json:"workspaceId"`
		PendingRequests []struct {
			WorkspaceID string `json:"workspaceId"`
		} `json:"pendingRequests"`
	} `json:"responseElements"`
}

// WorkspaceIDs extracts the created workspace ids from a CreateWorkspaces
// CloudTrail record.
func WorkspaceIDs(detail []byte) ([]string, error) {
	var d createDetail
	if err := json.Unmarshal(detail, &d); err != nil {
		return nil, fmt.Errorf("decode creation event: %w", err)
	}

	var ids []string
	seen := make(map[string]bool)
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	add(d.ResponseElements.WorkspaceID)
	for _, p := range d.ResponseElements.PendingRequests {
		add(p.WorkspaceID)
	}

	if len(ids) == 0 {
		return nil, ErrNoWorkspaceID
	}
	return ids, nil
}

// Handler tags workspaces named by creation events.
type Handler struct {
	tagger Tagger
	clock  lifecycle.Clock
	logger *telemetry.Logger
}

// NewHandler creates a handler that tags with today's UTC date.
func NewHandler(t Tagger) *Handler {
	return &Handler{
		tagger: t,
		clock:  lifecycle.SystemClock{},
		logger: telemetry.NewLogger("tagger"),
	}
}

// WithClock sets the clock that supplies "today".
func (h *Handler) WithClock(c lifecycle.Clock) *Handler {
	h.clock = c
	return h
}

// HandleCreateEvent tags every workspace in detail once with CreatedDate.
// A failed tag call is not retried. The ids that were tagged are returned
// even when some failed.
func (h *Handler) HandleCreateEvent(ctx context.Context, detail json.RawMessage) ([]string, error) {
	ids, err := WorkspaceIDs(detail)
	if err != nil {
		return nil, err
	}
	return h.TagWorkspaces(ctx, ids...)
}

// TagWorkspaces sets CreatedDate to today on each id, once, with no retry.
func (h *Handler) TagWorkspaces(ctx context.Context, ids ...string) ([]string, error) {
	today := h.clock.Now().Format(inventory.CreationDateLayout)

	var tagged []string
	var errs []error
	for _, id := range ids {
		if err := h.tagger.Tag(ctx, id, inventory.CreatedDateTag, today); err != nil {
			errs = append(errs, fmt.Errorf("tag %s: %w", id, err))
			continue
		}
		tagged = append(tagged, id)
		h.logger.WithContext(ctx).Info().
			Str("workspace_id", id).
			Str("created_date", today).
			Msg("workspace tagged")
	}

	return tagged, errors.Join(errs...)
}
