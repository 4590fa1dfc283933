package tagger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yairfalse/wsreap/internal/backoff"
	"github.com/yairfalse/wsreap/inventory"
	"github.com/yairfalse/wsreap/telemetry"
)

// Event is one CreateWorkspaces record from the audit trail.
type Event struct {
	ID     string
	Time   time.Time
	Detail json.RawMessage
}

// EventPage is one page of creation events.
type EventPage struct {
	Events []Event
	// NextToken is empty on the last page.
	NextToken string
}

// EventSource pages through creation events between since and until.
type EventSource interface {
	CreationEvents(ctx context.Context, since, until time.Time, token string) (EventPage, error)
}

// TagStore reads and writes workspace tags. Tags returns
// inventory.ErrNotFound for workspaces that no longer exist.
type TagStore interface {
	Tagger
	Tags(ctx context.Context, id string) (map[string]string, error)
}

// BackfillResult counts what a backfill did.
type BackfillResult struct {
	Events        int  `json:"events" yaml:"events"`
	Tagged        int  `json:"tagged" yaml:"tagged"`
	AlreadyTagged int  `json:"already_tagged" yaml:"already_tagged"`
	Missing       int  `json:"missing" yaml:"missing"`
	Failed        int  `json:"failed" yaml:"failed"`
	DryRun        bool `json:"dry_run" yaml:"dry_run"`
}

// Backfiller tags workspaces that were created before the tag-on-create
// handler was in place, using the creation event's date.
type Backfiller struct {
	events EventSource
	store  TagStore
	exec   *backoff.Executor
	dryRun bool
	logger *telemetry.Logger
}

// NewBackfiller creates a backfiller. Every remote call goes through exec.
func NewBackfiller(events EventSource, store TagStore, exec *backoff.Executor, dryRun bool) *Backfiller {
	return &Backfiller{
		events: events,
		store:  store,
		exec:   exec,
		dryRun: dryRun,
		logger: telemetry.NewLogger("backfill"),
	}
}

// Backfill walks creation events since the given time. A page failure ends
// the walk; per-workspace failures are counted and skipped.
func (b *Backfiller) Backfill(ctx context.Context, since time.Time) (*BackfillResult, error) {
	logger := b.logger.WithContext(ctx)
	result := &BackfillResult{DryRun: b.dryRun}
	seen := make(map[string]bool)
	// Every page of one walk must ask for the same window.
	until := time.Now().UTC()

	token := ""
	for {
		page, err := backoff.Do(ctx, b.exec, "CreationEvents", func(ctx context.Context) (EventPage, error) {
			return b.events.CreationEvents(ctx, since, until, token)
		})
		if err != nil {
			return result, fmt.Errorf("creation events: %w", err)
		}

		for _, ev := range page.Events {
			result.Events++
			ids, err := WorkspaceIDs(ev.Detail)
			if err != nil {
				logger.Warn().Err(err).Str("event_id", ev.ID).Msg("skipping creation event")
				continue
			}
			for _, id := range ids {
				if seen[id] {
					continue
				}
				seen[id] = true
				b.backfillOne(ctx, id, ev.Time, result)
			}
		}

		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	logger.Info().
		Int("events", result.Events).
		Int("tagged", result.Tagged).
		Int("already_tagged", result.AlreadyTagged).
		Int("missing", result.Missing).
		Int("failed", result.Failed).
		Bool("dry_run", result.DryRun).
		Msg("backfill complete")

	return result, nil
}

func (b *Backfiller) backfillOne(ctx context.Context, id string, created time.Time, result *BackfillResult) {
	logger := b.logger.WithContext(ctx)

	tags, err := backoff.Do(ctx, b.exec, "Tags", func(ctx context.Context) (map[string]string, error) {
		return b.store.Tags(ctx, id)
	})
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		result.Missing++
		return
	case err != nil:
		result.Failed++
		logger.Warn().Err(err).Str("workspace_id", id).Msg("reading tags failed")
		return
	}

	if _, ok := tags[inventory.CreationDateTag]; ok {
		result.AlreadyTagged++
		return
	}
	if _, ok := tags[inventory.CreatedDateTag]; ok {
		result.AlreadyTagged++
		return
	}

	date := created.UTC().Format(inventory.CreationDateLayout)
	if b.dryRun {
		result.Tagged++
		logger.Info().Str("workspace_id", id).Str("created_date", date).Msg("dry run: would tag workspace")
		return
	}

	err = b.exec.Run(ctx, "Tag", func(ctx context.Context) error {
		return b.store.Tag(ctx, id, inventory.CreatedDateTag, date)
	})
	if err != nil {
		result.Failed++
		logger.Warn().Err(err).Str("workspace_id", id).Msg("tagging failed")
		return
	}
	result.Tagged++
	logger.Info().Str("workspace_id", id).Str("created_date", date).Msg("workspace backfilled")
}
