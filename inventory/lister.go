package inventory

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/wsreap/internal/backoff"
)

// ErrNoConnectionStatus is the skip cause for a workspace the connection
// status query did not report on.
var ErrNoConnectionStatus = errors.New("no connection status reported")

// Lister pages through the fleet and enriches every workspace with its
// connection status, details and, when never connected, its creation date.
type Lister struct {
	provider Provider
	exec     *backoff.Executor
}

// NewLister creates a lister. Every provider call goes through exec.
func NewLister(provider Provider, exec *backoff.Executor) *Lister {
	return &Lister{provider: provider, exec: exec}
}

// All lazily yields one record per workspace. Pages are fetched as the
// sequence is consumed, so it cannot be restarted.
//
// A per-workspace failure is yielded as a *SkipError and the scan goes on.
// Any other error is fatal and ends the sequence.
func (l *Lister) All(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		token := ""
		for {
			page, err := backoff.Do(ctx, l.exec, "ListPage", func(ctx context.Context) (Page, error) {
				return l.provider.ListPage(ctx, token)
			})
			if err != nil {
				yield(Record{}, fmt.Errorf("list workspaces: %w", err))
				return
			}

			if !l.yieldPage(ctx, page, yield) {
				return
			}

			if page.NextToken == "" {
				return
			}
			token = page.NextToken
		}
	}
}

func (l *Lister) yieldPage(ctx context.Context, page Page, yield func(Record, error) bool) bool {
	if len(page.Workspaces) == 0 {
		return true
	}

	ids := make([]string, 0, len(page.Workspaces))
	for _, ws := range page.Workspaces {
		ids = append(ids, ws.ID)
	}

	statuses, err := backoff.Do(ctx, l.exec, "ConnectionStatus", func(ctx context.Context) (map[string]ConnectionStatus, error) {
		return l.provider.ConnectionStatus(ctx, ids)
	})
	if err != nil {
		yield(Record{}, fmt.Errorf("connection status for %d workspaces: %w", len(ids), err))
		return false
	}

	log.Debug().Ctx(ctx).Int("workspaces", len(ids)).Msg("page listed")

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			yield(Record{}, err)
			return false
		}

		rec, err := l.lookup(ctx, id, statuses)
		if err != nil {
			if !yield(Record{ID: id}, &SkipError{ID: id, Err: err}) {
				return false
			}
			continue
		}
		if !yield(rec, nil) {
			return false
		}
	}
	return true
}

func (l *Lister) lookup(ctx context.Context, id string, statuses map[string]ConnectionStatus) (Record, error) {
	status, ok := statuses[id]
	if !ok {
		return Record{}, ErrNoConnectionStatus
	}

	ws, err := backoff.Do(ctx, l.exec, "Describe", func(ctx context.Context) (Workspace, error) {
		return l.provider.Describe(ctx, id)
	})
	if err != nil {
		return Record{}, fmt.Errorf("describe: %w", err)
	}

	rec := Record{
		ID:             id,
		Owner:          ws.UserName,
		ComputerName:   ws.ComputerName,
		DirectoryID:    ws.DirectoryID,
		State:          ws.State,
		LastConnection: status.LastConnection,
	}

	// Only the never-connected branch of the classifier reads the creation
	// date, so connected workspaces skip the tag lookup.
	if rec.LastConnection != nil {
		return rec, nil
	}

	tags, err := backoff.Do(ctx, l.exec, "Tags", func(ctx context.Context) (map[string]string, error) {
		return l.provider.Tags(ctx, id)
	})
	if err != nil {
		return Record{}, fmt.Errorf("tags: %w", err)
	}

	created, ok, err := ParseCreationDate(tags)
	if err != nil {
		log.Warn().Ctx(ctx).Err(err).Str("workspace_id", id).Msg("ignoring unparsable creation date")
	}
	if ok {
		rec.CreationDate = &created
	}
	return rec, nil
}
