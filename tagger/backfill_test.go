package tagger

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/wsreap/internal/backoff"
	"github.com/yairfalse/wsreap/inventory"
	"github.com/yairfalse/wsreap/inventory/inventorytest"
)

// mockEventSource serves fixed pages of creation events.
type mockEventSource struct {
	pages [][]Event
	errs  []error
	calls  int
	since  time.Time
	untils []time.Time
}

func (m *mockEventSource) CreationEvents(ctx context.Context, since, until time.Time, token string) (EventPage, error) {
	m.calls++
	m.since = since
	m.untils = append(m.untils, until)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return EventPage{}, err
	}

	idx := 0
	if token != "" {
		idx, _ = strconv.Atoi(token)
	}
	if idx >= len(m.pages) {
		return EventPage{}, nil
	}
	page := EventPage{Events: m.pages[idx]}
	if idx+1 < len(m.pages) {
		page.NextToken = strconv.Itoa(idx + 1)
	}
	return page, nil
}

func createEvent(id string, at time.Time, wsIDs ...string) Event {
	type pending struct {
		WorkspaceID string `json:"workspaceId"`
	}
	var reqs []pending
	for _, ws := range wsIDs {
		reqs = append(reqs, pending{WorkspaceID: ws})
	}
	detail, _ := json.Marshal(map[string]any{
		"responseElements": map[string]any{"pendingRequests": reqs},
	})
	return Event{ID: id, Time: at, Detail: detail}
}

func testExec() *backoff.Executor {
	return backoff.New(backoff.Policy{MaxAttempts: 5, InitialDelay: time.Millisecond, Multiplier: 2})
}

var created = time.Date(2024, 11, 3, 17, 30, 0, 0, time.UTC)

func TestBackfill_TagsUntaggedWorkspaces(t *testing.T) {
	store := inventorytest.New()
	store.AddPage("ws-new", "ws-tagged", "ws-legacy")
	store.SetTag("ws-tagged", inventory.CreatedDateTag, "2024-11-01")
	store.SetTag("ws-legacy", inventory.CreationDateTag, "2024-10-01")

	events := &mockEventSource{pages: [][]Event{
		{createEvent("e1", created, "ws-new", "ws-tagged")},
		{createEvent("e2", created, "ws-legacy", "ws-gone"), createEvent("e3", created, "ws-new")},
	}}
	since := created.AddDate(0, -1, 0)

	result, err := NewBackfiller(events, store, testExec(), false).Backfill(context.Background(), since)

	require.NoError(t, err)
	assert.Equal(t, since, events.since)
	assert.Equal(t, 3, result.Events)
	assert.Equal(t, 1, result.Tagged)
	assert.Equal(t, 2, result.AlreadyTagged)
	assert.Equal(t, 1, result.Missing)
	assert.Zero(t, result.Failed)

	require.Len(t, store.TagCalls, 1)
	assert.Equal(t, inventorytest.TagCall{ID: "ws-new", Key: "CreatedDate", Value: "2024-11-03"}, store.TagCalls[0])
}

func TestBackfill_WindowFixedAcrossPages(t *testing.T) {
	store := inventorytest.New()
	store.AddPage("ws-1", "ws-2")
	events := &mockEventSource{pages: [][]Event{
		{createEvent("e1", created, "ws-1")},
		{createEvent("e2", created, "ws-2")},
	}}
	before := time.Now()

	_, err := NewBackfiller(events, store, testExec(), true).Backfill(context.Background(), created)

	require.NoError(t, err)
	require.Len(t, events.untils, 2)
	assert.Equal(t, events.untils[0], events.untils[1])
	assert.False(t, events.untils[0].Before(before.Truncate(time.Second)))
}

func TestBackfill_DryRun(t *testing.T) {
	store := inventorytest.New()
	store.AddPage("ws-new")
	events := &mockEventSource{pages: [][]Event{{createEvent("e1", created, "ws-new")}}}

	result, err := NewBackfiller(events, store, testExec(), true).Backfill(context.Background(), created)

	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Tagged)
	assert.Empty(t, store.TagCalls)
}

func TestBackfill_ThrottledPageRetried(t *testing.T) {
	store := inventorytest.New()
	store.AddPage("ws-new")
	events := &mockEventSource{
		pages: [][]Event{{createEvent("e1", created, "ws-new")}},
		errs:  []error{backoff.ErrThrottled},
	}

	result, err := NewBackfiller(events, store, testExec(), false).Backfill(context.Background(), created)

	require.NoError(t, err)
	assert.Equal(t, 2, events.calls)
	assert.Equal(t, 1, result.Tagged)
}

func TestBackfill_PageFailureStops(t *testing.T) {
	events := &mockEventSource{errs: []error{errors.New("access denied")}}

	_, err := NewBackfiller(events, inventorytest.New(), testExec(), false).Backfill(context.Background(), created)

	assert.Error(t, err)
}

func TestBackfill_PerWorkspaceFailuresCounted(t *testing.T) {
	store := inventorytest.New()
	store.AddPage("ws-a", "ws-b")
	store.FailWith("Tags:ws-a", errors.New("boom"))
	store.FailWith("Tag:ws-b", errors.New("denied"))
	events := &mockEventSource{pages: [][]Event{
		{createEvent("e1", created, "ws-a", "ws-b"), {ID: "bad", Detail: json.RawMessage(`{}`)}},
	}}

	result, err := NewBackfiller(events, store, testExec(), false).Backfill(context.Background(), created)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Failed)
	assert.Zero(t, result.Tagged)
	assert.Equal(t, 2, result.Events)
}
