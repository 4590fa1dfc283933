package tagger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/wsreap/inventory"
	"github.com/yairfalse/wsreap/inventory/inventorytest"
	"github.com/yairfalse/wsreap/lifecycle"
)

const singleCreate = `{
  "eventName": "CreateWorkspaces",
  "responseElements": {"workspaceId": "ws-single"}
}`

const batchCreate = `{
  "eventName": "CreateWorkspaces",
  "responseElements": {
    "failedRequests": [],
    "pendingRequests": [
      {"workspaceId": "ws-1", "state": "PENDING"},
      {"workspaceId": "ws-2", "state": "PENDING"},
      {"workspaceId": "ws-1", "state": "PENDING"}
    ]
  }
}`

func TestWorkspaceIDs(t *testing.T) {
	tests := []struct {
		name    string
		detail  string
		want    []string
		wantErr error
	}{
		{"single", singleCreate, []string{"ws-single"}, nil},
		{"batch deduplicated", batchCreate, []string{"ws-1", "ws-2"}, nil},
		{"no ids", `{"responseElements": {"pendingRequests": []}}`, nil, ErrNoWorkspaceID},
		{"null response", `{"responseElements": null}`, nil, ErrNoWorkspaceID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WorkspaceIDs([]byte(tt.detail))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWorkspaceIDs_Malformed(t *testing.T) {
	_, err := WorkspaceIDs([]byte(`{not json`))
	assert.Error(t, err)
}

func TestHandleCreateEvent_TagsOnceWithToday(t *testing.T) {
	p := inventorytest.New()
	h := NewHandler(p).WithClock(lifecycle.FixedClock(time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC)))

	tagged, err := h.HandleCreateEvent(context.Background(), json.RawMessage(singleCreate))

	require.NoError(t, err)
	assert.Equal(t, []string{"ws-single"}, tagged)
	require.Len(t, p.TagCalls, 1)
	assert.Equal(t, inventorytest.TagCall{ID: "ws-single", Key: "CreatedDate", Value: "2025-06-15"}, p.TagCalls[0])
}

func TestHandleCreateEvent_NoRetryOnFailure(t *testing.T) {
	p := inventorytest.New()
	p.FailWith("Tag:ws-1", errors.New("throttled"))
	h := NewHandler(p).WithClock(lifecycle.FixedClock(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)))

	tagged, err := h.HandleCreateEvent(context.Background(), json.RawMessage(batchCreate))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ws-1")
	assert.Equal(t, []string{"ws-2"}, tagged)
	assert.Equal(t, 1, p.CallCount("Tag:ws-1"))
}

func TestHandleCreateEvent_BadEvent(t *testing.T) {
	p := inventorytest.New()

	_, err := NewHandler(p).HandleCreateEvent(context.Background(), json.RawMessage(`{}`))

	assert.ErrorIs(t, err, ErrNoWorkspaceID)
	assert.Empty(t, p.Calls)
}

func TestTagWorkspaces_Manual(t *testing.T) {
	p := inventorytest.New()
	h := NewHandler(p).WithClock(lifecycle.FixedClock(time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)))

	tagged, err := h.TagWorkspaces(context.Background(), "ws-a", "ws-b")

	require.NoError(t, err)
	assert.Equal(t, []string{"ws-a", "ws-b"}, tagged)
	assert.Equal(t, []inventorytest.TagCall{
		{ID: "ws-a", Key: inventory.CreatedDateTag, Value: "2025-07-01"},
		{ID: "ws-b", Key: inventory.CreatedDateTag, Value: "2025-07-01"},
	}, p.TagCalls)
}
