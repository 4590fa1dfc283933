// Package inventorytest provides an in-memory inventory.Provider for tests.
package inventorytest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/yairfalse/wsreap/inventory"
)

// TagCall records one Tag invocation.
type TagCall struct {
	ID    string
	Key   string
	Value string
}

// Provider is a scripted fleet. Errors queued under an operation key are
// returned, one per call, before the call succeeds. Keys are
// "ListPage:<page index>", "ConnectionStatus", "Describe:<id>",
// "Tags:<id>", "Terminate:<id>" and "Tag:<id>".
type Provider struct {
	mu sync.Mutex

	Pages [][]inventory.Workspace
	// Connections maps id to last connection; a nil value means never
	// connected and a missing id is left out of the status response.
	Connections map[string]*time.Time
	TagSets     map[string]map[string]string
	Errors      map[string][]error

	Calls      []string
	Terminated []string
	TagCalls   []TagCall
}

// New creates an empty fake.
func New() *Provider {
	return &Provider{
		Connections: make(map[string]*time.Time),
		TagSets:     make(map[string]map[string]string),
		Errors:      make(map[string][]error),
	}
}

// AddPage appends a page of workspaces owned by user "<id>-user".
func (p *Provider) AddPage(ids ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	page := make([]inventory.Workspace, 0, len(ids))
	for _, id := range ids {
		page = append(page, inventory.Workspace{
			ID:           id,
			UserName:     id + "-user",
			ComputerName: "WSAMZN-" + id,
			DirectoryID:  "d-123",
			State:        "AVAILABLE",
		})
	}
	p.Pages = append(p.Pages, page)
}

// SetConnection sets the last connection of id; nil means never connected.
func (p *Provider) SetConnection(id string, last *time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Connections[id] = last
}

// SetTag sets one tag on id.
func (p *Provider) SetTag(id, key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.TagSets[id] == nil {
		p.TagSets[id] = make(map[string]string)
	}
	p.TagSets[id][key] = value
}

// FailWith queues errors for an operation key.
func (p *Provider) FailWith(key string, errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Errors[key] = append(p.Errors[key], errs...)
}

// CallCount returns how many calls were made for an operation key.
func (p *Provider) CallCount(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Calls {
		if c == key {
			n++
		}
	}
	return n
}

// TerminatedIDs returns a copy of the terminated ids.
func (p *Provider) TerminatedIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Terminated...)
}

func (p *Provider) pop(key string) error {
	p.Calls = append(p.Calls, key)
	errs := p.Errors[key]
	if len(errs) == 0 {
		return nil
	}
	p.Errors[key] = errs[1:]
	return errs[0]
}

func (p *Provider) known(id string) bool {
	for _, page := range p.Pages {
		for _, ws := range page {
			if ws.ID == id {
				return true
			}
		}
	}
	return false
}

func (p *Provider) ListPage(ctx context.Context, token string) (inventory.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := 0
	if token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			return inventory.Page{}, fmt.Errorf("bad token %q", token)
		}
		idx = n
	}
	if err := p.pop("ListPage:" + strconv.Itoa(idx)); err != nil {
		return inventory.Page{}, err
	}
	if idx >= len(p.Pages) {
		return inventory.Page{}, nil
	}

	page := inventory.Page{Workspaces: append([]inventory.Workspace(nil), p.Pages[idx]...)}
	if idx+1 < len(p.Pages) {
		page.NextToken = strconv.Itoa(idx + 1)
	}
	return page, nil
}

func (p *Provider) ConnectionStatus(ctx context.Context, ids []string) (map[string]inventory.ConnectionStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.pop("ConnectionStatus"); err != nil {
		return nil, err
	}
	out := make(map[string]inventory.ConnectionStatus, len(ids))
	for _, id := range ids {
		last, ok := p.Connections[id]
		if !ok {
			continue
		}
		out[id] = inventory.ConnectionStatus{LastConnection: last}
	}
	return out, nil
}

func (p *Provider) Describe(ctx context.Context, id string) (inventory.Workspace, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.pop("Describe:" + id); err != nil {
		return inventory.Workspace{}, err
	}
	for _, page := range p.Pages {
		for _, ws := range page {
			if ws.ID == id {
				return ws, nil
			}
		}
	}
	return inventory.Workspace{}, inventory.ErrNotFound
}

func (p *Provider) Tags(ctx context.Context, id string) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.pop("Tags:" + id); err != nil {
		return nil, err
	}
	if _, ok := p.TagSets[id]; !ok && !p.known(id) {
		return nil, inventory.ErrNotFound
	}
	out := make(map[string]string, len(p.TagSets[id]))
	for k, v := range p.TagSets[id] {
		out[k] = v
	}
	return out, nil
}

func (p *Provider) Terminate(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.pop("Terminate:" + id); err != nil {
		return err
	}
	p.Terminated = append(p.Terminated, id)
	return nil
}

// Tag sets a tag and records the call.
func (p *Provider) Tag(ctx context.Context, id, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.pop("Tag:" + id); err != nil {
		return err
	}
	p.TagCalls = append(p.TagCalls, TagCall{ID: id, Key: key, Value: value})
	if p.TagSets[id] == nil {
		p.TagSets[id] = make(map[string]string)
	}
	p.TagSets[id][key] = value
	return nil
}
