// Package inventory enumerates the workspace fleet.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yairfalse/wsreap/lifecycle"
)

// Tag keys that carry a workspace's creation date (YYYY-MM-DD). The first
// one found wins.
const (
	CreationDateTag    = "Creation Date"
	CreatedDateTag     = "CreatedDate"
	CreationDateLayout = "2006-01-02"
)

// Record is one fleet member as seen by a single scan.
type Record struct {
	ID             string     `json:"id"`
	Owner          string     `json:"owner,omitempty"`
	ComputerName   string     `json:"computer_name,omitempty"`
	DirectoryID    string     `json:"directory_id,omitempty"`
	State          string     `json:"state,omitempty"`
	CreationDate   *time.Time `json:"creation_date,omitempty"`
	LastConnection *time.Time `json:"last_connection,omitempty"`
}

// ContactAddress is the owner's mailbox in domain, or the domain's noreply
// mailbox when the owner is unknown.
func (r Record) ContactAddress(domain string) string {
	if r.Owner == "" {
		return "noreply@" + domain
	}
	return r.Owner + "@" + domain
}

// ClassifierInput returns the fields the lifecycle classifier reads.
func (r Record) ClassifierInput() lifecycle.Input {
	return lifecycle.Input{
		LastConnection: r.LastConnection,
		CreationDate:   r.CreationDate,
	}
}

// Workspace is a row of a listing page or a detail lookup.
type Workspace struct {
	ID           string
	UserName     string
	ComputerName string
	DirectoryID  string
	State        string
}

// Page is one page of the fleet listing.
type Page struct {
	Workspaces []Workspace
	// NextToken is empty on the last page.
	NextToken string
}

// ConnectionStatus is the provider-reported usage of one workspace.
type ConnectionStatus struct {
	// LastConnection is nil when the workspace never had a user session.
	LastConnection *time.Time
}

// Provider is the remote fleet inventory.
type Provider interface {
	ListPage(ctx context.Context, token string) (Page, error)
	// ConnectionStatus returns an entry for each id the provider knows.
	ConnectionStatus(ctx context.Context, ids []string) (map[string]ConnectionStatus, error)
	// Describe returns ErrNotFound when the workspace no longer exists.
	Describe(ctx context.Context, id string) (Workspace, error)
	Tags(ctx context.Context, id string) (map[string]string, error)
	Terminate(ctx context.Context, id string) error
}

// ErrNotFound is returned by Describe for vanished workspaces.
var ErrNotFound = errors.New("workspace not found")

// ErrDetailLookupFailed matches every SkipError.
var ErrDetailLookupFailed = errors.New("detail lookup failed")

// SkipError excludes one workspace from this cycle without stopping the scan.
type SkipError struct {
	ID  string
	Err error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("workspace %s: %v: %v", e.ID, ErrDetailLookupFailed, e.Err)
}

func (e *SkipError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrDetailLookupFailed) match.
func (e *SkipError) Is(target error) bool {
	return target == ErrDetailLookupFailed
}

// ParseCreationDate reads the creation date from a workspace's tags. The
// second result is false when no usable tag is present. An unparsable tag
// falls through to the next key; its error is returned only when no key
// parses.
func ParseCreationDate(tags map[string]string) (time.Time, bool, error) {
	var errs []error
	for _, key := range []string{CreationDateTag, CreatedDateTag} {
		v, ok := tags[key]
		if !ok {
			continue
		}
		t, err := time.ParseInLocation(CreationDateLayout, v, time.UTC)
		if err != nil {
			errs = append(errs, fmt.Errorf("tag %q: %w", key, err))
			continue
		}
		return t, true, nil
	}
	return time.Time{}, false, errors.Join(errs...)
}
