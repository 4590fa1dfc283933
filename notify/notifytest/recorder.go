// Package notifytest provides a recording notify.Sender for tests.
package notifytest

import (
	"context"
	"sync"
)

// Sent is one delivered message.
type Sent struct {
	To      []string
	Subject string
	HTML    string
}

// Recorder records messages. When Err is set every Send fails with it.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	Err  error
}

func (r *Recorder) Send(ctx context.Context, to []string, subject, html string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, Sent{To: append([]string(nil), to...), Subject: subject, HTML: html})
	return nil
}

// Messages returns a copy of what was sent.
func (r *Recorder) Messages() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}
