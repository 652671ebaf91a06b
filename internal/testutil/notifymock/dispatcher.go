package notifymock

import (
	"context"
	"sync"

	"change-approval/internal/domain/notify"
)

var _ notify.Dispatcher = (*Recorder)(nil)

// Recorder captures every message handed to Send. Messages with no
// recipients are dropped, as real dispatchers do.
type Recorder struct {
	mu     sync.Mutex
	SendFn func(m notify.Message) error
	sent   []notify.Message
}

func (r *Recorder) Send(_ context.Context, m notify.Message) error {
	if len(m.To) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SendFn != nil {
		if err := r.SendFn(m); err != nil {
			return err
		}
	}
	r.sent = append(r.sent, m)
	return nil
}

func (r *Recorder) Sent() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.sent...)
}
