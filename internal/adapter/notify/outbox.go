package notify

import (
	"context"
	"errors"
	"strings"

	"change-approval/internal/domain/notify"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var _ notify.Dispatcher = (*Outbox)(nil)

const defaultMaxLen = 10000

// Outbox appends messages to a Redis stream; a mail relay consumes it.
type Outbox struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

func NewOutbox(rdb *redis.Client, stream string, maxLen int64) (*Outbox, error) {
	stream = strings.TrimSpace(stream)
	if stream == "" {
		return nil, errors.New("outbox stream required")
	}
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	return &Outbox{rdb: rdb, stream: stream, maxLen: maxLen}, nil
}

// Send enqueues m once. Messages without recipients are dropped.
func (o *Outbox) Send(ctx context.Context, m notify.Message) error {
	to := notify.Recipients(m.To...)
	if len(to) == 0 {
		return nil
	}
	return o.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: o.stream,
		MaxLen: o.maxLen,
		Approx: true,
		Values: map[string]any{
			"message_id": uuid.NewString(),
			"to":         strings.Join(to, ","),
			"subject":    m.Subject,
			"body":       m.Body,
		},
	}).Err()
}
