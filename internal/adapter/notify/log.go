package notify

import (
	"context"

	"change-approval/internal/domain/notify"

	"github.com/sirupsen/logrus"
)

var _ notify.Dispatcher = (*LogDispatcher)(nil)

// LogDispatcher writes messages to the log instead of delivering them.
type LogDispatcher struct{ log logrus.FieldLogger }

func NewLogDispatcher(log logrus.FieldLogger) *LogDispatcher { return &LogDispatcher{log: log} }

func (d *LogDispatcher) Send(_ context.Context, m notify.Message) error {
	to := notify.Recipients(m.To...)
	if len(to) == 0 {
		return nil
	}
	d.log.WithFields(logrus.Fields{"to": to, "subject": m.Subject}).Info(m.Body)
	return nil
}
