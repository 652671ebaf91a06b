package notify

import (
	"context"
	"testing"

	"change-approval/internal/domain/notify"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func newOutbox(t *testing.T) (*Outbox, *redis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	o, err := NewOutbox(rdb, "mail:outbox", 0)
	if err != nil {
		t.Fatalf("NewOutbox: %v", err)
	}
	return o, rdb
}

func TestOutbox_Send(t *testing.T) {
	o, rdb := newOutbox(t)
	ctx := context.Background()

	err := o.Send(ctx, notify.Message{
		To:      []string{"a@x.com, b@x.com", "A@x.com"},
		Subject: "[Change Request] Approved - NAS",
		Body:    "hello",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	entries, err := rdb.XRange(ctx, "mail:outbox", "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	v := entries[0].Values
	if v["to"] != "a@x.com,b@x.com" || v["subject"] != "[Change Request] Approved - NAS" || v["body"] != "hello" {
		t.Fatalf("entry = %v", v)
	}
	if id, _ := v["message_id"].(string); id == "" {
		t.Fatal("missing message_id")
	}
}

func TestOutbox_NoRecipientsIsNoop(t *testing.T) {
	o, rdb := newOutbox(t)
	ctx := context.Background()

	if err := o.Send(ctx, notify.Message{To: []string{" ", ""}, Subject: "x"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n, _ := rdb.XLen(ctx, "mail:outbox").Result(); n != 0 {
		t.Fatalf("stream length = %d, want 0", n)
	}
}

func TestNewOutbox_RequiresStream(t *testing.T) {
	if _, err := NewOutbox(nil, " ", 0); err == nil {
		t.Fatal("expected error for blank stream")
	}
}

func TestLogDispatcher(t *testing.T) {
	log, hook := test.NewNullLogger()
	d := NewLogDispatcher(log)

	_ = d.Send(context.Background(), notify.Message{Subject: "dropped"})
	_ = d.Send(context.Background(), notify.Message{To: []string{"a@x.com"}, Subject: "s", Body: "b"})

	if len(hook.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(hook.Entries))
	}
	e := hook.LastEntry()
	if e.Level != logrus.InfoLevel || e.Message != "b" || e.Data["subject"] != "s" {
		t.Fatalf("entry = %+v", e)
	}
}
