package uowmock

import (
	"context"
	"errors"
	"testing"
)

func TestUoW_DefaultsRunFn(t *testing.T) {
	m := New()
	called := 0
	fn := func(context.Context) error { called++; return nil }

	if err := m.WithinSheet(context.Background(), "records", fn); err != nil {
		t.Fatalf("WithinSheet: %v", err)
	}
	if err := m.WithinRow(context.Background(), "records", 4, fn); err != nil {
		t.Fatalf("WithinRow: %v", err)
	}
	if called != 2 || m.SheetCalls != 1 || len(m.RowCalls) != 1 || m.RowCalls[0] != 4 {
		t.Fatalf("called=%d sheet=%d rows=%v", called, m.SheetCalls, m.RowCalls)
	}
}

func TestUoW_OverridePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	m := &UoW{
		WithinRowFn: func(ctx context.Context, sheet string, row int, fn func(context.Context) error) error {
			if sheet != "records" || row != 9 {
				t.Fatalf("got sheet=%s row=%d", sheet, row)
			}
			return boom
		},
	}
	err := m.WithinRow(context.Background(), "records", 9, func(context.Context) error {
		t.Fatal("fn must not run")
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
}
