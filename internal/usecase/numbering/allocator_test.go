package numbering

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"change-approval/internal/adapter/lock"
	"change-approval/internal/domain/apperr"
	"change-approval/internal/domain/record"
	"change-approval/internal/testutil/sheetmock"
	"change-approval/internal/testutil/uowmock"
)

const prefix = "IS-R-032"

var taipei = time.FixedZone("CST", 8*3600)

func newRecordsSheet(numbers ...string) *sheetmock.Sheet {
	s := sheetmock.NewSheet("records", record.HeaderStatus, record.HeaderRecordNumber)
	for _, n := range numbers {
		st := "Submitted"
		if n != "" {
			st = "Approved"
		}
		s.AddRow(st, n)
	}
	return s
}

func TestAllocate_ContinuesSameDaySequence(t *testing.T) {
	s := newRecordsSheet("IS-R-032-240101-01", "IS-R-032-240101-02", "")
	a := NewAllocator(uowmock.New(), taipei)

	got, err := a.Allocate(context.Background(), s, 4, time.Date(2024, 1, 1, 15, 0, 0, 0, taipei), prefix)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if got != "IS-R-032-240101-03" {
		t.Fatalf("got %s, want IS-R-032-240101-03", got)
	}
	if cell := s.Cell(4, 2); cell != got {
		t.Fatalf("cell = %q, want %q", cell, got)
	}
}

func TestAllocate_OtherDaysDoNotCount(t *testing.T) {
	s := newRecordsSheet("IS-R-032-231231-01", "IS-R-032-240102-01", "")
	a := NewAllocator(uowmock.New(), taipei)

	got, err := a.Allocate(context.Background(), s, 4, time.Date(2024, 1, 1, 9, 0, 0, 0, taipei), prefix)
	if err != nil || got != "IS-R-032-240101-01" {
		t.Fatalf("got %s, %v", got, err)
	}
}

func TestAllocate_UsesConfiguredZone(t *testing.T) {
	s := newRecordsSheet("")
	a := NewAllocator(uowmock.New(), taipei)

	// 20:00 UTC on Jan 1 is already Jan 2 in UTC+8
	got, err := a.Allocate(context.Background(), s, 2, time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC), prefix)
	if err != nil || got != "IS-R-032-240102-01" {
		t.Fatalf("got %s, %v", got, err)
	}
}

func TestAllocate_SequentialIsStrictlyIncreasing(t *testing.T) {
	s := newRecordsSheet("", "", "", "", "")
	a := NewAllocator(uowmock.New(), taipei)
	day := time.Date(2024, 3, 15, 10, 0, 0, 0, taipei)

	prev := ""
	for row := 2; row <= 6; row++ {
		got, err := a.Allocate(context.Background(), s, row, day, prefix)
		if err != nil {
			t.Fatalf("row %d: %v", row, err)
		}
		if got <= prev {
			t.Fatalf("row %d: %s not greater than %s", row, got, prev)
		}
		prev = got
	}
	if prev != "IS-R-032-240315-05" {
		t.Fatalf("last = %s", prev)
	}
}

func TestAllocate_ConcurrentCallersGetDistinctNumbers(t *testing.T) {
	const n = 30
	s := newRecordsSheet(make([]string, n)...)
	a := NewAllocator(lock.NewUoW(lock.NewLocal(), 5*time.Second), taipei)
	day := time.Date(2024, 3, 15, 10, 0, 0, 0, taipei)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]int{}
	)
	for row := 2; row < n+2; row++ {
		wg.Add(1)
		go func(row int) {
			defer wg.Done()
			got, err := a.Allocate(context.Background(), s, row, day, prefix)
			if err != nil {
				t.Errorf("row %d: %v", row, err)
				return
			}
			mu.Lock()
			seen[got]++
			mu.Unlock()
		}(row)
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("got %d distinct numbers for %d allocations: %v", len(seen), n, seen)
	}
}

func TestAllocate_InvalidInputBeforeAnyIO(t *testing.T) {
	s := newRecordsSheet("")
	u := uowmock.New()
	a := NewAllocator(u, taipei)

	tests := []struct {
		name   string
		row    int
		date   time.Time
		prefix string
	}{
		{"zero date", 2, time.Time{}, prefix},
		{"blank prefix", 2, time.Now(), " "},
		{"header row", 1, time.Now(), prefix},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Allocate(context.Background(), s, tt.row, tt.date, tt.prefix)
			if !errors.Is(err, apperr.ErrInvalidInput) {
				t.Fatalf("want invalid input, got %v", err)
			}
		})
	}
	if s.ReadRangeCalls != 0 || s.Writes != 0 || u.SheetCalls != 0 {
		t.Fatalf("sheet touched: reads=%d writes=%d locks=%d", s.ReadRangeCalls, s.Writes, u.SheetCalls)
	}
}

func TestAllocate_MissingColumn(t *testing.T) {
	s := sheetmock.NewSheet("records", record.HeaderStatus)
	s.AddRow("Submitted")
	a := NewAllocator(uowmock.New(), taipei)

	_, err := a.Allocate(context.Background(), s, 2, time.Now(), prefix)
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("want configuration error, got %v", err)
	}
}

func TestAllocate_WriteFailure(t *testing.T) {
	s := newRecordsSheet("")
	s.WriteCellFn = func(row, col int, value string) error { return errors.New("quota exceeded") }
	a := NewAllocator(uowmock.New(), taipei)

	_, err := a.Allocate(context.Background(), s, 2, time.Now(), prefix)
	if !errors.Is(err, apperr.ErrExternalService) || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("want external service error, got %v", err)
	}
}
