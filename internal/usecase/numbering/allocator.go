package numbering

import (
	"context"
	"fmt"
	"strings"
	"time"

	"change-approval/internal/domain/apperr"
	"change-approval/internal/domain/record"
	"change-approval/internal/domain/sheet"
	"change-approval/internal/domain/uow"
)

const datePartLayout = "060102"

// Allocator assigns record numbers of the form PREFIX-YYMMDD-NN. The
// sequence is one more than the number of existing numbers carrying the
// same date part; the scan and the write run under the sheet lock.
type Allocator struct {
	uow uow.UnitOfWork
	loc *time.Location
}

func NewAllocator(u uow.UnitOfWork, loc *time.Location) *Allocator {
	if loc == nil {
		loc = time.UTC
	}
	return &Allocator{uow: u, loc: loc}
}

// DatePart formats t as YYMMDD in the allocator's zone.
func (a *Allocator) DatePart(t time.Time) string { return t.In(a.loc).Format(datePartLayout) }

// Allocate computes the next number for effective's day, writes it into
// row's record-number cell and returns it. Sequences above 99 widen the
// suffix rather than wrap.
func (a *Allocator) Allocate(ctx context.Context, sh sheet.Sheet, row int, effective time.Time, prefix string) (string, error) {
	if effective.IsZero() {
		return "", apperr.InvalidInput("effective date is required")
	}
	if strings.TrimSpace(prefix) == "" {
		return "", apperr.InvalidInput("record number prefix is required")
	}
	if row <= sheet.HeaderRowIndex {
		return "", apperr.InvalidInput("invalid row %d", row)
	}
	datePart := a.DatePart(effective)

	var number string
	err := a.uow.WithinSheet(ctx, sh.Name(), func(ctx context.Context) error {
		cols, err := sheet.LoadColumns(ctx, sh)
		if err != nil {
			return err
		}
		col := cols.Index(record.HeaderRecordNumber)
		if col == 0 {
			return apperr.Configuration("missing column %q", record.HeaderRecordNumber)
		}
		count, err := a.countDay(ctx, sh, col, datePart)
		if err != nil {
			return err
		}
		number = fmt.Sprintf("%s-%s-%02d", prefix, datePart, count+1)
		if err := sh.WriteCell(ctx, row, col, number); err != nil {
			return apperr.External(err, "write record number to row %d", row)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return number, nil
}

func (a *Allocator) countDay(ctx context.Context, sh sheet.Sheet, col int, datePart string) (int, error) {
	last, err := sh.LastRowIndex(ctx)
	if err != nil {
		return 0, apperr.External(err, "read last row")
	}
	if last <= sheet.HeaderRowIndex {
		return 0, nil
	}
	values, err := sh.ReadRange(ctx, sheet.HeaderRowIndex+1, col, last-sheet.HeaderRowIndex, 1)
	if err != nil {
		return 0, apperr.External(err, "read record numbers")
	}
	needle := "-" + datePart + "-"
	n := 0
	for _, v := range values {
		if len(v) > 0 && strings.Contains(v[0], needle) {
			n++
		}
	}
	return n, nil
}
