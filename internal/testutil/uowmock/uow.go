package uowmock

import (
	"context"

	"change-approval/internal/domain/uow"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Unfilled function fields run fn directly, without locking.
type UoW struct {
	WithinSheetFn func(ctx context.Context, sheet string, fn func(ctx context.Context) error) error
	WithinRowFn   func(ctx context.Context, sheet string, row int, fn func(ctx context.Context) error) error

	SheetCalls int
	RowCalls   []int
}

func New() *UoW { return &UoW{} }

func (m *UoW) WithinSheet(ctx context.Context, sheet string, fn func(ctx context.Context) error) error {
	m.SheetCalls++
	if m.WithinSheetFn != nil {
		return m.WithinSheetFn(ctx, sheet, fn)
	}
	return fn(ctx)
}

func (m *UoW) WithinRow(ctx context.Context, sheet string, row int, fn func(ctx context.Context) error) error {
	m.RowCalls = append(m.RowCalls, row)
	if m.WithinRowFn != nil {
		return m.WithinRowFn(ctx, sheet, row, fn)
	}
	return fn(ctx)
}
