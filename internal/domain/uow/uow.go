package uow

import "context"

// UnitOfWork serialises mutations against the tabular store.
type UnitOfWork interface {
	// WithinSheet runs fn while holding the sheet-wide lock (record numbering).
	WithinSheet(ctx context.Context, sheet string, fn func(ctx context.Context) error) error
	// WithinRow runs fn while holding the lock of a single row. Distinct rows don't contend.
	WithinRow(ctx context.Context, sheet string, row int, fn func(ctx context.Context) error) error
}
