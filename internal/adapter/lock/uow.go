package lock

import (
	"context"
	"strconv"
	"time"

	"change-approval/internal/domain/apperr"
)

// UoW implements uow.UnitOfWork on top of a Locker. Waiting for a lock is
// bounded by maxWait.
type UoW struct {
	locker  Locker
	maxWait time.Duration
}

func NewUoW(l Locker, maxWait time.Duration) *UoW {
	if maxWait <= 0 {
		maxWait = 10 * time.Second
	}
	return &UoW{locker: l, maxWait: maxWait}
}

func (u *UoW) WithinSheet(ctx context.Context, sheet string, fn func(ctx context.Context) error) error {
	return u.within(ctx, "sheet:"+sheet, fn)
}

func (u *UoW) WithinRow(ctx context.Context, sheet string, row int, fn func(ctx context.Context) error) error {
	return u.within(ctx, "row:"+sheet+":"+strconv.Itoa(row), fn)
}

func (u *UoW) within(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	waitCtx, cancel := context.WithTimeout(ctx, u.maxWait)
	release, err := u.locker.Acquire(waitCtx, key)
	cancel()
	if err != nil {
		return apperr.External(err, "acquire lock %s", key)
	}
	defer release()
	return fn(ctx)
}
