package approvalmock

import (
	"context"

	"change-approval/internal/usecase/approval"
)

// Usecase is a function-backed mock of the approval workflow.
// Unfilled function fields report success with no data.
type Usecase struct {
	SubmitFn         func(ctx context.Context, in approval.SubmitInput, actor string) approval.Result
	BatchApproveFn   func(ctx context.Context, rows []int, actor string) approval.Result
	RejectFn         func(ctx context.Context, row int, reason, actor string) approval.Result
	CreateDocumentFn func(ctx context.Context, row int, actor string) approval.Result
	ListPendingFn    func(ctx context.Context) ([]approval.PendingDTO, error)
	ListForUserFn    func(ctx context.Context, actor string) ([]approval.ApplicationDTO, error)
}

func (m *Usecase) Submit(ctx context.Context, in approval.SubmitInput, actor string) approval.Result {
	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, in, actor)
	}
	return approval.Result{OK: true}
}

func (m *Usecase) BatchApprove(ctx context.Context, rows []int, actor string) approval.Result {
	if m.BatchApproveFn != nil {
		return m.BatchApproveFn(ctx, rows, actor)
	}
	return approval.Result{OK: true}
}

func (m *Usecase) Reject(ctx context.Context, row int, reason, actor string) approval.Result {
	if m.RejectFn != nil {
		return m.RejectFn(ctx, row, reason, actor)
	}
	return approval.Result{OK: true}
}

func (m *Usecase) CreateDocument(ctx context.Context, row int, actor string) approval.Result {
	if m.CreateDocumentFn != nil {
		return m.CreateDocumentFn(ctx, row, actor)
	}
	return approval.Result{OK: true}
}

func (m *Usecase) ListPending(ctx context.Context) ([]approval.PendingDTO, error) {
	if m.ListPendingFn != nil {
		return m.ListPendingFn(ctx)
	}
	return nil, nil
}

func (m *Usecase) ListForUser(ctx context.Context, actor string) ([]approval.ApplicationDTO, error) {
	if m.ListForUserFn != nil {
		return m.ListForUserFn(ctx, actor)
	}
	return nil, nil
}
