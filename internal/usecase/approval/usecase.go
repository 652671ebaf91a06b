package approval

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"change-approval/internal/domain/apperr"
	"change-approval/internal/domain/notify"
	"change-approval/internal/domain/permission"
	"change-approval/internal/domain/record"
	"change-approval/internal/domain/sheet"
	"change-approval/internal/domain/uow"
	"change-approval/pkg/clock"

	"github.com/sirupsen/logrus"
)

const (
	unknownUser     = "Unknown user"
	unknownApprover = "Unknown approver"
)

type Directory interface {
	Directory(ctx context.Context) (*permission.Directory, error)
}

type Numberer interface {
	Allocate(ctx context.Context, sh sheet.Sheet, row int, effective time.Time, prefix string) (string, error)
}

type DocumentGenerator interface {
	Generate(ctx context.Context, sh sheet.Sheet, row int, cols sheet.Columns, recordNumber string) (string, error)
}

type Config struct {
	SheetName    string
	RecordPrefix string
	// ReviewURL is linked from the notification sent to approvers.
	ReviewURL string
	Location  *time.Location
}

type Deps struct {
	Book      sheet.Workbook
	Directory Directory
	Numbers   Numberer
	Documents DocumentGenerator
	Notifier  notify.Dispatcher
	UoW       uow.UnitOfWork
	Clock     clock.Clock
	Log       logrus.FieldLogger
}

// Usecase drives an application through Submitted -> Approved | Rejected.
type Usecase struct {
	book     sheet.Workbook
	dir      Directory
	numbers  Numberer
	docs     DocumentGenerator
	notifier notify.Dispatcher
	uow      uow.UnitOfWork
	clock    clock.Clock
	log      logrus.FieldLogger
	cfg      Config
}

func NewUsecase(d Deps, cfg Config) *Usecase {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	return &Usecase{
		book:     d.Book,
		dir:      d.Directory,
		numbers:  d.Numbers,
		docs:     d.Documents,
		notifier: d.Notifier,
		uow:      d.UoW,
		clock:    d.Clock,
		log:      d.Log,
		cfg:      cfg,
	}
}

// Submit appends a new application on behalf of actor and tells every
// approver about it.
func (u *Usecase) Submit(ctx context.Context, in SubmitInput, actor string) Result {
	row, err := u.submit(ctx, in, strings.TrimSpace(actor))
	if err != nil {
		u.log.WithError(err).WithField("actor", actor).Error("submit failed")
		return failure("Submission failed", err)
	}
	return Result{OK: true, Message: "Application submitted.", Row: row}
}

func (u *Usecase) submit(ctx context.Context, in SubmitInput, actor string) (int, error) {
	if actor == "" {
		return 0, apperr.InvalidInput("acting user email is required")
	}
	if strings.TrimSpace(in.AssetName) == "" {
		return 0, apperr.InvalidInput("asset name is required")
	}
	sh, cols, err := u.records(ctx)
	if err != nil {
		return 0, err
	}
	if err := cols.Require(record.HeaderStatus); err != nil {
		return 0, err
	}
	dir, err := u.dir.Directory(ctx)
	if err != nil {
		return 0, err
	}
	name, ok := dir.ApplicantName(actor)
	if !ok {
		name = unknownUser
	}

	now := u.now()
	fields := in.Fields()
	values := make([]string, cols.Len())
	for i, h := range cols.Headers() {
		switch h {
		case record.HeaderSubmittedAt:
			values[i] = sheet.FormatTime(now)
		case record.HeaderApplicantName:
			values[i] = name
		case record.HeaderApplicantEmail:
			values[i] = actor
		case record.HeaderStatus:
			values[i] = string(record.StatusSubmitted)
		case record.HeaderYear:
			values[i] = strconv.Itoa(now.Year())
		case record.HeaderMonth:
			values[i] = strconv.Itoa(int(now.Month()))
		case record.HeaderDay:
			values[i] = strconv.Itoa(now.Day())
		case record.HeaderApproverName, record.HeaderApproverEmail, record.HeaderApprovedAt,
			record.HeaderRejectReason, record.HeaderRecordNumber, record.HeaderDocumentLink:
			// approval fields start blank
		default:
			values[i] = strings.TrimSpace(fields[h])
		}
	}

	var row int
	err = u.uow.WithinSheet(ctx, sh.Name(), func(ctx context.Context) error {
		var err error
		row, err = sh.AppendRow(ctx, values)
		return err
	})
	if err != nil {
		if errors.Is(err, apperr.ErrExternalService) {
			return 0, err
		}
		return 0, apperr.External(err, "append application")
	}
	u.log.WithFields(logrus.Fields{"row": row, "actor": actor}).Info("application submitted")

	if approvers := dir.ListApprovers(); len(approvers) > 0 {
		asset := orNA(in.AssetName)
		u.send(ctx, notify.Message{
			To:      approvers,
			Subject: "[Change Request] New application awaiting review - " + asset,
			Body: fmt.Sprintf("Applicant: %s (%s)\nAsset: %s\nDescription: %s\n\nReview it at: %s",
				name, actor, asset, in.Description, u.cfg.ReviewURL),
		})
	}
	return row, nil
}

// BatchApprove approves rows in order. The first failure stops the batch;
// rows approved before it stay approved.
func (u *Usecase) BatchApprove(ctx context.Context, rows []int, actor string) Result {
	n, err := u.batchApprove(ctx, rows, strings.TrimSpace(actor))
	if err != nil {
		u.log.WithError(err).WithFields(logrus.Fields{"actor": actor, "approved": n}).Error("batch approval failed")
		return failure("Approval failed", err)
	}
	return Result{OK: true, Message: fmt.Sprintf("%d application(s) approved.", n)}
}

func (u *Usecase) batchApprove(ctx context.Context, rows []int, actor string) (int, error) {
	rows = dedupe(rows)
	if len(rows) == 0 {
		return 0, apperr.InvalidInput("no applications selected")
	}
	approverName, err := u.approver(ctx, actor)
	if err != nil {
		return 0, err
	}
	sh, cols, err := u.records(ctx)
	if err != nil {
		return 0, err
	}
	if err := cols.Require(record.HeaderStatus, record.HeaderApproverEmail, record.HeaderRecordNumber); err != nil {
		return 0, err
	}
	for i, row := range rows {
		err := u.uow.WithinRow(ctx, sh.Name(), row, func(ctx context.Context) error {
			return u.approveRow(ctx, sh, cols, row, actor, approverName)
		})
		if err != nil {
			return i, fmt.Errorf("row %d: %w", row, err)
		}
	}
	return len(rows), nil
}

func (u *Usecase) approveRow(ctx context.Context, sh sheet.Sheet, cols sheet.Columns, row int, actor, approverName string) error {
	app, values, err := u.loadRowValues(ctx, sh, cols, row)
	if err != nil {
		return err
	}
	if !app.Status.CanTransitionTo(record.StatusApproved) {
		return apperr.InvalidInput("row %d is %s; only submitted applications can be approved", row, app.Status)
	}

	// status before number; a failure in either step puts the row back as it was
	now := u.now()
	err = u.write(ctx, sh, cols, row,
		cell{record.HeaderStatus, string(record.StatusApproved)},
		cell{record.HeaderApproverName, approverName},
		cell{record.HeaderApproverEmail, actor},
		cell{record.HeaderApprovedAt, sheet.FormatTime(now)},
		cell{record.HeaderYear, strconv.Itoa(now.Year())},
		cell{record.HeaderMonth, strconv.Itoa(int(now.Month()))},
		cell{record.HeaderDay, strconv.Itoa(now.Day())},
	)
	if err != nil {
		u.restore(ctx, sh, cols, row, values)
		return err
	}
	number, err := u.numbers.Allocate(ctx, sh, row, now, u.cfg.RecordPrefix)
	if err != nil {
		u.restore(ctx, sh, cols, row, values)
		return fmt.Errorf("allocate record number: %w", err)
	}
	link, err := u.docs.Generate(ctx, sh, row, cols, number)
	if err != nil {
		return fmt.Errorf("generate document: %w", err)
	}
	u.log.WithFields(logrus.Fields{"row": row, "record_number": number, "approver": actor}).Info("application approved")

	asset := orNA(app.AssetName)
	u.notifyApplicant(ctx, app, notify.Message{
		Subject: "[Change Request] Approved - " + asset,
		Body: fmt.Sprintf("Hello,\nYour change request %q has been approved.\nRecord number: %s\nDocument: %s",
			asset, number, link),
	})
	return nil
}

// Reject closes a submitted application with reason and tells the applicant.
func (u *Usecase) Reject(ctx context.Context, row int, reason, actor string) Result {
	if err := u.reject(ctx, row, strings.TrimSpace(reason), strings.TrimSpace(actor)); err != nil {
		u.log.WithError(err).WithFields(logrus.Fields{"actor": actor, "row": row}).Error("rejection failed")
		return failure("Rejection failed", err)
	}
	return Result{OK: true, Message: "Application rejected and applicant notified.", Row: row}
}

func (u *Usecase) reject(ctx context.Context, row int, reason, actor string) error {
	if reason == "" {
		return apperr.InvalidInput("reject reason is required")
	}
	approverName, err := u.approver(ctx, actor)
	if err != nil {
		return err
	}
	sh, cols, err := u.records(ctx)
	if err != nil {
		return err
	}
	if err := cols.Require(record.HeaderStatus, record.HeaderRejectReason); err != nil {
		return err
	}
	return u.uow.WithinRow(ctx, sh.Name(), row, func(ctx context.Context) error {
		app, err := u.loadRow(ctx, sh, cols, row)
		if err != nil {
			return err
		}
		if !app.Status.CanTransitionTo(record.StatusRejected) {
			return apperr.InvalidInput("row %d is %s; only submitted applications can be rejected", row, app.Status)
		}
		// reason first so a Rejected row never lacks one
		err = u.write(ctx, sh, cols, row,
			cell{record.HeaderRejectReason, reason},
			cell{record.HeaderStatus, string(record.StatusRejected)},
			cell{record.HeaderApproverName, approverName},
			cell{record.HeaderApproverEmail, actor},
			cell{record.HeaderApprovedAt, sheet.FormatTime(u.now())},
		)
		if err != nil {
			return err
		}
		u.log.WithFields(logrus.Fields{"row": row, "approver": actor}).Info("application rejected")

		asset := orNA(app.AssetName)
		u.notifyApplicant(ctx, app, notify.Message{
			Subject: "[Change Request] Rejected - " + asset,
			Body: fmt.Sprintf("Hello,\n\nYour change request %q has been rejected.\n\nReason:\n%s\n\nPlease contact the approver with any questions.",
				asset, reason),
		})
		return nil
	})
}

// CreateDocument returns the document of an approved application,
// generating it first when missing. Approvers and the applicant may call it.
func (u *Usecase) CreateDocument(ctx context.Context, row int, actor string) Result {
	link, err := u.createDocument(ctx, row, strings.TrimSpace(actor))
	if err != nil {
		u.log.WithError(err).WithFields(logrus.Fields{"actor": actor, "row": row}).Error("document generation failed")
		return failure("Document generation failed", err)
	}
	return Result{OK: true, Message: "Document ready.", Row: row, Link: link}
}

func (u *Usecase) createDocument(ctx context.Context, row int, actor string) (string, error) {
	if actor == "" {
		return "", apperr.Permission("acting user email is required")
	}
	dir, err := u.dir.Directory(ctx)
	if err != nil {
		return "", err
	}
	sh, cols, err := u.records(ctx)
	if err != nil {
		return "", err
	}
	if err := cols.Require(record.HeaderStatus, record.HeaderApplicantEmail, record.HeaderDocumentLink, record.HeaderRecordNumber); err != nil {
		return "", err
	}
	var link string
	err = u.uow.WithinRow(ctx, sh.Name(), row, func(ctx context.Context) error {
		app, err := u.loadRow(ctx, sh, cols, row)
		if err != nil {
			return err
		}
		if !dir.IsApprover(actor) && !strings.EqualFold(app.ApplicantEmail, actor) {
			return apperr.Permission("%s may not generate the document of row %d", actor, row)
		}
		if app.Status != record.StatusApproved {
			return apperr.InvalidInput("row %d is %s; only approved applications have documents", row, app.Status)
		}
		if app.DocumentLink != nil {
			link = *app.DocumentLink
			return nil
		}
		if app.RecordNumber == nil {
			return apperr.InvalidInput("row %d has no record number", row)
		}
		link, err = u.docs.Generate(ctx, sh, row, cols, *app.RecordNumber)
		return err
	})
	return link, err
}

// ListPending returns submitted applications awaiting review.
func (u *Usecase) ListPending(ctx context.Context) ([]PendingDTO, error) {
	apps, err := u.readAll(ctx)
	if err != nil {
		return nil, err
	}
	out := []PendingDTO{}
	for _, a := range apps {
		if a.Status == record.StatusSubmitted {
			out = append(out, toPendingDTO(a, u.cfg.Location))
		}
	}
	return out, nil
}

// ListForUser returns actor's own applications, or every application when
// actor is an approver.
func (u *Usecase) ListForUser(ctx context.Context, actor string) ([]ApplicationDTO, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, apperr.Permission("acting user email is required")
	}
	dir, err := u.dir.Directory(ctx)
	if err != nil {
		return nil, err
	}
	apps, err := u.readAll(ctx)
	if err != nil {
		return nil, err
	}
	all := dir.IsApprover(actor)
	out := []ApplicationDTO{}
	for _, a := range apps {
		if (all && a.ApplicantEmail != "") || strings.EqualFold(a.ApplicantEmail, actor) {
			out = append(out, toApplicationDTO(a, u.cfg.Location))
		}
	}
	return out, nil
}

func (u *Usecase) readAll(ctx context.Context) ([]*record.Application, error) {
	sh, cols, err := u.records(ctx)
	if err != nil {
		return nil, err
	}
	if err := cols.Require(record.HeaderStatus); err != nil {
		return nil, err
	}
	last, err := sh.LastRowIndex(ctx)
	if err != nil {
		return nil, apperr.External(err, "read last row")
	}
	if last <= sheet.HeaderRowIndex {
		return nil, nil
	}
	rows, err := sh.ReadRange(ctx, sheet.HeaderRowIndex+1, 1, last-sheet.HeaderRowIndex, cols.Len())
	if err != nil {
		return nil, apperr.External(err, "read applications")
	}
	apps := make([]*record.Application, 0, len(rows))
	for i, values := range rows {
		row := sheet.HeaderRowIndex + 1 + i
		a, err := record.FromRow(cols, row, values)
		if err != nil {
			u.log.WithError(err).WithField("row", row).Debug("skipping unreadable row")
			continue
		}
		apps = append(apps, a)
	}
	return apps, nil
}

func (u *Usecase) records(ctx context.Context) (sheet.Sheet, sheet.Columns, error) {
	sh, err := u.book.Sheet(ctx, u.cfg.SheetName)
	if errors.Is(err, sheet.ErrSheetNotFound) {
		return nil, sheet.Columns{}, apperr.Configuration("records sheet %q not found", u.cfg.SheetName)
	}
	if err != nil {
		return nil, sheet.Columns{}, apperr.External(err, "open records sheet")
	}
	cols, err := sheet.LoadColumns(ctx, sh)
	if err != nil {
		return nil, sheet.Columns{}, err
	}
	return sh, cols, nil
}

// approver resolves actor's display name, failing unless actor is an approver.
func (u *Usecase) approver(ctx context.Context, actor string) (string, error) {
	dir, err := u.dir.Directory(ctx)
	if err != nil {
		return "", err
	}
	if !dir.IsApprover(actor) {
		return "", apperr.Permission("%q is not an approver", actor)
	}
	name, ok := dir.ApproverName(actor)
	if !ok {
		name = unknownApprover
	}
	return name, nil
}

func (u *Usecase) loadRow(ctx context.Context, sh sheet.Sheet, cols sheet.Columns, row int) (*record.Application, error) {
	app, _, err := u.loadRowValues(ctx, sh, cols, row)
	return app, err
}

// loadRowValues also returns the raw cells so a failed mutation can be undone.
func (u *Usecase) loadRowValues(ctx context.Context, sh sheet.Sheet, cols sheet.Columns, row int) (*record.Application, []string, error) {
	if row <= sheet.HeaderRowIndex {
		return nil, nil, apperr.InvalidInput("invalid row %d", row)
	}
	values, err := sh.ReadRow(ctx, row)
	if errors.Is(err, sheet.ErrRowOutOfRange) {
		return nil, nil, apperr.InvalidInput("row %d does not exist", row)
	}
	if err != nil {
		return nil, nil, apperr.External(err, "read row %d", row)
	}
	app, err := record.FromRow(cols, row, values)
	if err != nil {
		return nil, nil, err
	}
	return app, values, nil
}

// approvalHeaders are the cells an approval may have touched, record number
// first so the row never shows a number without Approved.
var approvalHeaders = []string{
	record.HeaderRecordNumber, record.HeaderStatus,
	record.HeaderApproverName, record.HeaderApproverEmail, record.HeaderApprovedAt,
	record.HeaderYear, record.HeaderMonth, record.HeaderDay,
}

// restore writes back the approval cells of row as they were in prev. It is
// best effort: failures are logged.
func (u *Usecase) restore(ctx context.Context, sh sheet.Sheet, cols sheet.Columns, row int, prev []string) {
	cells := make([]cell, 0, len(approvalHeaders))
	for _, h := range approvalHeaders {
		cells = append(cells, cell{h, cols.Get(prev, h)})
	}
	if err := u.write(ctx, sh, cols, row, cells...); err != nil {
		u.log.WithError(err).WithField("row", row).Error("approval failed and the row could not be restored")
	}
}

type cell struct {
	header string
	value  string
}

// write sets each cell whose column exists; absent optional columns are skipped.
func (u *Usecase) write(ctx context.Context, sh sheet.Sheet, cols sheet.Columns, row int, cells ...cell) error {
	for _, c := range cells {
		col := cols.Index(c.header)
		if col == 0 {
			continue
		}
		if err := sh.WriteCell(ctx, row, col, c.value); err != nil {
			return apperr.External(err, "write %q of row %d", c.header, row)
		}
	}
	return nil
}

func (u *Usecase) notifyApplicant(ctx context.Context, app *record.Application, m notify.Message) {
	if app.ApplicantEmail == "" {
		u.log.WithField("row", app.Row).Warn("application has no applicant email; notification skipped")
		return
	}
	m.To = notify.Recipients(app.ApplicantEmail)
	u.send(ctx, m)
}

// send is fire-and-forget: failures are logged, never returned.
func (u *Usecase) send(ctx context.Context, m notify.Message) {
	if err := u.notifier.Send(ctx, m); err != nil {
		u.log.WithError(err).WithField("subject", m.Subject).Warn("notification failed")
	}
}

func (u *Usecase) now() time.Time { return u.clock.Now().In(u.cfg.Location) }

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func dedupe(rows []int) []int {
	seen := make(map[int]bool, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
