package record

import (
	"strconv"
	"strings"
	"time"

	"change-approval/internal/domain/apperr"
	"change-approval/internal/domain/sheet"
)

type Status string

const (
	StatusSubmitted Status = "Submitted"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.TrimSpace(s)); st {
	case StatusSubmitted, StatusApproved, StatusRejected:
		return st, nil
	default:
		return "", apperr.InvalidInput("unknown status %q", s)
	}
}

// CanTransitionTo: Submitted -> Approved | Rejected. Approved and Rejected are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusSubmitted && (next == StatusApproved || next == StatusRejected)
}

// Column headers of the records sheet.
const (
	HeaderSubmittedAt      = "Submitted At"
	HeaderApplicantName    = "Applicant Name"
	HeaderApplicantEmail   = "Applicant Email"
	HeaderCategory         = "Category"
	HeaderAssetID          = "Asset ID"
	HeaderAssetName        = "Asset Name"
	HeaderDescription      = "Description"
	HeaderReason           = "Reason"
	HeaderImpactScope      = "Impact Scope"
	HeaderPreTestNote      = "Pre-Test Note"
	HeaderBackupNote       = "Backup Note"
	HeaderRiskHandling     = "Risk Handling"
	HeaderRiskHandlingNote = "Risk Handling Note"
	HeaderBeforeState      = "Before State"
	HeaderAfterState       = "After State"
	HeaderStatus           = "Status"
	HeaderApproverName     = "Approver Name"
	HeaderApproverEmail    = "Approver Email"
	HeaderApprovedAt       = "Approved At"
	HeaderRejectReason     = "Reject Reason"
	HeaderRecordNumber     = "Record Number"
	HeaderDocumentLink     = "Document Link"
	HeaderYear             = "Year"
	HeaderMonth            = "Month"
	HeaderDay              = "Day"
)

// DefaultHeaders is the layout used when bootstrapping an empty records sheet.
func DefaultHeaders() []string {
	return []string{
		HeaderSubmittedAt, HeaderApplicantName, HeaderApplicantEmail,
		HeaderCategory, HeaderAssetID, HeaderAssetName, HeaderDescription, HeaderReason,
		HeaderImpactScope, HeaderPreTestNote, HeaderBackupNote, HeaderRiskHandling, HeaderRiskHandlingNote,
		HeaderBeforeState, HeaderAfterState,
		HeaderStatus, HeaderApproverName, HeaderApproverEmail, HeaderApprovedAt, HeaderRejectReason,
		HeaderRecordNumber, HeaderDocumentLink,
		HeaderYear, HeaderMonth, HeaderDay,
	}
}

// Application is one change request row.
type Application struct {
	Row int

	SubmittedAt    time.Time
	ApplicantName  string
	ApplicantEmail string

	Category    string
	AssetID     string
	AssetName   string
	Description string
	Reason      string

	ImpactScope      string
	PreTestNote      string
	BackupNote       string
	RiskHandling     string
	RiskHandlingNote string
	BeforeState      string
	AfterState       string

	Status        Status
	ApproverName  string
	ApproverEmail string
	ApprovedAt    *time.Time
	RejectReason  *string
	RecordNumber  *string
	DocumentLink  *string

	Year, Month, Day int
}

// FromRow decodes a records-sheet row.
func FromRow(cols sheet.Columns, row int, values []string) (*Application, error) {
	get := func(h string) string { return strings.TrimSpace(cols.Get(values, h)) }

	st, err := ParseStatus(get(HeaderStatus))
	if err != nil {
		return nil, apperr.InvalidInput("row %d has unknown status %q", row, get(HeaderStatus))
	}
	a := &Application{
		Row:              row,
		ApplicantName:    get(HeaderApplicantName),
		ApplicantEmail:   get(HeaderApplicantEmail),
		Category:         get(HeaderCategory),
		AssetID:          get(HeaderAssetID),
		AssetName:        get(HeaderAssetName),
		Description:      get(HeaderDescription),
		Reason:           get(HeaderReason),
		ImpactScope:      get(HeaderImpactScope),
		PreTestNote:      get(HeaderPreTestNote),
		BackupNote:       get(HeaderBackupNote),
		RiskHandling:     get(HeaderRiskHandling),
		RiskHandlingNote: get(HeaderRiskHandlingNote),
		BeforeState:      get(HeaderBeforeState),
		AfterState:       get(HeaderAfterState),
		Status:           st,
		ApproverName:     get(HeaderApproverName),
		ApproverEmail:    get(HeaderApproverEmail),
		RejectReason:     optional(get(HeaderRejectReason)),
		RecordNumber:     optional(get(HeaderRecordNumber)),
		DocumentLink:     optional(get(HeaderDocumentLink)),
	}
	if t, ok := sheet.ParseTime(get(HeaderSubmittedAt)); ok {
		a.SubmittedAt = t
	}
	if t, ok := sheet.ParseTime(get(HeaderApprovedAt)); ok {
		a.ApprovedAt = &t
	}
	a.Year, _ = strconv.Atoi(get(HeaderYear))
	a.Month, _ = strconv.Atoi(get(HeaderMonth))
	a.Day, _ = strconv.Atoi(get(HeaderDay))
	return a, nil
}

// CheckInvariants reports the first violated lifecycle invariant.
func (a *Application) CheckInvariants() error {
	if (a.RecordNumber != nil) != (a.Status == StatusApproved) {
		return apperr.InvalidInput("row %d: record number present=%t with status %s", a.Row, a.RecordNumber != nil, a.Status)
	}
	if (a.RejectReason != nil) != (a.Status == StatusRejected) {
		return apperr.InvalidInput("row %d: reject reason present=%t with status %s", a.Row, a.RejectReason != nil, a.Status)
	}
	if a.DocumentLink != nil && a.RecordNumber == nil {
		return apperr.InvalidInput("row %d: document link without record number", a.Row)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
