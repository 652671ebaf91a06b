package approval

import (
	"strings"
	"time"

	"change-approval/internal/domain/apperr"
	"change-approval/internal/domain/record"
)

// SubmitInput carries the form fields of a new change request. Extra holds
// values for any additional sheet columns, keyed by header name.
type SubmitInput struct {
	Category         string
	AssetID          string
	AssetName        string
	Description      string
	Reason           string
	ImpactScope      string
	PreTestNote      string
	BackupNote       string
	RiskHandling     string
	RiskHandlingNote string
	BeforeState      string
	AfterState       string
	Extra            map[string]string
}

// Fields maps the input onto sheet headers.
func (in SubmitInput) Fields() map[string]string {
	f := make(map[string]string, len(in.Extra)+12)
	for k, v := range in.Extra {
		f[strings.TrimSpace(k)] = v
	}
	f[record.HeaderCategory] = in.Category
	f[record.HeaderAssetID] = in.AssetID
	f[record.HeaderAssetName] = in.AssetName
	f[record.HeaderDescription] = in.Description
	f[record.HeaderReason] = in.Reason
	f[record.HeaderImpactScope] = in.ImpactScope
	f[record.HeaderPreTestNote] = in.PreTestNote
	f[record.HeaderBackupNote] = in.BackupNote
	f[record.HeaderRiskHandling] = in.RiskHandling
	f[record.HeaderRiskHandlingNote] = in.RiskHandlingNote
	f[record.HeaderBeforeState] = in.BeforeState
	f[record.HeaderAfterState] = in.AfterState
	return f
}

// Result is what every workflow operation hands back: failures are
// reported in Message, never raised.
type Result struct {
	OK      bool        `json:"ok"`
	Message string      `json:"message"`
	Kind    apperr.Kind `json:"kind,omitempty"`
	Row     int         `json:"row,omitempty"`
	Link    string      `json:"link,omitempty"`
}

func failure(prefix string, err error) Result {
	return Result{Message: prefix + ": " + err.Error(), Kind: apperr.KindOf(err)}
}

type ApplicationDTO struct {
	Row            int    `json:"row"`
	SubmittedAt    string `json:"submitted_at"`
	ApplicantName  string `json:"applicant_name"`
	ApplicantEmail string `json:"applicant_email"`
	Category       string `json:"category"`
	AssetID        string `json:"asset_id"`
	AssetName      string `json:"asset_name"`
	Description    string `json:"description"`
	BeforeState    string `json:"before_state"`
	AfterState     string `json:"after_state"`
	Status         string `json:"status"`
	RecordNumber   string `json:"record_number,omitempty"`
	ApprovedAt     string `json:"approved_at,omitempty"`
	RejectReason   string `json:"reject_reason,omitempty"`
	DocumentLink   string `json:"document_link,omitempty"`
}

// PendingDTO is the reviewer's view of a submitted application.
type PendingDTO struct {
	Row           int    `json:"row"`
	SubmittedAt   string `json:"submitted_at"`
	ApplicantName string `json:"applicant_name"`
	Category      string `json:"category"`
	AssetName     string `json:"asset_name"`
	Description   string `json:"description"`
	BeforeState   string `json:"before_state"`
	AfterState    string `json:"after_state"`
	Assessment    string `json:"assessment"`
}

const listDateLayout = "2006/01/02"

func formatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(listDateLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toApplicationDTO(a *record.Application, loc *time.Location) ApplicationDTO {
	dto := ApplicationDTO{
		Row:            a.Row,
		SubmittedAt:    formatDate(a.SubmittedAt, loc),
		ApplicantName:  a.ApplicantName,
		ApplicantEmail: a.ApplicantEmail,
		Category:       a.Category,
		AssetID:        a.AssetID,
		AssetName:      a.AssetName,
		Description:    a.Description,
		BeforeState:    a.BeforeState,
		AfterState:     a.AfterState,
		Status:         string(a.Status),
		RecordNumber:   deref(a.RecordNumber),
		RejectReason:   deref(a.RejectReason),
		DocumentLink:   deref(a.DocumentLink),
	}
	if a.ApprovedAt != nil {
		dto.ApprovedAt = formatDate(*a.ApprovedAt, loc)
	}
	return dto
}

func toPendingDTO(a *record.Application, loc *time.Location) PendingDTO {
	na := func(s string) string {
		if s == "" {
			return "N/A"
		}
		return s
	}
	return PendingDTO{
		Row:           a.Row,
		SubmittedAt:   formatDate(a.SubmittedAt, loc),
		ApplicantName: a.ApplicantName,
		Category:      a.Category,
		AssetName:     a.AssetName,
		Description:   a.Description,
		BeforeState:   a.BeforeState,
		AfterState:    a.AfterState,
		Assessment: "Impact scope: " + na(a.ImpactScope) +
			"\nPre-test: " + na(a.PreTestNote) +
			"\nBackup: " + na(a.BackupNote) +
			"\nRisk handling: " + na(a.RiskHandling) +
			"\nRisk handling note: " + na(a.RiskHandlingNote),
	}
}
