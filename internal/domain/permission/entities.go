package permission

import "strings"

// Column layout of the permissions sheet, rows 2..N.
const (
	ColApplicantName = iota + 1
	ColApplicantEmail
	ColApproverName
	ColApproverEmail

	Width = ColApproverEmail
)

// Directory is the cached view of the permissions sheet. Emails are
// normalised to lower case; the first name seen for an email wins.
type Directory struct {
	Users         map[string]string `json:"users"`
	Approvers     []string          `json:"approvers"`
	ApproverNames map[string]string `json:"approver_names"`
}

func NewDirectory() *Directory {
	return &Directory{Users: map[string]string{}, ApproverNames: map[string]string{}}
}

func normalize(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Add records one permissions row.
func (d *Directory) Add(applicantName, applicantEmail, approverName, approverEmail string) {
	if e := normalize(applicantEmail); e != "" {
		if _, seen := d.Users[e]; !seen {
			d.Users[e] = strings.TrimSpace(applicantName)
		}
	}
	if e := normalize(approverEmail); e != "" {
		if _, seen := d.ApproverNames[e]; !seen {
			d.ApproverNames[e] = strings.TrimSpace(approverName)
			d.Approvers = append(d.Approvers, e)
		}
	}
}

func (d *Directory) IsApprover(email string) bool {
	e := normalize(email)
	if e == "" {
		return false
	}
	_, ok := d.ApproverNames[e]
	return ok
}

func (d *Directory) ApplicantName(email string) (string, bool) {
	n, ok := d.Users[normalize(email)]
	return n, ok && n != ""
}

func (d *Directory) ApproverName(email string) (string, bool) {
	n, ok := d.ApproverNames[normalize(email)]
	return n, ok && n != ""
}

// ListApprovers returns approver emails in sheet order.
func (d *Directory) ListApprovers() []string {
	return append([]string(nil), d.Approvers...)
}
