package record

import (
	"errors"
	"testing"
	"time"

	"change-approval/internal/domain/apperr"
	"change-approval/internal/domain/sheet"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusSubmitted, StatusApproved, true},
		{StatusSubmitted, StatusRejected, true},
		{StatusSubmitted, StatusSubmitted, false},
		{StatusApproved, StatusApproved, false},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusRejected, false},
		{StatusRejected, StatusApproved, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Fatalf("%s -> %s = %t, want %t", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestFromRow(t *testing.T) {
	cols := sheet.NewColumns(DefaultHeaders())
	approved := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

	row := make([]string, cols.Len())
	set := func(h, v string) { row[cols.Index(h)-1] = v }
	set(HeaderStatus, "Approved")
	set(HeaderApplicantEmail, "a@x.com")
	set(HeaderAssetName, "Core switch")
	set(HeaderApprovedAt, sheet.FormatTime(approved))
	set(HeaderRecordNumber, "IS-R-032-240315-01")
	set(HeaderYear, "2024")

	a, err := FromRow(cols, 7, row)
	if err != nil {
		t.Fatalf("FromRow: %v", err)
	}
	if a.Row != 7 || a.Status != StatusApproved || a.AssetName != "Core switch" {
		t.Fatalf("decoded %+v", a)
	}
	if a.RecordNumber == nil || *a.RecordNumber != "IS-R-032-240315-01" {
		t.Fatalf("record number = %v", a.RecordNumber)
	}
	if a.ApprovedAt == nil || !a.ApprovedAt.Equal(approved) {
		t.Fatalf("approved at = %v", a.ApprovedAt)
	}
	if a.RejectReason != nil || a.DocumentLink != nil {
		t.Fatal("blank cells must decode as nil")
	}
	if a.Year != 2024 {
		t.Fatalf("year = %d", a.Year)
	}
	if err := a.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestFromRow_UnknownStatus(t *testing.T) {
	cols := sheet.NewColumns([]string{HeaderStatus})
	_, err := FromRow(cols, 2, []string{"Pending"})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("want invalid input, got %v", err)
	}
}

func TestCheckInvariants(t *testing.T) {
	num := "IS-R-032-240315-01"
	reason := "no rollback plan"
	link := "https://docs/1"

	tests := []struct {
		name string
		app  Application
		ok   bool
	}{
		{"submitted clean", Application{Status: StatusSubmitted}, true},
		{"approved with number", Application{Status: StatusApproved, RecordNumber: &num, DocumentLink: &link}, true},
		{"approved without number", Application{Status: StatusApproved}, false},
		{"submitted with number", Application{Status: StatusSubmitted, RecordNumber: &num}, false},
		{"rejected with reason", Application{Status: StatusRejected, RejectReason: &reason}, true},
		{"rejected without reason", Application{Status: StatusRejected}, false},
		{"link without number", Application{Status: StatusSubmitted, DocumentLink: &link}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.app.CheckInvariants()
			if (err == nil) != tt.ok {
				t.Fatalf("CheckInvariants = %v, want ok=%t", err, tt.ok)
			}
		})
	}
}
