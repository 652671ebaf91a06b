package permission

import (
	"reflect"
	"testing"
)

func TestDirectory_ApproverProjection(t *testing.T) {
	d := NewDirectory()
	d.Add("Alice", "a@x.com", "Bob", "b@x.com")

	if !d.IsApprover("b@x.com") {
		t.Fatal("b@x.com should be an approver")
	}
	if d.IsApprover("a@x.com") {
		t.Fatal("a@x.com should not be an approver")
	}
	if d.IsApprover("") || d.IsApprover("   ") {
		t.Fatal("blank email must not be an approver")
	}
	if got := d.ListApprovers(); !reflect.DeepEqual(got, []string{"b@x.com"}) {
		t.Fatalf("ListApprovers = %v", got)
	}
}

func TestDirectory_FirstSeenWins(t *testing.T) {
	d := NewDirectory()
	d.Add("Alice", "a@x.com", "Bob", "b@x.com")
	d.Add("Alicia", "A@X.com", "Robert", "b@x.com")
	d.Add("", "", "Carol", "c@x.com")

	if n, _ := d.ApplicantName("a@x.com"); n != "Alice" {
		t.Fatalf("applicant name = %q, want Alice", n)
	}
	if n, _ := d.ApproverName("B@x.com"); n != "Bob" {
		t.Fatalf("approver name = %q, want Bob", n)
	}
	if got := d.ListApprovers(); !reflect.DeepEqual(got, []string{"b@x.com", "c@x.com"}) {
		t.Fatalf("ListApprovers = %v", got)
	}
	if _, ok := d.ApplicantName("nobody@x.com"); ok {
		t.Fatal("unknown applicant resolved")
	}
}
