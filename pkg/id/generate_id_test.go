package id

import (
	"regexp"
	"testing"
)

var reHex = regexp.MustCompile(`^[a-f0-9]+$`)

func TestHex_Lengths(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{0, 0},
		{1, 2},
		{8, 8},
		{32, 32},
	}
	for _, tt := range tests {
		got := Hex(tt.n)
		if len(got) != tt.want {
			t.Fatalf("Hex(%d) length = %d, want %d", tt.n, len(got), tt.want)
		}
		if tt.want > 0 && !reHex.MatchString(got) {
			t.Fatalf("Hex(%d) not lowercase hex: %q", tt.n, got)
		}
	}
}

func TestNewID32_Uniqueness(t *testing.T) {
	const n = 200
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		v := NewID32()
		if len(v) != 32 {
			t.Fatalf("length = %d", len(v))
		}
		if _, ok := seen[v]; ok {
			t.Fatalf("duplicate id after %d iterations: %q", i, v)
		}
		seen[v] = struct{}{}
	}
}

func TestSuffix(t *testing.T) {
	if s := Suffix(); len(s) != SuffixLen || !reHex.MatchString(s) {
		t.Fatalf("Suffix = %q", s)
	}
}
