package hl7

import "testing"

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "A-EK-006", "A-EK-006"},
		{"lowercase", "a-ek-006", "A-EK-006"},
		{"whitespace", "  A-EK-006\t", "A-EK-006"},
		{"sharp s for minus", "AßEKß006", "A-EK-006"},
		{"backtick for plus", "0`EK", "0+EK"},
		{"acute for plus", "0´EK", "0+EK"},
		{"mixed", "  aßek´07 ", "A-EK+07"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeCode(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeCode(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := NormalizeCode(got); again != got {
				t.Errorf("not idempotent: NormalizeCode(%q) = %q", got, again)
			}
		})
	}
}
