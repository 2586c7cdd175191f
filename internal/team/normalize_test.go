package team

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Arsenal FC", "Arsenal FC"},
		{"leading and trailing space", "  Chelsea FC  ", "Chelsea FC"},
		{"collapsed whitespace", "Manchester   United", "Manchester United"},
		{"tabs and newlines", "Leeds\tUnited\n", "Leeds United"},
		{"key-unsafe characters stripped", `A/B\C:D*E?F"G<H>I|J`, "ABCDEFGHIJ"},
		{"unicode preserved", "1. FC Köln", "1. FC Köln"},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeStable(t *testing.T) {
	// Normalizing twice must be a no-op, or index keys drift between
	// discovery and repair.
	in := "  Real   Madrid  "
	once := Normalize(in)
	if twice := Normalize(once); twice != once {
		t.Errorf("Normalize not idempotent: %q -> %q", once, twice)
	}
}
