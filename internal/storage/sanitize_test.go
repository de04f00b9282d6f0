package storage

import (
	"strings"
	"testing"
)

func TestSanitizeSearchTerm(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal text", "Admissions", "Admissions"},
		{"wildcard %", "100% placement", "100\\% placement"},
		{"wildcard _", "fee_structure", "fee\\_structure"},
		{"backslash", "a\\b", "a\\\\b"},
		{"multiple special characters", "x%_y\\z", "x\\%\\_y\\\\z"},
		{"empty string", "", ""},
		{"unicode passes through", "Café 🎓", "Café 🎓"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeSearchTerm(tt.input); got != tt.expected {
				t.Errorf("sanitizeSearchTerm(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeSearchTermLargeInput(t *testing.T) {
	result := sanitizeSearchTerm(strings.Repeat("a%_b\\", 1000))
	if n := strings.Count(result, "\\%"); n != 1000 {
		t.Errorf("Expected 1000 escaped %%, got %d", n)
	}
	if n := strings.Count(result, "\\_"); n != 1000 {
		t.Errorf("Expected 1000 escaped _, got %d", n)
	}
}
