package vectorstore

import "testing"

func TestIsValidTableName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Valid standard", "research_archive", true},
		{"Valid with underscore", "my_archive", true},
		{"Valid with numbers", "archive123", true},
		{"Valid short", "a", true},
		{"Valid max length", "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_", true}, // 63 chars
		{"Invalid start with number", "1archive", false},
		{"Invalid special chars", "archive-name", false},
		{"Invalid space", "archive name", false},
		{"Invalid SQL injection", "users; DROP TABLE research_archive", false},
		{"Invalid empty", "", false},
		{"Invalid too long", "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789__", false}, // 64 chars
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isValidTableName(tt.input); got != tt.expected {
				t.Errorf("isValidTableName(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewArchiveStoreRejectsBadTableName(t *testing.T) {
	if _, err := NewArchiveStore(nil, "bad-name"); err == nil {
		t.Fatal("expected error for invalid table name, got nil")
	}
}
