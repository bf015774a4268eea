package sanitize

import (
	"strings"
	"testing"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "normal filename",
			input:    "wedding-042.jpg",
			expected: "wedding-042.jpg",
		},
		{
			name:     "filename with path traversal",
			input:    "../../../etc/passwd",
			expected: "etcpasswd",
		},
		{
			name:     "filename with null byte",
			input:    "shot\x00.jpg",
			expected: "shot.jpg",
		},
		{
			name:     "filename with newlines",
			input:    "shot\nname.jpg",
			expected: "shotname.jpg",
		},
		{
			name:     "filename with carriage return",
			input:    "shot\rname.jpg",
			expected: "shotname.jpg",
		},
		{
			name:     "filename with quotes",
			input:    `shot"name.jpg`,
			expected: "shotname.jpg",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "photo",
		},
		{
			name:     "only dots",
			input:    "...",
			expected: "photo",
		},
		{
			name:     "unicode characters preserved",
			input:    "日本語.jpg",
			expected: "日本語.jpg",
		},
		{
			name:     "filename with spaces",
			input:    "golden hour.jpg",
			expected: "golden hour.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Filename(tt.input)
			if result != tt.expected {
				t.Errorf("Filename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestForHeader(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "normal filename",
			input:    "golden-hour.jpg",
			expected: "golden-hour.jpg",
		},
		{
			name:     "filename with quotes",
			input:    `shot" name.jpg`,
			expected: "shot name.jpg",
		},
		{
			name:     "filename with mixed special chars",
			input:    "shot\r\n\"name\".jpg",
			expected: "shotname.jpg",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "photo",
		},
		{
			name:     "unicode characters replaced",
			input:    "日本語.jpg",
			expected: "___.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ForHeader(tt.input)
			if result != tt.expected {
				t.Errorf("ForHeader(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFilename_LengthLimit(t *testing.T) {
	longName := strings.Repeat("a", 300)

	result := Filename(longName)
	if len(result) > 200 {
		t.Errorf("expected filename length <= 200, got %d", len(result))
	}
}
