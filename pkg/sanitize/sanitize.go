package sanitize

import (
	"strings"
	"unicode"
)

// Filename strips characters from a client-supplied filename that could be
// used for header injection, XSS, or path traversal.
func Filename(filename string) string {
	// Null bytes first
	filename = strings.ReplaceAll(filename, "\x00", "")

	// Newlines and carriage returns (header injection)
	filename = strings.ReplaceAll(filename, "\n", "")
	filename = strings.ReplaceAll(filename, "\r", "")

	// Quotes (breaking out of Content-Disposition)
	filename = strings.ReplaceAll(filename, `"`, "")
	filename = strings.ReplaceAll(filename, `'`, "")

	// Path separators
	filename = strings.ReplaceAll(filename, `\`, "")
	filename = strings.ReplaceAll(filename, "/", "")

	// Control characters
	result := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, filename)

	// Trim spaces and dots from ends
	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")

	if result == "" {
		return "photo"
	}

	// Keep headers within a sane length
	if len(result) > 200 {
		result = result[:200]
	}

	return result
}

// ForHeader sanitizes a filename for use in HTTP headers. ASCII-only
// fallback for maximum compatibility.
func ForHeader(filename string) string {
	safe := Filename(filename)

	result := strings.Map(func(r rune) rune {
		if r > 127 {
			return '_'
		}
		return r
	}, safe)

	return result
}
