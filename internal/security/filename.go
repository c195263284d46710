// Package security holds helpers for handling untrusted names.
package security

import "strings"

const maxFilenameLen = 128

// SanitizeFilename turns an arbitrary identifier, such as a sequence
// source path, into a name safe to embed in a file name or a
// Content-Disposition header. Runs of characters outside [A-Za-z0-9._-]
// become one underscore. Leading and trailing dots and underscores are
// trimmed, and an empty result becomes "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	pendingUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		if isFilenameRune(r) {
			if pendingUnderscore && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingUnderscore = false
			b.WriteRune(r)
			continue
		}
		pendingUnderscore = true
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

func isFilenameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '-':
		return true
	}
	return false
}
