package storage

import (
	"path/filepath"
	"strings"
)

// fallbackName replaces a filename that sanitizes to nothing.
const fallbackName = "upload"

// SanitizeFilename keeps only ASCII letters, digits, '.', '_' and '-'.
// A name with nothing left becomes "upload".
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return fallbackName
	}
	return b.String()
}

// Ext returns the lowercased extension of a sanitized filename.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
