package util

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// BaseTitle returns the filename without directory or extension, reduced to
// filesystem-safe runes for use in output names.
func BaseTitle(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return SanitizeTitle(name)
}

// SanitizeTitle keeps letters, digits, spaces, dashes and underscores,
// collapses spaces to underscores, and trims the result.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), "_")
	if cleaned == "" {
		return "video"
	}
	return cleaned
}
