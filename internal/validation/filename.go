package validation

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const maxFilenameLength = 255

// SanitizeFilename makes a user supplied name safe to embed in a local path
// or an object key. Separators, quotes and control characters become
// underscores, leading dots are stripped so the result is never hidden or a
// parent reference, and the name is cut to 255 bytes keeping its extension.
// An unusable name becomes "file".
func SanitizeFilename(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		if replaceInFilename(r) {
			sb.WriteRune('_')
			continue
		}
		sb.WriteRune(r)
	}

	result := strings.TrimLeft(strings.TrimSpace(sb.String()), ".")
	if strings.Trim(result, "_ ") == "" {
		return "file"
	}
	if len(result) > maxFilenameLength {
		result = truncateKeepingExtension(result)
	}
	return result
}

func replaceInFilename(r rune) bool {
	if r < 32 || r == 127 {
		return true
	}
	switch r {
	case '"', '\\', '/', ':', '*', '?', '<', '>', '|':
		return true
	}
	return false
}

func truncateKeepingExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || len(ext) >= maxFilenameLength {
		return truncateToBytes(name, maxFilenameLength)
	}
	base := strings.TrimSuffix(name, ext)
	return truncateToBytes(base, maxFilenameLength-len(ext)) + ext
}

// truncateToBytes cuts s to at most maxBytes without splitting a rune.
func truncateToBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
