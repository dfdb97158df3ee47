package validation

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple filename", input: "video.mp4", expected: "video.mp4"},
		{name: "spaces kept", input: "my video file.mp4", expected: "my video file.mp4"},
		{name: "unicode kept", input: "café 日本.mov", expected: "café 日本.mov"},
		{name: "path traversal", input: "../../etc/passwd", expected: "_.._etc_passwd"},
		{name: "windows path", input: `C:\Users\clip.avi`, expected: "C__Users_clip.avi"},
		{name: "hidden file", input: ".bashrc", expected: "bashrc"},
		{name: "quotes and newlines", input: "a\"b\nc.mp4", expected: "a_b_c.mp4"},
		{name: "shell glob chars", input: "clip*?.mp4", expected: "clip__.mp4"},
		{name: "empty", input: "", expected: "file"},
		{name: "only separators", input: "///", expected: "file"},
		{name: "only dots", input: "..", expected: "file"},
		{name: "whitespace", input: "   ", expected: "file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilename_Truncates(t *testing.T) {
	long := strings.Repeat("a", 300) + ".mp4"
	got := SanitizeFilename(long)
	assert.Len(t, got, maxFilenameLength)
	assert.True(t, strings.HasSuffix(got, ".mp4"))

	multibyte := strings.Repeat("日", 100) + ".mov"
	got = SanitizeFilename(multibyte)
	assert.LessOrEqual(t, len(got), maxFilenameLength)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, ".mov"))
}
