package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/videofactory/internal/domain"
)

// Rules are the upload limits. Zero values disable a limit.
type Rules struct {
	MaxSizeBytes       int64
	MaxDurationSeconds float64
}

func invalid(msg string, args ...any) error {
	return domain.Wrap(domain.ErrValidation, "validate", fmt.Sprintf(msg, args...), nil)
}

func CheckExtension(filename string) error {
	if filename == "" {
		return invalid("no file provided")
	}
	if !domain.IsVideoFilename(filename) {
		return invalid("unsupported file format %q, supported formats: %s",
			strings.ToLower(filepath.Ext(filename)), strings.Join(domain.VideoExtensions(), ", "))
	}
	return nil
}

// CheckFile verifies the extension of name, the size of the file at path and
// that its content is an accepted video container. It returns the detected
// MIME type and size.
func (r Rules) CheckFile(path, name string) (string, int64, error) {
	if err := CheckExtension(name); err != nil {
		return "", 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("stat upload: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return "", 0, invalid("file is empty")
	}
	if r.MaxSizeBytes > 0 && size > r.MaxSizeBytes {
		return "", size, invalid("file too large: %.1fMB, maximum allowed: %.1fMB",
			float64(size)/(1<<20), float64(r.MaxSizeBytes)/(1<<20))
	}

	mime, allowed, err := DetectVideoType(f)
	if err != nil {
		return "", size, fmt.Errorf("read upload header: %w", err)
	}
	if !allowed {
		return mime, size, invalid("file content does not match a supported video format, detected %s", mime)
	}
	return mime, size, nil
}

func (r Rules) CheckDuration(seconds float64) error {
	if seconds <= 0 {
		return invalid("could not determine video duration")
	}
	if r.MaxDurationSeconds > 0 && seconds > r.MaxDurationSeconds {
		return invalid("video too long: %.1fs, maximum allowed: %.1fs", seconds, r.MaxDurationSeconds)
	}
	return nil
}
