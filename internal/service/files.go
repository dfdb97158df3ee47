package service

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/infrastructure/logger"
	"github.com/bnema/videofactory/internal/subtitle"
	"github.com/bnema/videofactory/internal/validation"
)

// artifactReady reports whether path holds a finished stage artifact.
func artifactReady(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// fileExists reports whether path is a regular file, empty or not.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// partPath is the scratch file a stage writes before its artifact is
// renamed into place. The extension is kept for tools that pick the
// container format from it.
func partPath(path string) string {
	return filepath.Join(filepath.Dir(path), ".part_"+filepath.Base(path))
}

func discard(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn.Printf("remove %s: %v", path, err)
	}
}

func readSubtitles(path string) ([]domain.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return subtitle.Parse(f)
}

func writeSubtitles(path string, segments []domain.Segment) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := subtitle.Write(f, segments); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// objectKey places name under area/owner/. The owner is reduced to a single
// path segment.
func objectKey(area, owner, name string) string {
	return area + "/" + validation.SanitizeFilename(owner) + "/" + name
}

// copyFile writes src to dst through a temp file in dst's directory.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".copy-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
