package gateway

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bnema/videofactory/internal/infrastructure/logger"
)

// CleanupResult lists what a cleanup pass removed and what it could not.
type CleanupResult struct {
	RemovedFiles []string
	RemovedDirs  []string
	FreedBytes   int64
	Errors       []error
}

// CleanupLocal deletes files under root whose modification time is older
// than maxAge, then removes directories left empty. root itself is kept.
func CleanupLocal(root string, maxAge time.Duration, now time.Time) CleanupResult {
	var result CleanupResult
	cutoff := now.Add(-maxAge)
	var dirs []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			result.Errors = append(result.Errors, err)
			return nil
		}
		if d.IsDir() {
			if path != root {
				dirs = append(dirs, path)
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			result.Errors = append(result.Errors, err)
			return nil
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("remove %s: %w", path, err))
			return nil
		}
		result.RemovedFiles = append(result.RemovedFiles, path)
		result.FreedBytes += info.Size()
		return nil
	})
	if err != nil {
		result.Errors = append(result.Errors, err)
	}

	// Deepest first so parents empty out after their children.
	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], string(os.PathSeparator)) > strings.Count(dirs[j], string(os.PathSeparator))
	})
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("remove %s: %w", dir, err))
			continue
		}
		result.RemovedDirs = append(result.RemovedDirs, dir)
	}

	if len(result.RemovedFiles) > 0 || len(result.RemovedDirs) > 0 {
		logger.Info.Printf("cleanup root=%s files=%d dirs=%d freed=%d errors=%d",
			root, len(result.RemovedFiles), len(result.RemovedDirs), result.FreedBytes, len(result.Errors))
	}
	return result
}
