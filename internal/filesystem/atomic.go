package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"album-viewer/internal/logging"
	"album-viewer/internal/metrics"
)

// AtomicWrite publishes data at path by writing a temporary file in the same
// directory and renaming it over the destination. Readers observe either the
// previous file or the complete new one.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func(cause error) error {
		if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return errors.Join(cause, rmErr)
		}
		return cause
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return cleanup(fmt.Errorf("write temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return cleanup(fmt.Errorf("sync temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return cleanup(fmt.Errorf("close temp file: %w", err))
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return cleanup(fmt.Errorf("chmod temp file: %w", err))
	}
	if err := os.Rename(tmpName, path); err != nil {
		return cleanup(fmt.Errorf("rename into place: %w", err))
	}
	return nil
}

// RemoveBestEffort deletes each path, ignoring files that are already gone.
// Other failures are logged and counted under reason, never returned. It
// reports how many files were actually removed.
func RemoveBestEffort(reason string, paths ...string) int {
	removed := 0
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := os.Remove(p)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, fs.ErrNotExist):
		default:
			logging.Warn("Failed to remove %s (%s): %v", p, reason, err)
			metrics.FileRemoveErrors.WithLabelValues(reason).Inc()
		}
	}
	return removed
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := StatWithRetry(path, DefaultRetryConfig())
	return err == nil && info.Mode().IsRegular()
}

// DirExists reports whether path names an existing directory.
func DirExists(path string) bool {
	info, err := StatWithRetry(path, DefaultRetryConfig())
	return err == nil && info.IsDir()
}
