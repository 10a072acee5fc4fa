package resultsdir

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"strainmanifest/internal/logging"
)

// ResetResult contains the outcome of a Reset.
type ResetResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its removal error.
type CleanupError struct {
	Path  string
	Error error
}

// Err returns the first removal error, or nil.
func (r ResetResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0].Error
}

// Reset removes every regular file in dir except the lock file, plus the
// named subdirectories. Other subdirectories are left alone.
func Reset(ctx context.Context, dir string, subdirs []string, logger *slog.Logger) ResetResult {
	result := ResetResult{}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return result
	}

	owned := make(map[string]struct{}, len(subdirs))
	for _, sub := range subdirs {
		sub = strings.Trim(strings.TrimSpace(sub), "/")
		if sub == "" {
			continue
		}
		owned[strings.SplitN(sub, "/", 2)[0]] = struct{}{}
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: ctx.Err()})
			return result
		}
		name := entry.Name()
		if name == LockFile {
			continue
		}
		entryPath := filepath.Join(dir, name)

		var removeErr error
		switch {
		case entry.IsDir():
			if _, ok := owned[name]; !ok {
				continue
			}
			removeErr = os.RemoveAll(entryPath)
		case entry.Type().IsRegular():
			removeErr = os.Remove(entryPath)
		default:
			continue
		}

		if removeErr != nil {
			result.Errors = append(result.Errors, CleanupError{Path: entryPath, Error: removeErr})
			logger.Warn("failed to remove results entry",
				logging.String("path", entryPath),
				logging.Error(removeErr),
				logging.String(logging.FieldEventType, "reset_failed"),
				logging.String(logging.FieldErrorHint, "check results_dir permissions"),
				logging.String(logging.FieldImpact, "stale artifacts may be reused"),
			)
			continue
		}
		result.Removed = append(result.Removed, entryPath)
		logger.Debug("removed results entry",
			logging.String("path", entryPath),
			logging.String(logging.FieldEventType, "reset"),
		)
	}

	return result
}
