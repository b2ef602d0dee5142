// Package file implements a local filesystem watch-state store.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jakepage91/page-watcher/internal/watcher"
)

// Store persists the WatchState as a single JSON record at a fixed path.
// Saves are atomic: the record is written to a temp file in the same
// directory and renamed over the old one, so a crash mid-write never leaves
// a truncated state behind.
type Store struct {
	path   string
	logger *zap.Logger
}

// New creates a file-backed store. The parent directory is created on the
// first save, not here, so a read-only first run needs no privileges.
func New(path string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("state path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}, nil
}

// Load reads the prior state. Missing and corrupt files both return
// watcher.ErrNoState: corruption is logged and treated as no prior state,
// never surfaced to the caller.
func (s *Store) Load(_ context.Context) (watcher.WatchState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return watcher.WatchState{}, watcher.ErrNoState
		}
		s.logger.Warn("state file unreadable, treating as first run",
			zap.String("path", s.path), zap.Error(err))
		return watcher.WatchState{}, watcher.ErrNoState
	}

	var state watcher.WatchState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("state file corrupt, treating as first run",
			zap.String("path", s.path), zap.Error(err))
		return watcher.WatchState{}, watcher.ErrNoState
	}
	return state, nil
}

// Save writes the state atomically.
func (s *Store) Save(_ context.Context, state watcher.WatchState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return &watcher.StateSaveError{Path: s.path, Err: fmt.Errorf("marshal state: %w", err)}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return &watcher.StateSaveError{Path: s.path, Err: fmt.Errorf("create state dir: %w", err)}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return &watcher.StateSaveError{Path: s.path, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &watcher.StateSaveError{Path: s.path, Err: fmt.Errorf("write temp file: %w", err)}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &watcher.StateSaveError{Path: s.path, Err: fmt.Errorf("sync temp file: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &watcher.StateSaveError{Path: s.path, Err: fmt.Errorf("close temp file: %w", err)}
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return &watcher.StateSaveError{Path: s.path, Err: fmt.Errorf("chmod temp file: %w", err)}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return &watcher.StateSaveError{Path: s.path, Err: fmt.Errorf("rename temp file: %w", err)}
	}
	return nil
}
