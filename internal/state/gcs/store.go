// Package gcs provides a watch-state store backed by Google Cloud Storage,
// for runs on ephemeral schedulers where only object storage is durable.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/jakepage91/page-watcher/internal/watcher"
)

// Config captures the parameters required to locate the state object.
type Config struct {
	Bucket string
	Object string
}

// Store persists the WatchState as a JSON object in a GCS bucket. Object
// replacement in GCS is atomic, so the temp-then-rename discipline of the
// file store is not needed here.
type Store struct {
	client *storage.Client
	cfg    Config
	logger *zap.Logger
}

// New creates a GCS-backed store.
func New(client *storage.Client, cfg Config, logger *zap.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.Object == "" {
		return nil, fmt.Errorf("object name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, cfg: cfg, logger: logger}, nil
}

// Load reads the state object. A missing or corrupt object maps to
// watcher.ErrNoState, matching the file store.
func (s *Store) Load(ctx context.Context) (watcher.WatchState, error) {
	reader, err := s.client.Bucket(s.cfg.Bucket).Object(s.cfg.Object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return watcher.WatchState{}, watcher.ErrNoState
		}
		return watcher.WatchState{}, fmt.Errorf("open state object: %w", err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return watcher.WatchState{}, fmt.Errorf("read state object: %w", err)
	}

	var state watcher.WatchState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("state object corrupt, treating as first run",
			zap.String("bucket", s.cfg.Bucket),
			zap.String("object", s.cfg.Object),
			zap.Error(err),
		)
		return watcher.WatchState{}, watcher.ErrNoState
	}
	return state, nil
}

// Save overwrites the state object.
func (s *Store) Save(ctx context.Context, state watcher.WatchState) error {
	path := fmt.Sprintf("gs://%s/%s", s.cfg.Bucket, s.cfg.Object)
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return &watcher.StateSaveError{Path: path, Err: fmt.Errorf("marshal state: %w", err)}
	}

	writer := s.client.Bucket(s.cfg.Bucket).Object(s.cfg.Object).NewWriter(ctx)
	writer.ContentType = "application/json"
	if _, err := writer.Write(data); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return &watcher.StateSaveError{Path: path, Err: fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)}
		}
		return &watcher.StateSaveError{Path: path, Err: fmt.Errorf("write object: %w", err)}
	}
	if err := writer.Close(); err != nil {
		return &watcher.StateSaveError{Path: path, Err: fmt.Errorf("close writer: %w", err)}
	}
	return nil
}
