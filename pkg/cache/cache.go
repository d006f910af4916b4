// Package cache implements the durable result cache (database pointer plus
// JSON payload file) and the short-lived hand-off cache used between the
// scheduler and interactive reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/models"
	"github.com/chartops/chart-engine/pkg/repositories"
)

// Store is the durable result cache. Each entry is a pointer record in the
// database plus a JSON payload file on disk; reads degrade to a miss on any
// failure so cached-data paths never surface cache errors to callers.
type Store struct {
	records repositories.CacheRecordRepository
	dir     string
	logger  *zap.Logger
}

// NewStore creates a result cache rooted at dir, creating it if needed.
func NewStore(records repositories.CacheRecordRepository, dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}

	return &Store{
		records: records,
		dir:     dir,
		logger:  logger.Named("cache"),
	}, nil
}

// Put writes payload under key: payload file first, pointer second, so a
// crash between the two leaves at worst an orphaned file, never a pointer to
// a missing payload. The superseded payload file is removed in the
// background, best effort.
func (s *Store) Put(ctx context.Context, key string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode cache payload for %q: %w", key, err)
	}

	filePath := filepath.Join(s.dir, uuid.NewString()+".json")
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache payload for %q: %w", key, err)
	}

	previous, err := s.records.Upsert(ctx, &models.CacheRecord{Key: key, FilePath: filePath})
	if err != nil {
		// The pointer still references the old payload; discard the new file.
		_ = os.Remove(filePath)
		return err
	}

	if previous != "" && previous != filePath {
		go s.removeFile(previous)
	}

	return nil
}

// Get returns the cached payload for key. It never returns an error: a
// missing pointer, a missing or unreadable payload file, and a database
// failure all report a miss, with non-miss causes logged.
func (s *Store) Get(ctx context.Context, key string) (map[string]any, bool) {
	record, err := s.records.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("cache pointer lookup failed", zap.String("key", key), zap.Error(err))
		}
		return map[string]any{}, false
	}

	data, err := os.ReadFile(record.FilePath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cache payload read failed", zap.String("key", key), zap.Error(err))
		}
		return map[string]any{}, false
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		s.logger.Warn("cache payload corrupt", zap.String("key", key), zap.Error(err))
		return map[string]any{}, false
	}

	return payload, true
}

// Remove deletes the entry for key, pointer and payload file both. A missing
// entry is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	previous, err := s.records.Delete(ctx, key)
	if err != nil {
		return err
	}

	if previous != "" {
		s.removeFile(previous)
	}

	return nil
}

func (s *Store) removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("cache payload cleanup failed", zap.String("path", path), zap.Error(err))
	}
}
