package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/database"
	"github.com/chartops/chart-engine/pkg/models"
)

// CacheRecordRepository stores durable cache pointer records: the payload
// itself lives on disk, the database holds only the key -> file mapping.
type CacheRecordRepository interface {
	// Upsert writes the pointer for a key, replacing any previous one, and
	// returns the file path the previous pointer referenced ("" if none).
	Upsert(ctx context.Context, record *models.CacheRecord) (previousPath string, err error)

	// Get retrieves the pointer for a key. Returns ErrNotFound on a miss.
	Get(ctx context.Context, key string) (*models.CacheRecord, error)

	// Delete removes the pointer for a key and returns the file path it
	// referenced. A missing key is not an error.
	Delete(ctx context.Context, key string) (previousPath string, err error)
}

type cacheRecordRepository struct {
	db *database.DB
}

// NewCacheRecordRepository creates a new cache record repository.
func NewCacheRecordRepository(db *database.DB) CacheRecordRepository {
	return &cacheRecordRepository{db: db}
}

func (r *cacheRecordRepository) Upsert(ctx context.Context, record *models.CacheRecord) (string, error) {
	record.UpdatedAt = time.Now()

	// RETURNING the pre-update path lets the caller clean up the orphaned
	// payload file without a second round trip.
	query := `
		INSERT INTO engine_cache_records (cache_key, file_path, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO UPDATE
		SET file_path = EXCLUDED.file_path, updated_at = EXCLUDED.updated_at
		RETURNING (SELECT file_path FROM engine_cache_records WHERE cache_key = $1)`

	var previous *string
	err := r.db.QueryRow(ctx, query, record.Key, record.FilePath, record.UpdatedAt).Scan(&previous)
	if err != nil {
		return "", fmt.Errorf("failed to upsert cache record: %w", err)
	}

	if previous != nil {
		return *previous, nil
	}
	return "", nil
}

func (r *cacheRecordRepository) Get(ctx context.Context, key string) (*models.CacheRecord, error) {
	query := `
		SELECT cache_key, file_path, updated_at
		FROM engine_cache_records
		WHERE cache_key = $1`

	var record models.CacheRecord
	err := r.db.QueryRow(ctx, query, key).Scan(&record.Key, &record.FilePath, &record.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("cache key %q: %w", key, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cache record: %w", err)
	}

	return &record, nil
}

func (r *cacheRecordRepository) Delete(ctx context.Context, key string) (string, error) {
	query := `
		DELETE FROM engine_cache_records
		WHERE cache_key = $1
		RETURNING file_path`

	var previous string
	err := r.db.QueryRow(ctx, query, key).Scan(&previous)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to delete cache record: %w", err)
	}

	return previous, nil
}

var _ CacheRecordRepository = (*cacheRecordRepository)(nil)
