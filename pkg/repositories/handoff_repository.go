package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/database"
)

// HandoffRepository is the Postgres backend for the short-lived hand-off
// cache. Expiry is enforced at read time: Get treats a stale row as a miss
// and deletes it.
type HandoffRepository interface {
	Put(ctx context.Context, key string, payload []byte) error

	// Get returns the payload for a key if it was written within maxAge.
	// Returns ErrNotFound on a miss or an expired entry.
	Get(ctx context.Context, key string, maxAge time.Duration) ([]byte, error)

	Delete(ctx context.Context, key string) error
}

type handoffRepository struct {
	db *database.DB
}

// NewHandoffRepository creates a new hand-off cache repository.
func NewHandoffRepository(db *database.DB) HandoffRepository {
	return &handoffRepository{db: db}
}

func (r *handoffRepository) Put(ctx context.Context, key string, payload []byte) error {
	query := `
		INSERT INTO engine_handoff_cache (cache_key, payload, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO UPDATE
		SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at`

	if _, err := r.db.Exec(ctx, query, key, payload, time.Now()); err != nil {
		return fmt.Errorf("failed to put hand-off entry: %w", err)
	}

	return nil
}

func (r *handoffRepository) Get(ctx context.Context, key string, maxAge time.Duration) ([]byte, error) {
	query := `
		SELECT payload, created_at
		FROM engine_handoff_cache
		WHERE cache_key = $1`

	var payload []byte
	var createdAt time.Time
	err := r.db.QueryRow(ctx, query, key).Scan(&payload, &createdAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("hand-off key %q: %w", key, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get hand-off entry: %w", err)
	}

	if time.Since(createdAt) > maxAge {
		// Self-clean on read; a failed delete just leaves the row for the
		// next reader.
		_, _ = r.db.Exec(ctx, `DELETE FROM engine_handoff_cache WHERE cache_key = $1`, key)
		return nil, fmt.Errorf("hand-off key %q expired: %w", key, apperrors.ErrNotFound)
	}

	return payload, nil
}

func (r *handoffRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM engine_handoff_cache WHERE cache_key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete hand-off entry: %w", err)
	}
	return nil
}

var _ HandoffRepository = (*handoffRepository)(nil)
