package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/repositories"
)

// HandoffTTL is how long a hand-off entry stays readable. The hand-off cache
// bridges a scheduler-side write to the interactive read that follows it, so
// entries are deliberately short-lived.
const HandoffTTL = time.Minute

// ChartHandoffKey builds the hand-off key for a chart's freshest payload.
func ChartHandoffKey(chartID uuid.UUID) string {
	return fmt.Sprintf("chart_handoff:%s", chartID)
}

// HandoffCache is a TTL'd key/value store for freshly computed payloads.
type HandoffCache interface {
	Put(ctx context.Context, key string, payload []byte) error

	// Get returns the payload, or ErrNotFound on a miss or expired entry.
	Get(ctx context.Context, key string) ([]byte, error)

	Delete(ctx context.Context, key string) error
}

// NewHandoffCache returns the Redis-backed cache when a client is configured,
// falling back to the Postgres table otherwise.
func NewHandoffCache(client *redis.Client, repo repositories.HandoffRepository) HandoffCache {
	if client != nil {
		return &redisHandoff{client: client}
	}
	return &postgresHandoff{repo: repo}
}

type postgresHandoff struct {
	repo repositories.HandoffRepository
}

func (h *postgresHandoff) Put(ctx context.Context, key string, payload []byte) error {
	return h.repo.Put(ctx, key, payload)
}

func (h *postgresHandoff) Get(ctx context.Context, key string) ([]byte, error) {
	return h.repo.Get(ctx, key, HandoffTTL)
}

func (h *postgresHandoff) Delete(ctx context.Context, key string) error {
	return h.repo.Delete(ctx, key)
}

type redisHandoff struct {
	client *redis.Client
}

func (h *redisHandoff) Put(ctx context.Context, key string, payload []byte) error {
	if err := h.client.Set(ctx, key, payload, HandoffTTL).Err(); err != nil {
		return fmt.Errorf("failed to put hand-off entry: %w", err)
	}
	return nil
}

func (h *redisHandoff) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := h.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("hand-off key %q: %w", key, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get hand-off entry: %w", err)
	}
	return payload, nil
}

func (h *redisHandoff) Delete(ctx context.Context, key string) error {
	if err := h.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete hand-off entry: %w", err)
	}
	return nil
}

var (
	_ HandoffCache = (*postgresHandoff)(nil)
	_ HandoffCache = (*redisHandoff)(nil)
)
