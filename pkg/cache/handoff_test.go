package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/repositories"
)

// fakeHandoffRepo is an in-memory HandoffRepository with read-time expiry,
// matching the Postgres backend's contract.
type fakeHandoffRepo struct {
	mu      sync.Mutex
	entries map[string]struct {
		payload   []byte
		createdAt time.Time
	}
}

func newFakeHandoffRepo() *fakeHandoffRepo {
	return &fakeHandoffRepo{entries: make(map[string]struct {
		payload   []byte
		createdAt time.Time
	})}
}

func (f *fakeHandoffRepo) Put(ctx context.Context, key string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = struct {
		payload   []byte
		createdAt time.Time
	}{payload, time.Now()}
	return nil
}

func (f *fakeHandoffRepo) Get(ctx context.Context, key string, maxAge time.Duration) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if time.Since(entry.createdAt) > maxAge {
		delete(f.entries, key)
		return nil, apperrors.ErrNotFound
	}
	return entry.payload, nil
}

func (f *fakeHandoffRepo) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	return nil
}

var _ repositories.HandoffRepository = (*fakeHandoffRepo)(nil)

func TestNewHandoffCache_FallsBackToPostgres(t *testing.T) {
	cache := NewHandoffCache(nil, newFakeHandoffRepo())
	_, ok := cache.(*postgresHandoff)
	assert.True(t, ok)
}

func TestPostgresHandoff_PutGetDelete(t *testing.T) {
	cache := NewHandoffCache(nil, newFakeHandoffRepo())
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "k", []byte(`{"a":1}`)))

	payload, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(payload))

	require.NoError(t, cache.Delete(ctx, "k"))
	_, err = cache.Get(ctx, "k")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgresHandoff_ExpiredEntryIsAMiss(t *testing.T) {
	repo := newFakeHandoffRepo()
	cache := NewHandoffCache(nil, repo)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "k", []byte("x")))

	repo.mu.Lock()
	entry := repo.entries["k"]
	entry.createdAt = time.Now().Add(-2 * HandoffTTL)
	repo.entries["k"] = entry
	repo.mu.Unlock()

	_, err := cache.Get(ctx, "k")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestChartHandoffKey(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.Equal(t, "chart_handoff:6ba7b810-9dad-11d1-80b4-00c04fd430c8", ChartHandoffKey(id))
}
