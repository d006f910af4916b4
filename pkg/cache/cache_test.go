package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/models"
	"github.com/chartops/chart-engine/pkg/repositories"
)

// fakeRecordRepo is an in-memory CacheRecordRepository.
type fakeRecordRepo struct {
	mu      sync.Mutex
	records map[string]models.CacheRecord
	failing bool
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: make(map[string]models.CacheRecord)}
}

func (f *fakeRecordRepo) Upsert(ctx context.Context, record *models.CacheRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return "", errors.New("database down")
	}
	previous := f.records[record.Key].FilePath
	record.UpdatedAt = time.Now()
	f.records[record.Key] = *record
	return previous, nil
}

func (f *fakeRecordRepo) Get(ctx context.Context, key string) (*models.CacheRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errors.New("database down")
	}
	record, ok := f.records[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &record, nil
}

func (f *fakeRecordRepo) Delete(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[key]
	if !ok {
		return "", nil
	}
	delete(f.records, key)
	return record.FilePath, nil
}

var _ repositories.CacheRecordRepository = (*fakeRecordRepo)(nil)

func newTestStore(t *testing.T) (*Store, *fakeRecordRepo) {
	t.Helper()
	repo := newFakeRecordRepo()
	store, err := NewStore(repo, t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return store, repo
}

func TestStore_PutThenGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	payload := map[string]any{"data": []any{map[string]any{"id": float64(1)}}}
	require.NoError(t, store.Put(ctx, "data_request:abc", payload))

	got, ok := store.Get(ctx, "data_request:abc")
	require.True(t, ok)
	assert.Equal(t, payload, got)
}

func TestStore_GetMissReturnsEmptyMap(t *testing.T) {
	store, _ := newTestStore(t)

	got, ok := store.Get(context.Background(), "missing")
	assert.False(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_GetNeverFailsOnRepositoryError(t *testing.T) {
	store, repo := newTestStore(t)
	repo.failing = true

	got, ok := store.Get(context.Background(), "any")
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestStore_GetDegradesToMissWhenFileMissing(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", map[string]any{"a": float64(1)}))

	repo.mu.Lock()
	path := repo.records["k"].FilePath
	repo.mu.Unlock()
	require.NoError(t, os.Remove(path))

	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestStore_GetDegradesToMissOnCorruptPayload(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", map[string]any{"a": float64(1)}))

	repo.mu.Lock()
	path := repo.records["k"].FilePath
	repo.mu.Unlock()
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestStore_PutReplacesRecordWholesale(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", map[string]any{"v": float64(1)}))
	repo.mu.Lock()
	firstPath := repo.records["k"].FilePath
	repo.mu.Unlock()

	require.NoError(t, store.Put(ctx, "k", map[string]any{"v": float64(2)}))

	got, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, float64(2), got["v"])

	// One live record per key; the superseded file is cleaned up.
	assert.Eventually(t, func() bool {
		_, err := os.Stat(firstPath)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStore_PutFailedPointerDiscardsNewFile(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()
	repo.failing = true

	err := store.Put(ctx, "k", map[string]any{"v": float64(1)})
	require.Error(t, err)

	entries, err := os.ReadDir(store.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_Remove(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", map[string]any{"v": float64(1)}))
	repo.mu.Lock()
	path := repo.records["k"].FilePath
	repo.mu.Unlock()

	require.NoError(t, store.Remove(ctx, "k"))

	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Removing a missing key is fine.
	assert.NoError(t, store.Remove(ctx, "k"))
}

func TestStore_PayloadFilesLiveInDir(t *testing.T) {
	repo := newFakeRecordRepo()
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	store, err := NewStore(repo, dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "k", map[string]any{}))

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, dir, filepath.Dir(repo.records["k"].FilePath))
}
