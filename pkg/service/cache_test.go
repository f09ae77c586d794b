package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortlink/pkg/storage"
)

// fakeCache is an in-memory stand-in for the Redis cache.
type fakeCache struct {
	entries map[string]*storage.Mapping
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*storage.Mapping)}
}

func (f *fakeCache) Get(ctx context.Context, code string) (*storage.Mapping, error) {
	return f.entries[code], nil
}

func (f *fakeCache) Set(ctx context.Context, code string, mapping *storage.Mapping, ttl time.Duration) error {
	f.entries[code] = mapping
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, code string) error {
	delete(f.entries, code)
	return nil
}

func newCachedService(t *testing.T) (*MappingService, *countingStore, *fakeCache) {
	t.Helper()
	svc, counting := newTestService(t)
	fc := newFakeCache()
	svc.cache = fc
	return svc, counting, fc
}

func TestResolveUsesCache(t *testing.T) {
	svc, counting, fc := newCachedService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "abc123", "https://example.com", nil)
	require.NoError(t, err)

	// First resolve fills the cache from the store.
	_, err = svc.Resolve(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, 1, counting.lookups)
	assert.Contains(t, fc.entries, "abc123")

	// Second resolve is served from the cache.
	resolved, err := svc.Resolve(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", resolved.TargetURL)
	assert.Equal(t, 1, counting.lookups)
}

func TestUpdateInvalidatesCache(t *testing.T) {
	svc, _, fc := newCachedService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "abc123", "https://example.com", nil)
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, "abc123")
	require.NoError(t, err)
	require.Contains(t, fc.entries, "abc123")

	_, err = svc.Update(ctx, created.ID, "https://changed.example.com", nil)
	require.NoError(t, err)
	assert.NotContains(t, fc.entries, "abc123")

	resolved, err := svc.Resolve(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://changed.example.com", resolved.TargetURL)
}

func TestDeleteInvalidatesCache(t *testing.T) {
	svc, _, fc := newCachedService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "abc123", "https://example.com", nil)
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, "abc123")
	require.NoError(t, err)
	require.Contains(t, fc.entries, "abc123")

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.NotContains(t, fc.entries, "abc123")

	_, err = svc.Resolve(ctx, "abc123")
	assert.ErrorIs(t, err, ErrNotFound)
}
