package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/membership-service/internal/config"
	"github.com/magabrotheeeer/membership-service/internal/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{Addr: mr.Addr()}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestSetAndGet_Plans(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	expected := []*models.Plan{
		{ID: 2, Name: "Gold", Price: 100, DurationInDays: 30, Features: []string{"gym"}, IsActive: true},
		{ID: 1, Name: "Silver", Price: 50, DurationInDays: 15, Features: []string{}, IsActive: true},
	}
	require.NoError(t, cache.Set(ctx, KeyPlansActive, expected, time.Minute))

	var actual []*models.Plan
	found, err := cache.Get(ctx, KeyPlansActive, &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGetNotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	var out models.Location
	found, err := cache.Get(context.Background(), GeoKey("10.0.0.1"), &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSet_Expires(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, GeoKey("1.1.1.1"), models.Location{City: "Sydney"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	var out models.Location
	found, err := cache.Get(ctx, GeoKey("1.1.1.1"), &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, KeyPlansActive, []int{1}, time.Minute))
	require.NoError(t, cache.Set(ctx, KeyPlansAll, []int{1, 2}, time.Minute))

	require.NoError(t, cache.Invalidate(ctx, KeyPlansActive, KeyPlansAll))
	require.NoError(t, cache.Invalidate(ctx))

	var out []int
	for _, key := range []string{KeyPlansActive, KeyPlansAll} {
		found, err := cache.Get(ctx, key, &out)
		require.NoError(t, err)
		assert.False(t, found, key)
	}
}

func TestGetInvalidJSON(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Db.Set(ctx, "bad", []byte("not-json"), time.Minute).Err())

	var out models.Location
	found, err := cache.Get(ctx, "bad", &out)
	assert.False(t, found)
	assert.Error(t, err)
}

func TestInitServerInvalidAddr(t *testing.T) {
	cfg := config.RedisConnection{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	}

	cache, err := InitServer(context.Background(), cfg)
	assert.Nil(t, cache)
	assert.Error(t, err)
}
