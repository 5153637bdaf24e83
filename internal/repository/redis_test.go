package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisRepo(t *testing.T) (*RedisRateLimitRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRateLimitRepository(client), mr
}

func TestRedisRateLimit(t *testing.T) {
	repo, _ := newMiniredisRepo(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := repo.CheckRateLimit(ctx, "203.0.113.7", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := repo.CheckRateLimit(ctx, "203.0.113.7", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRedisRateLimitWindowExpiry(t *testing.T) {
	repo, mr := newMiniredisRepo(t)
	ctx := context.Background()

	allowed, err := repo.CheckRateLimit(ctx, "key", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = repo.CheckRateLimit(ctx, "key", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	mr.FastForward(2 * time.Minute)

	allowed, err = repo.CheckRateLimit(ctx, "key", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimitNilClient(t *testing.T) {
	repo := NewRedisRateLimitRepository(nil)
	_, err := repo.CheckRateLimit(context.Background(), "key", 1, time.Minute)
	assert.Error(t, err)
}
