package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCacheRepo struct{}

func (failingCacheRepo) Get(ctx context.Context, key string, dest interface{}) error { return errBoom }

func (failingCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errBoom
}

func (failingCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error { return errBoom }

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	svc := NewCacheService(newMemoryCacheRepo(), nil, 0, nil, false)
	var out string

	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	assert.NoError(t, svc.Invalidate(context.Background(), "*"))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestCacheServiceRecordsHitsAndMisses(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(newMemoryCacheRepo(), metrics, time.Minute, nil, true)
	ctx := context.Background()
	var out string

	hit, err := svc.Get(ctx, "match:trip-1:s1", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "match:trip-1:s1", "cached", 0))
	hit, err = svc.Get(ctx, "match:trip-1:s1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "cached", out)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	svc := NewCacheService(failingCacheRepo{}, nil, 0, nil, true)
	var out string

	_, err := svc.Get(context.Background(), "k", &out)
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, svc.Set(context.Background(), "k", "v", 0), errBoom)
	assert.ErrorIs(t, svc.Invalidate(context.Background(), "match:*"), errBoom)
}
