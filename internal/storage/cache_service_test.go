package storage

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCacheService(t *testing.T, ttl time.Duration) (*CacheService, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewCacheService(NewRedisCacheFromClient(client), ttl), mr
}

func TestSummaryKey(t *testing.T) {
	svc, _ := setupTestCacheService(t, 5*time.Minute)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		startDate *time.Time
		endDate   *time.Time
		want      string
	}{
		{
			name:      "both bounds set",
			startDate: &start,
			endDate:   &end,
			want:      "dashboard:summary:user-1:2026-01-01T00:00:00Z:2026-01-31T00:00:00Z",
		},
		{
			name: "no bounds",
			want: "dashboard:summary:user-1:none:none",
		},
		{
			name:      "start only",
			startDate: &start,
			want:      "dashboard:summary:user-1:2026-01-01T00:00:00Z:none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.SummaryKey("user-1", tt.startDate, tt.endDate))
		})
	}
}

func TestCacheService_SetGet(t *testing.T) {
	svc, _ := setupTestCacheService(t, 5*time.Minute)
	ctx := testContext(t)

	type payload struct {
		NetWorth string `json:"netWorth"`
	}

	key := svc.SummaryKey("user-1", nil, nil)
	require.NoError(t, svc.Set(ctx, key, payload{NetWorth: "1250.50"}))

	var got payload
	hit, err := svc.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "1250.50", got.NetWorth)
}

func TestCacheService_GetMiss(t *testing.T) {
	svc, _ := setupTestCacheService(t, 5*time.Minute)
	ctx := testContext(t)

	var got map[string]interface{}
	hit, err := svc.Get(ctx, "dashboard:summary:missing:none:none", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheService_TTLExpiry(t *testing.T) {
	svc, mr := setupTestCacheService(t, 300*time.Second)
	ctx := testContext(t)

	key := svc.SummaryKey("user-1", nil, nil)
	require.NoError(t, svc.Set(ctx, key, "cached"))

	// Entries expire after the configured TTL, not before.
	mr.FastForward(299 * time.Second)
	var got string
	hit, err := svc.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, hit)

	mr.FastForward(2 * time.Second)
	hit, err = svc.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheService_Invalidate(t *testing.T) {
	svc, _ := setupTestCacheService(t, 5*time.Minute)
	ctx := testContext(t)

	key := svc.SummaryKey("user-1", nil, nil)
	require.NoError(t, svc.Set(ctx, key, "cached"))
	require.NoError(t, svc.Invalidate(ctx, key))

	var got string
	hit, err := svc.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}
