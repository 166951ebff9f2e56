package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// noDateMarker stands in for an absent window bound in cache keys. Real
// bounds are RFC3339 timestamps, so the marker can never collide.
const noDateMarker = "none"

// CacheService provides the dashboard summary cache: JSON payloads in
// Redis under compound keys, with a fixed TTL.
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	return &CacheService{
		redis: redis,
		ttl:   ttl,
	}
}

// TTL returns the configured cache entry lifetime
func (c *CacheService) TTL() time.Duration {
	return c.ttl
}

// SummaryKey builds the deterministic cache key for a dashboard summary
// request. Identical inputs always produce the identical key.
// Format: dashboard:summary:<userID>:<start>:<end>
func (c *CacheService) SummaryKey(userID string, startDate, endDate *time.Time) string {
	parts := []string{"dashboard", "summary", userID, formatBound(startDate), formatBound(endDate)}
	return strings.Join(parts, ":")
}

func formatBound(t *time.Time) string {
	if t == nil {
		return noDateMarker
	}
	return t.UTC().Format(time.RFC3339)
}

// Set stores a value under key with the configured TTL
func (c *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cached value: %w", err)
	}
	return c.redis.Set(ctx, key, data, c.ttl)
}

// Get retrieves a value and deserializes it into dest. The boolean
// reports a hit; a miss is not an error.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read from cache: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return true, nil
}

// Invalidate removes one or more keys from the cache
func (c *CacheService) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...)
}
