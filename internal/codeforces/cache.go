package codeforces

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "cf:user:"

// RedisCache keeps lookups in Redis for a fixed TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache wraps an existing client.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// handles are case-insensitive on Codeforces
func cacheKey(handle string) string {
	return cacheKeyPrefix + strings.ToLower(handle)
}

// Get returns the cached info for handle, if any.
func (c *RedisCache) Get(ctx context.Context, handle string) (UserInfo, bool, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(handle)).Bytes()
	if errors.Is(err, redis.Nil) {
		return UserInfo{}, false, nil
	}
	if err != nil {
		return UserInfo{}, false, err
	}

	var info UserInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return UserInfo{}, false, err
	}
	return info, true, nil
}

// Set stores info under handle with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, handle string, info UserInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cacheKey(handle), raw, c.ttl).Err()
}

// Invalidate drops the cached entry so the next lookup goes to the API.
func (c *RedisCache) Invalidate(ctx context.Context, handle string) error {
	return c.rdb.Del(ctx, cacheKey(handle)).Err()
}
