package insight

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// HotCache maps a cache key to the id of the completed query serving it.
type HotCache interface {
	Get(ctx context.Context, key string) (int64, bool, error)
	Set(ctx context.Context, key string, queryID int64, ttl time.Duration) error
}

func CacheKey(normalizedQuery, source string) string {
	sum := sha256.Sum256([]byte(normalizedQuery))
	return fmt.Sprintf("marketlens:insight:%s:%x", source, sum)
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (int64, bool, error) {
	id, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, queryID int64, ttl time.Duration) error {
	return c.client.Set(ctx, key, queryID, ttl).Err()
}
