package db

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Redis stays nil when REDIS_URL is empty; callers treat that as "no hot cache".
var Redis *redis.Client

func ConnectRedis(ctx context.Context, redisURL string) error {
	if redisURL == "" {
		return nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return err
	}

	Redis = client
	return nil
}

func CloseRedis() {
	if Redis != nil {
		Redis.Close()
	}
}
