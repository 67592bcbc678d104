package inmem

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type redisClient struct {
	redis  goredis.UniversalClient
	prefix string
}

// NewRedisClient keeps sessions as Redis keys under "session:" that expire
// on their own.
func NewRedisClient(c goredis.UniversalClient) Client {
	return &redisClient{redis: c, prefix: "session:"}
}

func (c *redisClient) Get(ctx context.Context, key string) error {
	n, err := c.redis.Exists(ctx, c.prefix+key).Result()
	if err != nil {
		return err
	}

	if n == 0 {
		return ErrKeyNotFound
	}

	return nil
}

func (c *redisClient) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.redis.Set(ctx, c.prefix+key, value, ttl).Err()
}

func (c *redisClient) Delete(ctx context.Context, key string) error {
	return c.redis.Del(ctx, c.prefix+key).Err()
}
