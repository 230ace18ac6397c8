package reminders

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLock is a once-per-key guard backed by SET NX.
type RedisLock struct {
	client redis.Cmdable
}

func NewRedisLock(client redis.Cmdable) *RedisLock {
	return &RedisLock{client: client}
}

// Acquire reports true for exactly one caller per key until ttl expires.
func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// Release drops key so the next Acquire succeeds.
func (l *RedisLock) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}
