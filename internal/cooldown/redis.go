package cooldown

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend uses native SETEX/TTL expiry.
type RedisBackend struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisBackend bounds every probe by timeout so a dead server cannot
// stall the dispatch path.
func NewRedisBackend(client *redis.Client, timeout time.Duration) *RedisBackend {
	return &RedisBackend{client: client, timeout: timeout}
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) probeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.timeout)
}

// Remaining maps TTL's -2 (missing) and -1 (no expiry) to 0.
func (b *RedisBackend) Remaining(ctx context.Context, key string) (time.Duration, error) {
	ctx, cancel := b.probeCtx(ctx)
	defer cancel()
	ttl, err := b.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

// Arm rounds d up to whole seconds, the SETEX resolution.
func (b *RedisBackend) Arm(ctx context.Context, key string, d time.Duration) error {
	ctx, cancel := b.probeCtx(ctx)
	defer cancel()
	secs := (d + time.Second - 1) / time.Second
	return b.client.SetEx(ctx, key, 1, secs*time.Second).Err()
}
