package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

const retryInterval = 25 * time.Millisecond

// Redis holds locks as expiring keys, for deployments that share a Redis
// instance but not a database session. A holder that outlives ttl loses
// the lock.
type Redis struct {
	rdb  redis.UniversalClient
	ttl  time.Duration
	wait time.Duration
	log  *zap.Logger
}

func NewRedis(rdb redis.UniversalClient, ttl, wait time.Duration, log *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &Redis{rdb: rdb, ttl: ttl, wait: wait, log: log.With(zap.String("lock", "redis"))}
}

func redisKey(key string) string {
	return "cinema:lock:" + key
}

func (r *Redis) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	rkey := redisKey(key)
	token := uuid.NewString()
	deadline := time.Now().Add(r.wait)

	for {
		ok, err := r.rdb.SetNX(ctx, rkey, token, r.ttl).Result()
		if err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrTimeout, key)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	defer func() {
		if err := releaseScript.Run(context.Background(), r.rdb, []string{rkey}, token).Err(); err != nil {
			r.log.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}()

	return fn(ctx)
}
