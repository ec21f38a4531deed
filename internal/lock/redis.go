package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker is a Locker shared by every instance connected to the same Redis.
type RedisLocker struct {
	client     redis.UniversalClient
	ttl        time.Duration
	retryEvery time.Duration
	logger     *zap.Logger
}

// NewRedisLocker builds a lock with the given expiry and polling interval.
func NewRedisLocker(client redis.UniversalClient, ttl, retryEvery time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if retryEvery <= 0 {
		retryEvery = 25 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{client: client, ttl: ttl, retryEvery: retryEvery, logger: logger}
}

// Lock polls SET NX until it wins or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l == nil || l.client == nil {
		return nil, errors.New("redis locker not configured")
	}
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryEvery)
	defer ticker.Stop()

	for {
		acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if acquired {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// Release must outlive a cancelled request context.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
