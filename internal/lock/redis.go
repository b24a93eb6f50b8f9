package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tablebook/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the key only while it still carries our token, so an
// expired lock re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares slot locks between API instances.
type RedisLocker struct {
	client    *redis.Client
	ttl       time.Duration
	retryWait time.Duration
	prefix    string
	logger    *zerolog.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{
		client:    client,
		ttl:       ttl,
		retryWait: 25 * time.Millisecond,
		prefix:    "lock:",
		logger:    logger,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: waiting for lock %s: %v", domain.ErrUnavailable, key, ctx.Err())
			}
			return nil, fmt.Errorf("%w: acquire lock %s: %v", domain.ErrUnavailable, key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retryWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: waiting for lock %s: %v", domain.ErrUnavailable, key, ctx.Err())
		case <-timer.C:
		}
	}

	return func() {
		// Release must run even when the request context is already done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn().Err(err).Str("key", key).Msg("Failed to release slot lock")
		}
	}, nil
}
