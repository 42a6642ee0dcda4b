package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a lease lock shared by every service instance. A holder that
// dies keeps the key until ttl expires.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	prefix string
	log    *zap.SugaredLogger
}

func NewLocker(client *redis.Client, ttl time.Duration, log *zap.SugaredLogger) *Locker {
	return &Locker{
		client: client,
		ttl:    ttl,
		retry:  10 * time.Millisecond,
		prefix: "lock:",
		log:    log,
	}
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	full := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() { l.release(full, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-time.After(l.retry):
		}
	}
}

// release only deletes the key while it still holds token. A failed release
// leaves the key to expire with its ttl.
func (l *Locker) release(key, token string) {
	deleted, err := releaseScript.Run(context.Background(), l.client, []string{key}, token).Int()
	switch {
	case err != nil:
		l.log.Errorw("failed to release lock, it will expire with its ttl", "key", key, "ttl", l.ttl, "error", err)
	case deleted == 0:
		l.log.Warnw("lock lease expired before release", "key", key, "ttl", l.ttl)
	}
}
