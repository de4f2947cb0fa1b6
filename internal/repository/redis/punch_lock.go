package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type punchLockImpl struct {
	client *redis.Client
}

// NewPunchLock guards punches across every BFF instance sharing the Redis.
func NewPunchLock(client *redis.Client) attendance.PunchLock {
	return &punchLockImpl{client: client}
}

func (l *punchLockImpl) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	fullKey := Key("lock", "punch", key)
	owner := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, owner, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire punch lock: %w", err)
	}
	if !ok {
		return nil, attendance.ErrPunchInProgress
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// The request context may already be cancelled here.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{fullKey}, owner).Err(); err != nil {
				slog.Warn("Failed to release punch lock", "key", fullKey, "error", err)
			}
		})
	}
	return release, nil
}
