package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-badging/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	DefaultLockTTL  = 10 * time.Second
	DefaultLockWait = 3 * time.Second
	retryInterval   = 25 * time.Millisecond
)

var ErrLockTimeout = errors.New("timed out waiting for badge lock")

// Deletes the key only while it still holds our token, so an expired lock
// that somebody else re-acquired is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// BadgeLock serializes check-in processing per badge across service replicas.
type BadgeLock struct {
	Client *redis.Client
	TTL    time.Duration
	Wait   time.Duration
	Logger *logger.Logger
}

func NewBadgeLock(client *redis.Client, ttl, wait time.Duration, log *logger.Logger) *BadgeLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if wait <= 0 {
		wait = DefaultLockWait
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &BadgeLock{Client: client, TTL: ttl, Wait: wait, Logger: log}
}

func lockKey(badgeID string) string {
	return "badge_lock:" + badgeID
}

// Lock blocks until the badge is ours, the wait expires or ctx is done. The
// returned func releases the lock and is safe to call more than once.
func (l *BadgeLock) Lock(ctx context.Context, badgeID string) (func(), error) {
	key := lockKey(badgeID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.Wait)

	for {
		ok, err := l.Client.SetNX(ctx, key, token, l.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			l.Logger.Warn("REDIS", fmt.Sprintf("Lock wait expired for badge %s", badgeID))
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		if err := l.Unlock(badgeID, token); err != nil {
			l.Logger.Error("REDIS", fmt.Sprintf("Failed to release lock for badge %s: %v", badgeID, err))
		}
	}, nil
}

// Unlock releases the lock when token still owns it.
func (l *BadgeLock) Unlock(badgeID, token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return unlockScript.Run(ctx, l.Client, []string{lockKey(badgeID)}, token).Err()
}
