package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-allocation/internal/logger"
	"ms-allocation/internal/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	defaultLockTTL  = 5 * time.Second
	defaultLockWait = 2 * time.Second
)

var errLockHeld = errors.New("quota lock held")

// Deletes the key only if it still carries our token, so a lock that
// expired and was re-acquired by someone else is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// QuotaLock is a per-(user, event) advisory lock. Holding it across the
// quota check and the claim insert closes the read-then-act race.
type QuotaLock struct {
	Client *redis.Client
	TTL    time.Duration
	Wait   time.Duration
	Logger *logger.Logger
}

func NewQuotaLock(client *redis.Client, ttl, wait time.Duration, log *logger.Logger) *QuotaLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &QuotaLock{Client: client, TTL: ttl, Wait: wait, Logger: log}
}

func lockKey(userID, eventID int64) string {
	return fmt.Sprintf("quota_lock:%d:%d", eventID, userID)
}

// Acquire retries with exponential backoff for up to Wait and then gives up
// with models.ErrQuotaLockBusy.
func (l *QuotaLock) Acquire(ctx context.Context, userID, eventID int64) (func(), error) {
	key := lockKey(userID, eventID)
	token := uuid.NewString()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = l.Wait

	err := backoff.Retry(func() error {
		ok, err := l.Client.SetNX(ctx, key, token, l.TTL).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errLockHeld
		}
		return nil
	}, backoff.WithContext(bo, ctx))

	switch {
	case err == nil:
	case errors.Is(err, errLockHeld):
		return nil, fmt.Errorf("%w: user %d event %d", models.ErrQuotaLockBusy, userID, eventID)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		return nil, fmt.Errorf("acquire quota lock: %w: %w", models.ErrStoreUnavailable, err)
	}

	return func() { l.unlock(key, token) }, nil
}

func (l *QuotaLock) unlock(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := unlockScript.Run(ctx, l.Client, []string{key}, token).Err(); err != nil && err != redis.Nil {
		// The TTL frees the key eventually.
		l.Logger.Warn("REDIS", fmt.Sprintf("failed to release %s: %v", key, err))
	}
}
