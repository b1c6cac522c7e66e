package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"queue-maintenance/internal/maintenance/domain/repository"
	"queue-maintenance/internal/shared/errors"
	"queue-maintenance/internal/shared/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultLockKey is the Redis key shared by every replica
const DefaultLockKey = "queue-maintenance:reset-run"

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a run guard shared across processes through a Redis key with
// an expiry, so a crashed holder cannot block runs forever.
type RedisLock struct {
	client *redis.Client
	key    string
	logger logger.Logger

	mu    sync.Mutex
	token string
}

var _ repository.RunLock = (*RedisLock)(nil)

// NewRedisLock creates a lock on key; an empty key uses DefaultLockKey
func NewRedisLock(client *redis.Client, key string, log logger.Logger) *RedisLock {
	if key == "" {
		key = DefaultLockKey
	}
	return &RedisLock{client: client, key: key, logger: log}
}

// TryAcquire sets the key if absent
func (l *RedisLock) TryAcquire(ctx context.Context, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return false, errors.NewInfrastructureError("failed to acquire run lock").WithCause(err)
	}
	if !ok {
		l.logger.Debug("Run lock held elsewhere", zap.String("key", l.key))
		return false, nil
	}

	l.mu.Lock()
	l.token = token
	l.mu.Unlock()
	return true, nil
}

// Release deletes the key if this instance still owns it
func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()

	if token == "" {
		return errors.ErrLockNotHeld
	}

	deleted, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int()
	if err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	if deleted == 0 {
		// expired and possibly taken by another replica
		return errors.ErrLockNotHeld
	}
	return nil
}
