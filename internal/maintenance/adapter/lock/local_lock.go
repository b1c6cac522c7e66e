package lock

import (
	"context"
	"sync/atomic"
	"time"

	"queue-maintenance/internal/maintenance/domain/repository"
	"queue-maintenance/internal/shared/errors"
)

// LocalLock is an in-process run guard. The ttl is ignored: the holder
// always releases when its run returns.
type LocalLock struct {
	held atomic.Bool
}

var _ repository.RunLock = (*LocalLock)(nil)

func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

func (l *LocalLock) TryAcquire(_ context.Context, _ time.Duration) (bool, error) {
	return l.held.CompareAndSwap(false, true), nil
}

func (l *LocalLock) Release(_ context.Context) error {
	if !l.held.CompareAndSwap(true, false) {
		return errors.ErrLockNotHeld
	}
	return nil
}
