package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
)

type punchLockImpl struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

// NewPunchLock returns an in-process punch guard. A lock whose ttl elapsed is
// treated as released so a crashed flow cannot block a user forever.
func NewPunchLock() attendance.PunchLock {
	return &punchLockImpl{
		held: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (l *punchLockImpl) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expiresAt, ok := l.held[key]; ok && now.Before(expiresAt) {
		return nil, attendance.ErrPunchInProgress
	}
	expiresAt := now.Add(ttl)
	l.held[key] = expiresAt

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.held[key].Equal(expiresAt) {
				delete(l.held, key)
			}
		})
	}
	return release, nil
}
