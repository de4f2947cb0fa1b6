package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/auth"
)

type sessionRepositoryImpl struct {
	mu       sync.RWMutex
	sessions map[string]auth.Session
	now      func() time.Time
}

// NewSessionRepository keeps sessions in process memory. Sessions are lost
// on restart, so it only suits single-instance deployments.
func NewSessionRepository() auth.SessionStore {
	return &sessionRepositoryImpl{
		sessions: make(map[string]auth.Session),
		now:      time.Now,
	}
}

func (r *sessionRepositoryImpl) Save(ctx context.Context, userID string, session auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID] = session
	return nil
}

func (r *sessionRepositoryImpl) Get(ctx context.Context, userID string) (auth.Session, error) {
	r.mu.RLock()
	session, ok := r.sessions[userID]
	r.mu.RUnlock()

	if !ok {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	if !session.ExpiresAt.IsZero() && r.now().After(session.ExpiresAt) {
		_ = r.Delete(ctx, userID)
		return auth.Session{}, auth.ErrSessionNotFound
	}
	return session, nil
}

func (r *sessionRepositoryImpl) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
	return nil
}
