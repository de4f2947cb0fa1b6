package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/auth"
	"github.com/redis/go-redis/v9"
)

type sessionRepositoryImpl struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) auth.SessionStore {
	return &sessionRepositoryImpl{client: client}
}

func (r *sessionRepositoryImpl) Save(ctx context.Context, userID string, session auth.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	var ttl time.Duration
	if !session.ExpiresAt.IsZero() {
		ttl = time.Until(session.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}

	if err := r.client.Set(ctx, Key("session", userID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *sessionRepositoryImpl) Get(ctx context.Context, userID string) (auth.Session, error) {
	payload, err := r.client.Get(ctx, Key("session", userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return auth.Session{}, auth.ErrSessionNotFound
		}
		return auth.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	var session auth.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return auth.Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return session, nil
}

func (r *sessionRepositoryImpl) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, Key("session", userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
