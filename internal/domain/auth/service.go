package auth

import (
	"context"
	"time"
)

// Session binds a BFF user to the backend tokens obtained at login.
type Session struct {
	Profile      Profile   `json:"profile"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Identity is the caller as asserted by a verified BFF access token.
type Identity struct {
	UserID         string
	AdminID        string
	OrganizationID string
	Email          string
	Role           string
}

// SessionStore keeps backend tokens per user.
type SessionStore interface {
	Save(ctx context.Context, userID string, session Session) error
	// Get returns ErrSessionNotFound when there is no live session.
	Get(ctx context.Context, userID string) (Session, error)
	Delete(ctx context.Context, userID string) error
}

// Gateway is the remote HRMS authentication API.
type Gateway interface {
	Login(ctx context.Context, username, password string) (UpstreamTokens, error)
	SessionInfo(ctx context.Context, accessToken string) (Profile, error)
}

type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (TokenResponse, error)
	Logout(ctx context.Context, rawToken string) error
	Me(ctx context.Context) (Profile, error)
	SSEToken(ctx context.Context) (SSETokenResponse, error)
}
