package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/auth"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

type AuthServiceImpl struct {
	gateway  auth.Gateway
	sessions auth.SessionStore
	jwt.Service
	timeout time.Duration
	now     func() time.Time
}

func NewAuthService(gateway auth.Gateway, sessions auth.SessionStore, jwtService jwt.Service, timeout time.Duration) auth.AuthService {
	return &AuthServiceImpl{
		gateway:  gateway,
		sessions: sessions,
		Service:  jwtService,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Login implements auth.AuthService.
func (a *AuthServiceImpl) Login(ctx context.Context, req auth.LoginRequest) (auth.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return auth.TokenResponse{}, err
	}

	upstreamCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		upstreamCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	tokens, err := a.gateway.Login(upstreamCtx, req.Username, req.Password)
	if err != nil {
		return auth.TokenResponse{}, err
	}

	profile, err := a.gateway.SessionInfo(upstreamCtx, tokens.AccessToken)
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to load session info: %w", err)
	}
	if profile.UserID == "" {
		profile.UserID = tokens.UserID
	}
	if profile.Role == "" {
		profile.Role = tokens.Role
	}
	if profile.UserID == "" {
		return auth.TokenResponse{}, auth.ErrIncompleteProfile
	}
	if profile.AdminID == "" {
		slog.WarnContext(ctx, "Session profile has no admin_id, attendance calls will fail", "user_id", profile.UserID)
	}

	accessToken, expiresAt, err := a.Service.GenerateAccessToken(profile)
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to create access token: %w", err)
	}

	session := auth.Session{
		Profile:      profile,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		CreatedAt:    a.now(),
		ExpiresAt:    time.Unix(expiresAt, 0),
	}
	if err := a.sessions.Save(ctx, profile.UserID, session); err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to save session: %w", err)
	}

	slog.InfoContext(ctx, "User logged in", "user_id", profile.UserID, "role", profile.Role)

	return auth.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        profile,
	}, nil
}

// Logout implements auth.AuthService. The access token stays revoked until it
// would have expired.
func (a *AuthServiceImpl) Logout(ctx context.Context, rawToken string) error {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return err
	}

	expiresAt := a.now().Add(24 * time.Hour).Unix()
	if token, _, err := jwtauth.FromContext(ctx); err == nil && token != nil && !token.Expiration().IsZero() {
		expiresAt = token.Expiration().Unix()
	}
	a.Service.RevokeToken(rawToken, expiresAt)

	if err := a.sessions.Delete(ctx, identity.UserID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Me implements auth.AuthService.
func (a *AuthServiceImpl) Me(ctx context.Context) (auth.Profile, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return auth.Profile{}, err
	}

	session, err := a.sessions.Get(ctx, identity.UserID)
	if err != nil {
		return auth.Profile{}, err
	}
	return session.Profile, nil
}

// SSEToken implements auth.AuthService.
func (a *AuthServiceImpl) SSEToken(ctx context.Context) (auth.SSETokenResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return auth.SSETokenResponse{}, err
	}

	token, expiresIn, err := a.Service.GenerateSSEToken(identity.UserID)
	if err != nil {
		return auth.SSETokenResponse{}, fmt.Errorf("failed to create sse token: %w", err)
	}
	return auth.SSETokenResponse{Token: token, ExpiresIn: expiresIn}, nil
}
