package hrmsapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/auth"
	"golang.org/x/oauth2"
)

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string                `json:"access_token"`
	RefreshToken string                `json:"refresh_token"`
	UserID       attendance.FlexibleID `json:"user_id"`
	Role         string                `json:"role"`
}

type sessionInfoResponse struct {
	Data struct {
		UserID         attendance.FlexibleID `json:"user_id"`
		Email          string                `json:"email"`
		Username       string                `json:"username"`
		Role           string                `json:"role"`
		UserName       string                `json:"user_name"`
		OrganizationID attendance.FlexibleID `json:"organization_id"`
		AdminID        attendance.FlexibleID `json:"admin_id"`
	} `json:"data"`
}

// Login exchanges credentials for backend tokens.
func (c *Client) Login(ctx context.Context, username, password string) (auth.UpstreamTokens, error) {
	var resp loginResponse
	err := c.do(ctx, request{
		op:     "login",
		method: http.MethodPost,
		path:   "/api/login",
		body:   loginBody{Username: username, Password: password},
	}, &resp)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnauthorized) {
			return auth.UpstreamTokens{}, fmt.Errorf("%w: %s", auth.ErrInvalidCredentials, apiErr.Message)
		}
		return auth.UpstreamTokens{}, err
	}
	if resp.AccessToken == "" {
		return auth.UpstreamTokens{}, &Error{Op: "login", Message: "login response carried no access token", Err: ErrMalformedPayload}
	}

	return auth.UpstreamTokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.UserID.String(),
		Role:         resp.Role,
	}, nil
}

// SessionInfo fetches the profile bound to an access token.
func (c *Client) SessionInfo(ctx context.Context, accessToken string) (auth.Profile, error) {
	var resp sessionInfoResponse
	err := c.do(ctx, request{
		op:     "session-info",
		method: http.MethodGet,
		path:   "/api/session-info",
		source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
	}, &resp)
	if err != nil {
		return auth.Profile{}, err
	}

	d := resp.Data
	return auth.Profile{
		UserID:         d.UserID.String(),
		Email:          d.Email,
		Username:       d.Username,
		Role:           d.Role,
		UserName:       d.UserName,
		OrganizationID: d.OrganizationID.String(),
		AdminID:        d.AdminID.String(),
	}, nil
}

// SessionTokens serves bearer tokens from a session store.
type SessionTokens struct {
	Store auth.SessionStore
}

func (s SessionTokens) TokenSource(ctx context.Context, userID string) oauth2.TokenSource {
	return &sessionTokenSource{ctx: ctx, store: s.Store, userID: userID}
}

type sessionTokenSource struct {
	ctx    context.Context
	store  auth.SessionStore
	userID string
}

func (s *sessionTokenSource) Token() (*oauth2.Token, error) {
	session, err := s.store.Get(s.ctx, s.userID)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: session.AccessToken, TokenType: "Bearer"}, nil
}
