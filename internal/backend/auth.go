package backend

import (
	"context"
	"net/http"

	"cyberxpert/internal/domain"
)

const (
	pathLogin   = "/api/auth/login/"
	pathSignup  = "/api/auth/register/"
	pathLogout  = "/api/auth/logout/"
	pathRefresh = "/api/auth/token/refresh/"
	pathMe      = "/api/auth/me/"
)

// authResponse covers both shapes the backend uses for issued tokens: flat
// access/refresh fields or a nested tokens object.
type authResponse struct {
	Access  string            `json:"access"`
	Refresh string            `json:"refresh"`
	Tokens  *domain.TokenPair `json:"tokens"`
	User    *domain.RawUser   `json:"user"`
}

func (r authResponse) pair() domain.TokenPair {
	if r.Tokens != nil && r.Tokens.Access != "" {
		return *r.Tokens
	}
	return domain.TokenPair{Access: r.Access, Refresh: r.Refresh}
}

// Login exchanges credentials for a token pair and the user object.
func (c *Client) Login(ctx context.Context, email, password string) (domain.TokenPair, *domain.RawUser, error) {
	body := map[string]string{"email": email, "password": password}
	return c.issue(ctx, pathLogin, body)
}

// Signup registers a developer account and signs it in.
func (c *Client) Signup(ctx context.Context, req domain.SignupRequest) (domain.TokenPair, *domain.RawUser, error) {
	if err := req.Validate(); err != nil {
		return domain.TokenPair{}, nil, err
	}
	return c.issue(ctx, pathSignup, req)
}

func (c *Client) issue(ctx context.Context, path string, body interface{}) (domain.TokenPair, *domain.RawUser, error) {
	var out authResponse
	if err := c.call(ctx, http.MethodPost, path, body, &out); err != nil {
		return domain.TokenPair{}, nil, err
	}
	pair := out.pair()
	if pair.Access == "" {
		return domain.TokenPair{}, nil, domain.ErrInvalidToken
	}
	return pair, out.User, nil
}

// Logout blacklists the refresh token on the backend.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.call(ctx, http.MethodPost, pathLogout, map[string]string{"refresh": refreshToken}, nil)
}

// RefreshToken trades a refresh token for a new pair. The backend may omit
// the refresh token when rotation is off.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	var out authResponse
	if err := c.call(ctx, http.MethodPost, pathRefresh, map[string]string{"refresh": refreshToken}, &out); err != nil {
		return domain.TokenPair{}, err
	}
	pair := out.pair()
	if pair.Access == "" {
		return domain.TokenPair{}, domain.ErrInvalidToken
	}
	return pair, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*domain.RawUser, error) {
	var u domain.RawUser
	if err := c.call(ctx, http.MethodGet, pathMe, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
