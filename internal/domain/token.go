package domain

import "time"

// Session storage keys. All three are written and cleared together.
const (
	SessionKeyUser         = "user"
	SessionKeyAccessToken  = "access_token"
	SessionKeyRefreshToken = "refresh_token"
)

// SessionKeys lists every key owned by a session.
var SessionKeys = []string{SessionKeyUser, SessionKeyAccessToken, SessionKeyRefreshToken}

// TokenClaims holds the claims the client relies on from a session token.
type TokenClaims struct {
	SubjectID ID
	Username  string
	Email     string
	Elevated  bool
	ExpiresAt *time.Time
}

// TokenPair is the access/refresh token pair issued by the backend.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Session is the persisted client session.
type Session struct {
	Principal *Principal
	Tokens    TokenPair
}

// Expired reports whether the claims carry an expiry at or before now.
func (c *TokenClaims) Expired(now time.Time) bool {
	return c != nil && c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}
