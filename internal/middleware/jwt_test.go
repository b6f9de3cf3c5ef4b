package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberxpert/internal/domain"
)

// makeToken creates a signed HS256 JWT from the given secret and claims.
func makeToken(secret string, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := token.SignedString([]byte(secret))
	return signed
}

func TestSharedSecretValidator_Validate(t *testing.T) {
	t.Parallel()

	const secret = "backend-signing-key"
	inAnHour := time.Now().Add(time.Hour).Unix()

	rsaToken := func() string {
		key, _ := rsa.GenerateKey(rand.Reader, 2048)
		signed, _ := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"user_id": 1, "exp": inAnHour,
		}).SignedString(key)
		return signed
	}

	tests := []struct {
		name    string
		token   string
		wantErr string
		wantSub interface{}
	}{
		{
			name: "access token",
			token: makeToken(secret, jwt.MapClaims{
				"token_type": "access", "user_id": 7, "username": "alice", "exp": inAnHour,
			}),
			wantSub: json.Number("7"),
		},
		{
			name:    "no token type",
			token:   makeToken(secret, jwt.MapClaims{"user_id": "9", "exp": inAnHour}),
			wantSub: "9",
		},
		{
			name: "within clock skew leeway",
			token: makeToken(secret, jwt.MapClaims{
				"user_id": 3, "exp": time.Now().Add(-2 * time.Second).Unix(),
			}),
			wantSub: json.Number("3"),
		},
		{
			name:    "user_id beyond float precision",
			token:   makeToken(secret, jwt.MapClaims{"user_id": json.Number("9007199254740993"), "exp": inAnHour}),
			wantSub: json.Number("9007199254740993"),
		},
		{
			name: "refresh token",
			token: makeToken(secret, jwt.MapClaims{
				"token_type": "refresh", "user_id": 7, "exp": inAnHour,
			}),
			wantErr: "refresh token cannot authenticate",
		},
		{
			name: "expired",
			token: makeToken(secret, jwt.MapClaims{
				"user_id": 7, "exp": time.Now().Add(-time.Hour).Unix(),
			}),
			wantErr: "jwt parse:",
		},
		{
			name:    "wrong secret",
			token:   makeToken("not-the-key", jwt.MapClaims{"user_id": 7, "exp": inAnHour}),
			wantErr: "jwt parse:",
		},
		{
			name:    "RS256 rejected",
			token:   rsaToken(),
			wantErr: "jwt parse:",
		},
		{
			name:    "malformed",
			token:   "not.a.valid.jwt.token",
			wantErr: "jwt parse:",
		},
		{
			name:    "empty",
			token:   "",
			wantErr: "jwt parse:",
		},
	}

	v := NewSharedSecretValidator(secret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			claims, err := v.Validate(context.Background(), tt.token)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, claims["user_id"])
		})
	}
}

func TestNewOIDCValidatorFromJWKS(t *testing.T) {
	t.Parallel()

	const jwksURL = "https://idp.example.com/.well-known/jwks.json"

	tests := []struct {
		name           string
		issuerURL      string
		allowedIssuers []string
		wantIssuers    map[string]bool
	}{
		{
			name:           "explicit allowlist",
			issuerURL:      "https://idp.example.com",
			allowedIssuers: []string{"https://a.example.com", "https://b.example.com"},
			wantIssuers:    map[string]bool{"https://a.example.com": true, "https://b.example.com": true},
		},
		{
			name:        "defaults to issuer URL",
			issuerURL:   "https://idp.example.com",
			wantIssuers: map[string]bool{"https://idp.example.com": true},
		},
		{
			name:        "no issuer at all",
			wantIssuers: map[string]bool{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := NewOIDCValidatorFromJWKS(context.Background(), jwksURL, tt.issuerURL, "cyberxpert", tt.allowedIssuers)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIssuers, v.allowedIssuers)
			assert.NotNil(t, v.verifier)
		})
	}
}

func TestValidatingDecoder(t *testing.T) {
	t.Parallel()

	const secret = "decoder-secret"
	d := NewValidatingDecoder(NewSharedSecretValidator(secret))

	claims, err := d.Decode(context.Background(), makeToken(secret, jwt.MapClaims{
		"user_id":  42,
		"username": "alice",
		"is_staff": true,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}))
	require.NoError(t, err)
	assert.Equal(t, domain.ID("42"), claims.SubjectID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.Elevated)
	require.NotNil(t, claims.ExpiresAt)

	claims, err = d.Decode(context.Background(), makeToken(secret, jwt.MapClaims{
		"user_id": json.Number("9007199254740993"),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}))
	require.NoError(t, err)
	assert.Equal(t, domain.ID("9007199254740993"), claims.SubjectID)

	_, err = d.Decode(context.Background(), makeToken("other-secret", jwt.MapClaims{"user_id": 42}))
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = d.Decode(context.Background(), makeToken(secret, jwt.MapClaims{"username": "nobody"}))
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "a verified token still needs a subject")
}
