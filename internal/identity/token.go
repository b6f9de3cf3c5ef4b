package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"cyberxpert/internal/domain"
)

// Decoder turns a session token into the claims the client relies on.
// Failures wrap domain.ErrInvalidToken.
type Decoder interface {
	Decode(ctx context.Context, token string) (*domain.TokenClaims, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, token string) (*domain.TokenClaims, error)

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, token string) (*domain.TokenClaims, error) {
	return f(ctx, token)
}

// UnverifiedDecoder reads token claims without checking the signature, the
// way a browser client inspects its own access token. Signature checks are
// the backend's job; use a validating decoder when the gateway must trust
// tokens on its own.
type UnverifiedDecoder struct{}

// Decode implements Decoder.
func (UnverifiedDecoder) Decode(_ context.Context, token string) (*domain.TokenClaims, error) {
	return DecodeToken(token)
}

// elevatedClaims are the boolean claims that grant the admin role.
var elevatedClaims = []string{"is_staff", "is_superuser", "admin"}

// DecodeToken decodes the payload of a JWT. Wrong segment count, invalid
// base64, unparseable JSON, or a missing subject all yield ErrInvalidToken.
// The header is not inspected. Numeric claims keep their exact digits.
func DecodeToken(token string) (*domain.TokenClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: token has %d segments, want 3", domain.ErrInvalidToken, len(parts))
	}
	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", domain.ErrInvalidToken, err)
	}
	raw, err := decodeClaimSet(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: parse payload: %v", domain.ErrInvalidToken, err)
	}
	return ClaimsFromMap(raw)
}

func decodeClaimSet(payload []byte) (jwt.MapClaims, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var raw jwt.MapClaims
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ClaimsFromMap extracts TokenClaims from a decoded claim set. The subject is
// read from user_id, falling back to sub.
func ClaimsFromMap(raw map[string]interface{}) (*domain.TokenClaims, error) {
	sub := stringClaim(raw["user_id"])
	if sub == "" {
		sub = stringClaim(raw["sub"])
	}
	if sub == "" {
		return nil, fmt.Errorf("%w: token has no subject", domain.ErrInvalidToken)
	}

	claims := &domain.TokenClaims{
		SubjectID: domain.ID(sub),
		Username:  stringClaim(raw["username"]),
		Email:     stringClaim(raw["email"]),
	}
	for _, name := range elevatedClaims {
		if b, ok := raw[name].(bool); ok && b {
			claims.Elevated = true
			break
		}
	}
	if exp, err := jwt.MapClaims(raw).GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		claims.ExpiresAt = &t
	}
	return claims, nil
}

func stringClaim(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(s, 10)
	case int:
		return strconv.Itoa(s)
	default:
		return ""
	}
}
