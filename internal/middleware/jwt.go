// Package middleware provides HTTP middleware for the gateway: bearer token
// authentication, request IDs, request logging and rate limiting.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"cyberxpert/internal/domain"
	"cyberxpert/internal/identity"
)

// tokenTypeAccess is the token_type claim the backend puts on access tokens.
// Refresh tokens carry "refresh" and must never authenticate a request.
const tokenTypeAccess = "access"

// JWTValidator verifies a bearer token and returns its claim set.
type JWTValidator interface {
	Validate(ctx context.Context, tokenString string) (jwt.MapClaims, error)
}

// OIDCValidator verifies tokens issued by an external identity provider
// using OIDC discovery or a bare JWKS endpoint.
type OIDCValidator struct {
	verifier       *oidc.IDTokenVerifier
	allowedIssuers map[string]bool
}

// SharedSecretValidator verifies tokens signed by the CyberXpert backend with
// its HS256 signing key.
type SharedSecretValidator struct {
	secret []byte
	leeway time.Duration
}

// NewOIDCValidator creates a validator from an OIDC issuer URL.
func NewOIDCValidator(ctx context.Context, issuerURL, audience string, allowedIssuers []string) (*OIDCValidator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: audience})
	return &OIDCValidator{verifier: verifier, allowedIssuers: issuerSet(allowedIssuers, issuerURL)}, nil
}

// NewOIDCValidatorFromJWKS creates a validator from a JWKS URL (no OIDC discovery).
func NewOIDCValidatorFromJWKS(ctx context.Context, jwksURL, issuerURL, audience string, allowedIssuers []string) (*OIDCValidator, error) {
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	verifier := oidc.NewVerifier(issuerURL, keySet, &oidc.Config{
		ClientID:        audience,
		SkipIssuerCheck: issuerURL == "",
	})
	return &OIDCValidator{verifier: verifier, allowedIssuers: issuerSet(allowedIssuers, issuerURL)}, nil
}

func issuerSet(allowed []string, fallback string) map[string]bool {
	issuers := make(map[string]bool, len(allowed))
	for _, iss := range allowed {
		issuers[iss] = true
	}
	if len(issuers) == 0 && fallback != "" {
		issuers[fallback] = true
	}
	return issuers
}

// Validate verifies the token against the provider's keys and the issuer
// allowlist.
func (v *OIDCValidator) Validate(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	idToken, err := v.verifier.Verify(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if len(v.allowedIssuers) > 0 && !v.allowedIssuers[idToken.Issuer] {
		return nil, fmt.Errorf("issuer %q not in allowed list", idToken.Issuer)
	}

	var fields map[string]json.RawMessage
	if err := idToken.Claims(&fields); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	raw := make(jwt.MapClaims, len(fields))
	for name, value := range fields {
		dec := json.NewDecoder(bytes.NewReader(value))
		dec.UseNumber()
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("parse claim %q: %w", name, err)
		}
		raw[name] = v
	}
	return raw, nil
}

// NewSharedSecretValidator creates a validator for the backend's HS256
// tokens. Expiry is checked with a small leeway for clock skew between the
// gateway and the backend.
func NewSharedSecretValidator(secret string) *SharedSecretValidator {
	return &SharedSecretValidator{secret: []byte(secret), leeway: 5 * time.Second}
}

// Validate verifies an HS256 signature and lifetime. Tokens that declare a
// token_type other than access are rejected.
func (v *SharedSecretValidator) Validate(_ context.Context, tokenString string) (jwt.MapClaims, error) {
	raw := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, raw, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithJSONNumber(),
	)
	if err != nil {
		return nil, fmt.Errorf("jwt parse: %w", err)
	}
	if typ, ok := raw["token_type"].(string); ok && typ != tokenTypeAccess {
		return nil, fmt.Errorf("jwt parse: %s token cannot authenticate requests", typ)
	}
	return raw, nil
}

// ValidatingDecoder is an identity.Decoder that checks the token signature
// with a JWTValidator before extracting claims.
type ValidatingDecoder struct {
	validator JWTValidator
}

var _ identity.Decoder = (*ValidatingDecoder)(nil)

// NewValidatingDecoder wraps v as an identity.Decoder.
func NewValidatingDecoder(v JWTValidator) *ValidatingDecoder {
	return &ValidatingDecoder{validator: v}
}

// Decode implements identity.Decoder.
func (d *ValidatingDecoder) Decode(ctx context.Context, token string) (*domain.TokenClaims, error) {
	c, err := d.validator.Validate(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	return identity.ClaimsFromMap(c)
}
