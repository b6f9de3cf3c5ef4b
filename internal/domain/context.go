package domain

import "context"

type sessionKey struct{}

// RequestSession carries the caller's bearer token and decoded claims
// through request context.
type RequestSession struct {
	Token  string
	Claims TokenClaims
}

// WithRequestSession stores a RequestSession in the context.
func WithRequestSession(ctx context.Context, s RequestSession) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// RequestSessionFromContext extracts the RequestSession from the context.
func RequestSessionFromContext(ctx context.Context) (RequestSession, bool) {
	s, ok := ctx.Value(sessionKey{}).(RequestSession)
	return s, ok
}
