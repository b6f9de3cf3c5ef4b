package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"cyberxpert/internal/domain"
)

// Resolver owns the lifecycle of the current Principal: it is created on
// login or signup, replaced on profile or status updates, and destroyed on
// logout. The in-memory slot and the session store are updated together.
type Resolver struct {
	store   domain.SessionStore
	decoder Decoder
	logger  *slog.Logger

	mu      sync.RWMutex
	current *domain.Principal
	tokens  domain.TokenPair
}

// NewResolver creates a Resolver. A nil decoder falls back to
// UnverifiedDecoder and a nil logger to slog.Default().
func NewResolver(store domain.SessionStore, decoder Decoder, logger *slog.Logger) *Resolver {
	if decoder == nil {
		decoder = UnverifiedDecoder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, decoder: decoder, logger: logger}
}

// Login establishes a session from a successful backend login.
func (r *Resolver) Login(ctx context.Context, tokens domain.TokenPair, raw *domain.RawUser) (*domain.Principal, error) {
	p, err := r.establish(ctx, tokens, raw)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	r.logger.InfoContext(ctx, "session established", "principal_id", p.ID, "role", p.Role)
	return p, nil
}

// Signup establishes a session from a successful backend registration.
func (r *Resolver) Signup(ctx context.Context, tokens domain.TokenPair, raw *domain.RawUser) (*domain.Principal, error) {
	p, err := r.establish(ctx, tokens, raw)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	r.logger.InfoContext(ctx, "account registered", "principal_id", p.ID, "role", p.Role)
	return p, nil
}

func (r *Resolver) establish(ctx context.Context, tokens domain.TokenPair, raw *domain.RawUser) (*domain.Principal, error) {
	claims, err := r.decoder.Decode(ctx, tokens.Access)
	if err != nil {
		return nil, err
	}
	p := Reconcile(claims, raw)
	if err := r.persist(ctx, p, tokens); err != nil {
		return nil, err
	}
	r.set(p, tokens)
	return p.Clone(), nil
}

// Restore loads the persisted session. A token that no longer decodes tears
// the whole session down and yields ErrInvalidToken; an empty store yields
// ErrNoSession.
func (r *Resolver) Restore(ctx context.Context) (*domain.Principal, error) {
	access, ok, err := r.store.Get(ctx, domain.SessionKeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if !ok || access == "" {
		return nil, domain.ErrNoSession
	}
	refresh, _, err := r.store.Get(ctx, domain.SessionKeyRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	tokens := domain.TokenPair{Access: access, Refresh: refresh}

	existing, err := r.loadPrincipal(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "discarding unreadable cached principal", "error", err)
		existing = nil
	}

	claims, err := r.decoder.Decode(ctx, access)
	if err != nil {
		r.logger.WarnContext(ctx, "cached token is invalid, clearing session", "error", err)
		if clearErr := r.clear(ctx); clearErr != nil {
			return nil, errors.Join(fmt.Errorf("restore session: %w", err), clearErr)
		}
		return nil, fmt.Errorf("restore session: %w", err)
	}

	p := refreshFromClaims(claims, existing)
	if !reflect.DeepEqual(p, existing) {
		if err := r.persist(ctx, p, tokens); err != nil {
			return nil, err
		}
	}
	r.set(p, tokens)
	return p.Clone(), nil
}

// Current returns a copy of the current principal, or nil when logged out.
func (r *Resolver) Current() *domain.Principal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.Clone()
}

// Tokens returns the tokens of the current session.
func (r *Resolver) Tokens() domain.TokenPair {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tokens
}

// Replace swaps the principal wholesale after a profile update or status
// change. The role is re-derived from the session token so it never drifts
// from the token's claims.
func (r *Resolver) Replace(ctx context.Context, p *domain.Principal) (*domain.Principal, error) {
	if p == nil {
		return nil, domain.ErrValidation("principal is required")
	}
	tokens := r.Tokens()
	if tokens.Access == "" {
		return nil, domain.ErrNoSession
	}
	claims, err := r.decoder.Decode(ctx, tokens.Access)
	if err != nil {
		return nil, fmt.Errorf("replace principal: %w", err)
	}
	next := refreshFromClaims(claims, p)
	if err := r.persist(ctx, next, tokens); err != nil {
		return nil, err
	}
	r.set(next, tokens)
	return next.Clone(), nil
}

// UpdateTokens installs a refreshed token pair and re-derives the principal
// from the new access token. An empty refresh token keeps the previous one.
func (r *Resolver) UpdateTokens(ctx context.Context, tokens domain.TokenPair) (*domain.Principal, error) {
	prev := r.Tokens()
	if tokens.Refresh == "" {
		tokens.Refresh = prev.Refresh
	}
	claims, err := r.decoder.Decode(ctx, tokens.Access)
	if err != nil {
		return nil, fmt.Errorf("update tokens: %w", err)
	}
	next := refreshFromClaims(claims, r.Current())
	if err := r.persist(ctx, next, tokens); err != nil {
		return nil, err
	}
	r.set(next, tokens)
	return next.Clone(), nil
}

// Logout ends the session. The remote call is attempted first, but local
// teardown happens regardless of its outcome. Only a failure to clear the
// local store is returned.
func (r *Resolver) Logout(ctx context.Context, remote func(ctx context.Context) error) error {
	if remote != nil {
		if err := remote(ctx); err != nil {
			r.logger.WarnContext(ctx, "remote logout failed, clearing local session anyway", "error", err)
		}
	}
	if err := r.clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	r.logger.InfoContext(ctx, "session cleared")
	return nil
}

func (r *Resolver) set(p *domain.Principal, tokens domain.TokenPair) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = p.Clone()
	r.tokens = tokens
}

func (r *Resolver) clear(ctx context.Context) error {
	r.mu.Lock()
	r.current = nil
	r.tokens = domain.TokenPair{}
	r.mu.Unlock()
	return r.store.Delete(ctx, domain.SessionKeys...)
}

func (r *Resolver) persist(ctx context.Context, p *domain.Principal, tokens domain.TokenPair) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode principal: %w", err)
	}
	entries := map[string]string{
		domain.SessionKeyUser:         string(data),
		domain.SessionKeyAccessToken:  tokens.Access,
		domain.SessionKeyRefreshToken: tokens.Refresh,
	}
	if err := r.store.SetAll(ctx, entries); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

func (r *Resolver) loadPrincipal(ctx context.Context) (*domain.Principal, error) {
	data, ok, err := r.store.Get(ctx, domain.SessionKeyUser)
	if err != nil {
		return nil, err
	}
	if !ok || data == "" {
		return nil, nil
	}
	var p domain.Principal
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("decode principal: %w", err)
	}
	return &p, nil
}
