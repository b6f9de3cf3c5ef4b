package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cyberxpert/internal/backend"
	"cyberxpert/internal/cache"
	"cyberxpert/internal/dashboard"
	"cyberxpert/internal/domain"
	"cyberxpert/internal/identity"
	"cyberxpert/internal/session"
)

// runtime is what a command needs to talk to the backend on behalf of the
// persisted session.
type runtime struct {
	store    *session.Store
	client   *backend.Client
	resolver *identity.Resolver
	dash     *dashboard.Service
	logger   *slog.Logger
}

func (o *rootOptions) open(cmd *cobra.Command) (*runtime, error) {
	logger := newLogger(cmd.ErrOrStderr(), o.verbose)
	store, err := session.Open(cmd.Context(), session.Options{
		Backend:       o.session,
		Path:          o.sessionPath,
		EncryptionKey: o.sessionKey,
	})
	if err != nil {
		return nil, err
	}
	return &runtime{
		store:    store,
		client:   backend.NewClient(o.host, ""),
		resolver: identity.NewResolver(store, identity.UnverifiedDecoder{}, logger),
		dash:     dashboard.NewService(cache.New(time.Minute, logger), nil, logger),
		logger:   logger,
	}, nil
}

func (rt *runtime) Close() error {
	return rt.store.Close()
}

// authenticated restores the persisted session, refreshing the access token
// when it has expired. A rejected refresh ends the session.
func (rt *runtime) authenticated(ctx context.Context) (dashboard.Session, error) {
	p, err := rt.resolver.Restore(ctx)
	if errors.Is(err, domain.ErrNoSession) {
		return dashboard.Session{}, fmt.Errorf("%w: run 'cyberxpert login' first", domain.ErrNoSession)
	}
	if err != nil {
		return dashboard.Session{}, err
	}

	tokens := rt.resolver.Tokens()
	claims, err := identity.DecodeToken(tokens.Access)
	if err != nil {
		return dashboard.Session{}, err
	}
	if claims.Expired(time.Now()) {
		p, err = rt.refresh(ctx, tokens)
		if err != nil {
			return dashboard.Session{}, err
		}
		tokens = rt.resolver.Tokens()
	}
	return dashboard.Session{Principal: p, Backend: rt.client.WithToken(tokens.Access)}, nil
}

func (rt *runtime) refresh(ctx context.Context, tokens domain.TokenPair) (*domain.Principal, error) {
	if tokens.Refresh == "" {
		return nil, rt.expire(ctx)
	}
	fresh, err := rt.client.RefreshToken(ctx, tokens.Refresh)
	var unauthenticated *domain.UnauthenticatedError
	if errors.As(err, &unauthenticated) || errors.Is(err, domain.ErrInvalidToken) {
		return nil, rt.expire(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	rt.logger.DebugContext(ctx, "access token refreshed")
	return rt.resolver.UpdateTokens(ctx, fresh)
}

func (rt *runtime) expire(ctx context.Context) error {
	if err := rt.resolver.Logout(ctx, nil); err != nil {
		return err
	}
	return fmt.Errorf("%w: session expired", domain.ErrInvalidToken)
}

// withSession opens the runtime, restores the session and runs fn.
func (o *rootOptions) withSession(cmd *cobra.Command, fn func(rt *runtime, sess dashboard.Session) error) error {
	rt, err := o.open(cmd)
	if err != nil {
		return err
	}
	defer rt.Close() //nolint:errcheck
	sess, err := rt.authenticated(cmd.Context())
	if err != nil {
		return err
	}
	return fn(rt, sess)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd()))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}))
}
