package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"cyberxpert/internal/api"
	"cyberxpert/internal/backend"
	"cyberxpert/internal/cache"
	"cyberxpert/internal/config"
	"cyberxpert/internal/dashboard"
	"cyberxpert/internal/domain"
	"cyberxpert/internal/identity"
	"cyberxpert/internal/middleware"
	"cyberxpert/internal/visibility"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	decoder, err := newDecoder(ctx, cfg.Auth, logger)
	if err != nil {
		return err
	}

	menu, err := loadMenu(cfg.MenuFile)
	if err != nil {
		return err
	}

	svc := dashboard.NewService(cache.New(cfg.CacheTTL, logger), menu, logger)
	upstream := backend.NewClient(cfg.APIBaseURL, "")
	handler := api.NewHandler(svc, func(token string) domain.Backend {
		return upstream.WithToken(token)
	}, decoder, logger)

	router := api.NewRouter(ctx, handler, decoder, api.RouterConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		RequestTimeout: cfg.RequestTimeout,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening",
			"addr", cfg.ListenAddr,
			"upstream", cfg.APIBaseURL,
			"tls", cfg.TLSCertFile != "",
		)
		if cfg.TLSCertFile != "" {
			errCh <- srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
			return
		}
		logger.Info(fmt.Sprintf("try: curl -H 'Authorization: Bearer <jwt>' http://%s/v1/me", curlHostForListenAddr(cfg.ListenAddr)))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     cfg.SlogLevel(),
			AddSource: true,
		}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cfg.SlogLevel(),
		TimeFormat: time.Kitchen,
		AddSource:  true,
	}))
}

// newDecoder picks how bearer tokens are checked: an OIDC provider, the
// backend's shared HS256 secret, or plain decoding when neither is set.
func newDecoder(ctx context.Context, auth config.AuthConfig, logger *slog.Logger) (identity.Decoder, error) {
	switch {
	case auth.JWKSURL != "":
		v, err := middleware.NewOIDCValidatorFromJWKS(ctx, auth.JWKSURL, auth.IssuerURL, auth.Audience, auth.AllowedIssuers)
		if err != nil {
			return nil, fmt.Errorf("jwks validator: %w", err)
		}
		logger.Info("verifying tokens against JWKS", "jwks_url", auth.JWKSURL)
		return middleware.NewValidatingDecoder(v), nil
	case auth.IssuerURL != "":
		v, err := middleware.NewOIDCValidator(ctx, auth.IssuerURL, auth.Audience, auth.AllowedIssuers)
		if err != nil {
			return nil, fmt.Errorf("oidc validator: %w", err)
		}
		logger.Info("verifying tokens with OIDC discovery", "issuer", auth.IssuerURL)
		return middleware.NewValidatingDecoder(v), nil
	case auth.JWTSecret != "":
		logger.Info("verifying tokens with the shared secret")
		return middleware.NewValidatingDecoder(middleware.NewSharedSecretValidator(auth.JWTSecret)), nil
	default:
		return identity.UnverifiedDecoder{}, nil
	}
}

func loadMenu(path string) (*visibility.Menu, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path) //nolint:gosec // path comes from MENU_FILE
	if err != nil {
		return nil, fmt.Errorf("open menu: %w", err)
	}
	defer f.Close() //nolint:errcheck
	menu, err := visibility.LoadMenu(f)
	if err != nil {
		return nil, fmt.Errorf("load menu %s: %w", path, err)
	}
	return menu, nil
}

// curlHostForListenAddr turns a listen address into something a client can
// dial. Wildcard and empty hosts become localhost.
func curlHostForListenAddr(listenAddr string) string {
	addr := strings.TrimSpace(listenAddr)
	if addr == "" {
		return "localhost:8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
