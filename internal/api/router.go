package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"cyberxpert/internal/identity"
	"cyberxpert/internal/middleware"
)

// RouterConfig holds the transport settings of the gateway.
type RouterConfig struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration
}

// NewRouter mounts the gateway endpoints. Rate limiter sweeping stops when
// ctx is done.
func NewRouter(ctx context.Context, h *Handler, decoder identity.Decoder, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	limiter := middleware.RateLimiter(ctx, middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
		KeyFunc:           middleware.SubjectOrIP,
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter)
			r.Post("/auth/login", h.Login)
			r.Post("/auth/signup", h.Signup)
			r.Post("/auth/refresh", h.Refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(decoder, logger))
			r.Use(limiter)

			r.Post("/auth/logout", h.Logout)
			r.Get("/me", h.Me)
			r.Get("/dashboard", h.Dashboard)
			r.Get("/tests", h.ListTests)
			r.Post("/tests/{testID}/vulnerabilities/{vulnID}/address", h.AddressVulnerability)
			r.Get("/reports", h.ListReports)
			r.Post("/reports/{reportID}/read", h.MarkReportRead)
			r.Get("/accounts", h.ListAccounts)
			r.Post("/accounts", h.CreateAccount)
			r.Patch("/accounts/{accountID}", h.UpdateAccountStatus)
			r.Delete("/accounts/{accountID}", h.DeleteAccount)
			r.Get("/menu", h.Menu)
			r.Get("/summary", h.Summary)
		})
	})

	r.With(middleware.Authenticate(decoder, logger), limiter).Get("/ui/nav", h.NavFragment)

	return r
}
