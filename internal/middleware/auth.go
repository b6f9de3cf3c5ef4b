package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cyberxpert/internal/domain"
	"cyberxpert/internal/identity"
)

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate requires a bearer token that the decoder accepts and that has
// not expired. The token and its claims are stored in the request context as
// a domain.RequestSession.
func Authenticate(decoder identity.Decoder, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				writeUnauthorized(w, "unauthorized: provide a Bearer token")
				return
			}

			claims, err := decoder.Decode(r.Context(), token)
			if err != nil {
				logger.DebugContext(r.Context(), "bearer token rejected",
					"request_id", RequestIDFromContext(r.Context()), "error", err)
				writeUnauthorized(w, domain.ErrInvalidToken.Error())
				return
			}
			if claims.Expired(time.Now()) {
				writeUnauthorized(w, "token expired")
				return
			}

			ctx := domain.WithRequestSession(r.Context(), domain.RequestSession{Token: token, Claims: *claims})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="cyberxpert"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    401,
		"message": msg,
	})
}
