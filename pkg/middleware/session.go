package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Vuongsinguyen/VyBrows-Store/pkg/logger"
)

type sessionKeyType struct{}

var sessionKey sessionKeyType

// SessionConfig configures the anonymous shopper session cookie.
type SessionConfig struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

// DefaultSessionConfig returns a 30-day, non-secure session cookie config
// suitable for local development.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		CookieName: "cart_session",
		MaxAge:     30 * 24 * time.Hour,
	}
}

// Session makes sure every request carries an anonymous shopper session ID.
// A missing or malformed cookie is replaced by a fresh UUID and the cookie is
// (re)issued. The ID is stored in context for handlers and loggers.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultSessionConfig().CookieName
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(cfg.CookieName); err == nil {
				if _, perr := uuid.Parse(c.Value); perr == nil {
					id = c.Value
				}
			}

			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(cfg.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), sessionKey, id)
			ctx = logger.WithSessionID(ctx, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext returns the shopper session ID set by Session.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionKey).(string); ok {
		return id
	}
	return ""
}
