package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// ContextKey is the type for context keys set by this package.
type ContextKey string

// UsernameKey carries the verified session subject through the request
// context.
const UsernameKey ContextKey = "admin_username"

// Middleware guards administrative endpoints with session token checks.
type Middleware struct {
	sessions   *SessionService
	cookieName string
	log        *zap.Logger
}

// NewMiddleware creates a session middleware reading tokens from the named
// cookie or from an Authorization bearer header.
func NewMiddleware(sessions *SessionService, cookieName string, log *zap.Logger) *Middleware {
	return &Middleware{sessions: sessions, cookieName: cookieName, log: log}
}

// RequireAuth rejects the request unless it carries a valid session token.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := m.tokenFromRequest(r)
		if token == "" {
			m.log.Debug("missing session token")
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		claims, err := m.sessions.Verify(token)
		if err != nil {
			m.log.Debug("invalid session token", zap.Error(err))
			http.Error(w, "Invalid or expired session", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UsernameKey, claims.Username())
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func (m *Middleware) tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ExtractTokenFromBearer(r.Header.Get("Authorization"))
}

// GetUsernameFromContext returns the authenticated admin username.
func GetUsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}
