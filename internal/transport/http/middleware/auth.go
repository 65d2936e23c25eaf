package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"tbscrm/internal/domain/auth"
	"tbscrm/internal/transport/http/api"
)

// SessionChecker reports whether the session behind a token is still open.
type SessionChecker interface {
	SessionActive(ctx context.Context, user auth.UserContext) (bool, error)
}

// Auth attaches the signed-in user to the request context. Requests without a
// valid bearer token, or whose session was revoked, continue anonymously.
func Auth(secret string, sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := auth.ParseToken(secret, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			user := claims.User()
			if sessions != nil {
				active, err := sessions.SessionActive(r.Context(), user)
				if err != nil {
					slog.Warn("session check failed", "userId", user.UserID, "err", err)
					api.Fail(w, http.StatusServiceUnavailable, "store_unavailable", "session check failed", GetRequestID(r.Context()))
					return
				}
				if !active {
					next.ServeHTTP(w, r)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func BearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
