package middleware

import (
	"net/http"

	"tbscrm/internal/domain/auth"
	"tbscrm/internal/transport/http/api"
)

// RequireCapability admits users whose role policy grants any of perms.
func RequireCapability(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}
			policy := auth.PolicyFor(user.RoleName)
			for _, perm := range perms {
				if policy.Can(perm) {
					next.ServeHTTP(w, r)
					return
				}
			}
			api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", GetRequestID(r.Context()))
		})
	}
}
