package shared

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"tbscrm/internal/domain/audit"
	"tbscrm/internal/domain/auth"
	"tbscrm/internal/transport/http/api"
	"tbscrm/internal/transport/http/middleware"
)

// Auditor records mutations. Failures are logged by the implementation.
type Auditor interface {
	Trace(ctx context.Context, e audit.Entry)
}

func RequestID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}

// DecodeJSON reads a JSON body into dst and answers 400 or 413 on failure.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", RequestID(r))
		return false
	}
	if errors.Is(err, io.EOF) {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "request body is empty", RequestID(r))
		return false
	}
	api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", RequestID(r))
	return false
}

// StoreUnavailable reports a failed read or write against the database.
func StoreUnavailable(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.Error("store operation failed", "op", op, "requestId", RequestID(r), "err", err)
	api.Fail(w, http.StatusServiceUnavailable, "store_unavailable", op+" failed", RequestID(r))
}

// CurrentUser answers 401 when the request is anonymous.
func CurrentUser(w http.ResponseWriter, r *http.Request) (auth.UserContext, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", RequestID(r))
	}
	return user, ok
}

func PolicyOf(user auth.UserContext) auth.Policy {
	return auth.PolicyFor(user.RoleName)
}

// Entry builds an audit entry attributed to the current user.
func Entry(r *http.Request, action, entityType, entityID, details string) audit.Entry {
	actor := "anonymous"
	if user, ok := middleware.GetUser(r.Context()); ok {
		actor = user.Email
		if actor == "" {
			actor = user.UserID
		}
	}
	return audit.Entry{
		Action:     action,
		User:       actor,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    strings.TrimSpace(details),
		RequestID:  RequestID(r),
	}
}

// Trace is a nil-safe shortcut for recording an audit entry.
func Trace(a Auditor, r *http.Request, action, entityType, entityID, details string) {
	if a == nil {
		return
	}
	a.Trace(r.Context(), Entry(r, action, entityType, entityID, details))
}
