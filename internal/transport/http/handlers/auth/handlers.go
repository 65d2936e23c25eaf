package authhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tbscrm/internal/domain/audit"
	"tbscrm/internal/domain/auth"
	"tbscrm/internal/domain/session"
	"tbscrm/internal/platform/metrics"
	"tbscrm/internal/transport/http/api"
	"tbscrm/internal/transport/http/middleware"
	"tbscrm/internal/transport/http/shared"
)

type Service interface {
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
	Logout(ctx context.Context, user auth.UserContext) error
	Refresh(ctx context.Context, token string) (auth.LoginResult, error)
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, userID, newPassword, confirm string) error
	CreateAccount(ctx context.Context, acct auth.Account) (string, error)
}

type SessionBuilder interface {
	Build(ctx context.Context, profile auth.Profile, acceptLanguage string) (session.Session, error)
}

type Handler struct {
	Auth     Service
	Sessions SessionBuilder
	Audit    shared.Auditor
	Metrics  *metrics.Collector
}

func NewHandler(svc Service, sessions SessionBuilder, auditor shared.Auditor, collector *metrics.Collector) *Handler {
	return &Handler{Auth: svc, Sessions: sessions, Audit: auditor, Metrics: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Post("/logout", h.HandleLogout)
		r.Post("/refresh", h.HandleRefresh)
		r.Post("/request-reset", h.HandleRequestReset)
		r.Post("/reset", h.HandleReset)
		r.With(middleware.RequireUser).Post("/change-password", h.HandleChangePassword)
		r.With(middleware.RequireCapability(auth.PermSettings)).Post("/accounts", h.HandleCreateAccount)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type changePasswordRequest struct {
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type accountRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FullName     string `json:"fullName"`
	Role         string `json:"role"`
	DepartmentID string `json:"departmentId"`
	AvatarURL    string `json:"avatarUrl"`
}

type tokenResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Session   session.Session `json:"session"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("email", payload.Email, "is required")
	v.Required("password", payload.Password, "is required")
	if v.Reject(w, shared.RequestID(r)) {
		return
	}

	result, err := h.Auth.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.Metrics.RecordLoginFailure()
		}
		h.writeError(w, r, err)
		return
	}
	h.respondWithSession(w, r, result)

	if h.Audit != nil {
		entry := shared.Entry(r, audit.ActionLogin, audit.EntitySession, result.Profile.UserID, "sign-in")
		entry.User = result.Profile.Email
		h.Audit.Trace(r.Context(), entry)
	}
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if user, ok := middleware.GetUser(r.Context()); ok {
		if err := h.Auth.Logout(r.Context(), user); err != nil {
			slog.Warn("logout session revoke failed", "userId", user.UserID, "err", err)
		} else {
			shared.Trace(h.Audit, r, audit.ActionLogout, audit.EntitySession, user.UserID, "sign-out")
		}
	}
	api.Success(w, map[string]string{"status": "logged_out"}, shared.RequestID(r))
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", shared.RequestID(r))
		return
	}
	result, err := h.Auth.Refresh(r.Context(), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondWithSession(w, r, result)
}

func (h *Handler) HandleRequestReset(w http.ResponseWriter, r *http.Request) {
	var payload resetRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("email", payload.Email, "is required")
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	if err := h.Auth.RequestReset(r.Context(), payload.Email); err != nil {
		slog.Error("password reset request failed", "requestId", shared.RequestID(r), "err", err)
	}
	api.Success(w, map[string]string{"status": "reset_requested"}, shared.RequestID(r))
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var payload resetPasswordRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("token", payload.Token, "is required")
	v.Required("newPassword", payload.NewPassword, "is required")
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	if err := h.Auth.ResetPassword(r.Context(), payload.Token, payload.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "password_reset"}, shared.RequestID(r))
}

func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.CurrentUser(w, r)
	if !ok {
		return
	}
	var payload changePasswordRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	if err := h.Auth.ChangePassword(r.Context(), user.UserID, payload.NewPassword, payload.ConfirmPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	shared.Trace(h.Audit, r, audit.ActionUpdate, audit.EntityAccount, user.UserID, "password changed")
	api.Success(w, map[string]string{"status": "password_changed"}, shared.RequestID(r))
}

func (h *Handler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var payload accountRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("email", payload.Email, "is required")
	v.Required("fullName", payload.FullName, "is required")
	v.Enum("role", payload.Role, auth.Roles, "must be ADMIN, MANAGER, EMPLOYEE or VIEWER")
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	userID, err := h.Auth.CreateAccount(r.Context(), auth.Account{
		Email:        payload.Email,
		Password:     payload.Password,
		FullName:     payload.FullName,
		Role:         payload.Role,
		DepartmentID: payload.DepartmentID,
		AvatarURL:    payload.AvatarURL,
	})
	if errors.Is(err, auth.ErrWeakPassword) {
		shared.FailValidation(w, shared.RequestID(r), []shared.ValidationIssue{{Field: "password", Reason: err.Error()}})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	shared.Trace(h.Audit, r, audit.ActionCreate, audit.EntityAccount, userID, payload.Email)
	api.Created(w, map[string]string{"id": userID}, shared.RequestID(r))
}

func (h *Handler) respondWithSession(w http.ResponseWriter, r *http.Request, result auth.LoginResult) {
	sess, err := h.Sessions.Build(r.Context(), result.Profile, r.Header.Get("Accept-Language"))
	if err != nil {
		shared.StoreUnavailable(w, r, "session build", err)
		return
	}
	api.Success(w, tokenResponse{Token: result.Token, ExpiresAt: result.ExpiresAt, Session: sess}, shared.RequestID(r))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := shared.RequestID(r)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
	case errors.Is(err, auth.ErrSessionExpired):
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "session expired", reqID)
	case errors.Is(err, auth.ErrProfileUnavailable):
		api.Fail(w, http.StatusForbidden, "profile_unavailable", "user profile could not be loaded", reqID)
	case errors.Is(err, auth.ErrWeakPassword):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "newPassword", Reason: err.Error()}})
	case errors.Is(err, auth.ErrPasswordMismatch):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "confirmPassword", Reason: err.Error()}})
	case errors.Is(err, auth.ErrInvalidRole):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "role", Reason: err.Error()}})
	case errors.Is(err, auth.ErrResetTokenInvalid):
		api.Fail(w, http.StatusBadRequest, "invalid_token", "reset token invalid or expired", reqID)
	case errors.Is(err, auth.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", "email already registered", reqID)
	default:
		shared.StoreUnavailable(w, r, "auth", err)
	}
}
