package sessionhandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tbscrm/internal/domain/audit"
	"tbscrm/internal/domain/auth"
	"tbscrm/internal/domain/session"
	"tbscrm/internal/platform/i18n"
	"tbscrm/internal/transport/http/api"
	"tbscrm/internal/transport/http/middleware"
	"tbscrm/internal/transport/http/shared"
)

type ProfileResolver interface {
	ResolveProfile(ctx context.Context, userID, email string) (auth.Profile, error)
}

type Service interface {
	Build(ctx context.Context, profile auth.Profile, acceptLanguage string) (session.Session, error)
	Preferences(ctx context.Context, userID, acceptLanguage string) (session.Preferences, error)
	UpdatePreferences(ctx context.Context, userID, acceptLanguage string, patch session.PreferencesPatch) (session.Preferences, error)
	SetAppName(ctx context.Context, name string) (string, error)
}

type Handler struct {
	Profiles ProfileResolver
	Sessions Service
	Audit    shared.Auditor
}

func NewHandler(profiles ProfileResolver, sessions Service, auditor shared.Auditor) *Handler {
	return &Handler{Profiles: profiles, Sessions: sessions, Audit: auditor}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Get("/session", h.handleSession)
		r.Get("/session/preferences", h.handleGetPreferences)
		r.Put("/session/preferences", h.handleUpdatePreferences)
		r.Get("/navigation", h.handleNavigation)
	})
	r.With(middleware.RequireCapability(auth.PermSettings)).Put("/settings/app-name", h.handleSetAppName)
}

// handleSession rebuilds the application state from the token and the
// current profile.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.CurrentUser(w, r)
	if !ok {
		return
	}
	profile, err := h.Profiles.ResolveProfile(r.Context(), user.UserID, user.Email)
	if errors.Is(err, auth.ErrProfileUnavailable) {
		api.Fail(w, http.StatusForbidden, "profile_unavailable", "user profile could not be loaded", shared.RequestID(r))
		return
	}
	if err != nil {
		shared.StoreUnavailable(w, r, "profile lookup", err)
		return
	}
	sess, err := h.Sessions.Build(r.Context(), profile, r.Header.Get("Accept-Language"))
	if err != nil {
		shared.StoreUnavailable(w, r, "session build", err)
		return
	}
	api.Success(w, sess, shared.RequestID(r))
}

func (h *Handler) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.CurrentUser(w, r)
	if !ok {
		return
	}
	prefs, err := h.Sessions.Preferences(r.Context(), user.UserID, r.Header.Get("Accept-Language"))
	if err != nil {
		shared.StoreUnavailable(w, r, "preferences lookup", err)
		return
	}
	api.Success(w, prefs, shared.RequestID(r))
}

func (h *Handler) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.CurrentUser(w, r)
	if !ok {
		return
	}
	var patch session.PreferencesPatch
	if !shared.DecodeJSON(w, r, &patch) {
		return
	}
	prefs, err := h.Sessions.UpdatePreferences(r.Context(), user.UserID, r.Header.Get("Accept-Language"), patch)
	if errors.Is(err, session.ErrInvalidLanguage) {
		shared.FailValidation(w, shared.RequestID(r), []shared.ValidationIssue{{Field: "language", Reason: err.Error()}})
		return
	}
	if err != nil {
		shared.StoreUnavailable(w, r, "preferences update", err)
		return
	}
	api.Success(w, prefs, shared.RequestID(r))
}

func (h *Handler) handleNavigation(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.CurrentUser(w, r)
	if !ok {
		return
	}
	lang := i18n.Negotiate(r.Header.Get("Accept-Language"))
	if prefs, err := h.Sessions.Preferences(r.Context(), user.UserID, r.Header.Get("Accept-Language")); err == nil {
		lang = prefs.Language
	}
	api.Success(w, session.Navigation(lang, shared.PolicyOf(user)), shared.RequestID(r))
}

type appNameRequest struct {
	AppName string `json:"appName"`
}

func (h *Handler) handleSetAppName(w http.ResponseWriter, r *http.Request) {
	var payload appNameRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	name, err := h.Sessions.SetAppName(r.Context(), payload.AppName)
	if errors.Is(err, session.ErrInvalidAppName) {
		shared.FailValidation(w, shared.RequestID(r), []shared.ValidationIssue{{Field: "appName", Reason: err.Error()}})
		return
	}
	if err != nil {
		shared.StoreUnavailable(w, r, "app name update", err)
		return
	}
	shared.Trace(h.Audit, r, audit.ActionUpdate, audit.EntitySettings, session.SettingAppName, name)
	api.Success(w, map[string]string{"appName": name}, shared.RequestID(r))
}
