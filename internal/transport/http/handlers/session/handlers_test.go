package sessionhandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"tbscrm/internal/domain/auth"
	"tbscrm/internal/domain/session"
	"tbscrm/internal/transport/http/middleware"
)

type fakeResolver struct {
	deny bool
}

func (f fakeResolver) ResolveProfile(_ context.Context, userID, email string) (auth.Profile, error) {
	if f.deny {
		return auth.Profile{}, auth.ErrProfileUnavailable
	}
	return auth.Profile{UserID: userID, Email: email, FullName: auth.FallbackDisplayName, Role: auth.RoleViewer, Fallback: true}, nil
}

type memoryStore struct {
	prefs    map[string]session.Preferences
	settings map[string]string
}

func (m *memoryStore) GetPreferences(_ context.Context, userID string) (session.Preferences, bool, error) {
	p, ok := m.prefs[userID]
	return p, ok, nil
}

func (m *memoryStore) SavePreferences(_ context.Context, userID string, p session.Preferences) error {
	m.prefs[userID] = p
	return nil
}

func (m *memoryStore) GetSetting(_ context.Context, key string) (string, bool, error) {
	v, ok := m.settings[key]
	return v, ok, nil
}

func (m *memoryStore) SetSetting(_ context.Context, key, value string) error {
	m.settings[key] = value
	return nil
}

func newRouter(resolver fakeResolver, user *auth.UserContext) (http.Handler, *memoryStore) {
	store := &memoryStore{prefs: map[string]session.Preferences{}, settings: map[string]string{}}
	h := NewHandler(resolver, session.NewService(store, "TBS CRM"), nil)
	r := chi.NewRouter()
	if user != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), *user)))
			})
		})
	}
	h.RegisterRoutes(r)
	return r, store
}

func TestSessionFallbackProfile(t *testing.T) {
	h, _ := newRouter(fakeResolver{}, &auth.UserContext{UserID: "u1", Email: "an@tbs.vn", RoleName: auth.RoleViewer})
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.Header.Set("Accept-Language", "en")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data session.Session `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.User.Name != "User" || body.Data.User.Role != auth.RoleViewer || !body.Data.Fallback || body.Data.Language != "en" {
		t.Fatalf("unexpected session %+v", body.Data)
	}
}

func TestSessionDenied(t *testing.T) {
	h, _ := newRouter(fakeResolver{deny: true}, &auth.UserContext{UserID: "u1"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestSessionRequiresUser(t *testing.T) {
	h, _ := newRouter(fakeResolver{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/navigation", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestPreferencesAndAppName(t *testing.T) {
	admin := &auth.UserContext{UserID: "a1", Email: "admin@tbs.vn", RoleName: auth.RoleAdmin}
	h, store := newRouter(fakeResolver{}, admin)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/session/preferences", strings.NewReader(`{"language":"en","darkMode":true}`)))
	if rec.Code != http.StatusOK || store.prefs["a1"].Language != "en" || !store.prefs["a1"].DarkMode {
		t.Fatalf("unexpected preferences update %d %+v", rec.Code, store.prefs)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/session/preferences", strings.NewReader(`{"language":"de"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/settings/app-name", strings.NewReader(`{"appName":"TBS Group"}`)))
	if rec.Code != http.StatusOK || store.settings[session.SettingAppName] != "TBS Group" {
		t.Fatalf("unexpected app name update %d %+v", rec.Code, store.settings)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/navigation", nil))
	var body struct {
		Data []session.NavItem `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 6 || body.Data[0].Label != "Dashboard" {
		t.Fatalf("expected english admin navigation, got %+v", body.Data)
	}
}

func TestAppNameForbiddenForManager(t *testing.T) {
	h, _ := newRouter(fakeResolver{}, &auth.UserContext{UserID: "m1", RoleName: auth.RoleManager})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/settings/app-name", strings.NewReader(`{"appName":"X"}`)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
