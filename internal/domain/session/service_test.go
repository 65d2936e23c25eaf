package session

import (
	"context"
	"errors"
	"testing"

	"tbscrm/internal/domain/auth"
	"tbscrm/internal/platform/i18n"
)

type fakeStore struct {
	prefs    map[string]Preferences
	settings map[string]string
	fail     bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{prefs: map[string]Preferences{}, settings: map[string]string{}}
}

func (f *fakeStore) GetPreferences(_ context.Context, userID string) (Preferences, bool, error) {
	p, ok := f.prefs[userID]
	return p, ok, nil
}

func (f *fakeStore) SavePreferences(_ context.Context, userID string, prefs Preferences) error {
	f.prefs[userID] = prefs
	return nil
}

func (f *fakeStore) GetSetting(_ context.Context, key string) (string, bool, error) {
	if f.fail {
		return "", false, errors.New("settings unavailable")
	}
	v, ok := f.settings[key]
	return v, ok, nil
}

func (f *fakeStore) SetSetting(_ context.Context, key, value string) error {
	f.settings[key] = value
	return nil
}

func TestBuildNegotiatesLanguage(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, "TBS CRM")
	profile := auth.Profile{UserID: "u1", Email: "an@tbs.vn", FullName: "An", Role: "employee", DepartmentID: "RD"}

	sess, err := svc.Build(context.Background(), profile, "en-US,en;q=0.9")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if sess.Language != i18n.English || sess.AppName != "TBS CRM" || sess.User.Role != auth.RoleEmployee {
		t.Fatalf("unexpected session %+v", sess)
	}

	store.prefs["u1"] = Preferences{Language: i18n.Vietnamese, DarkMode: true}
	store.settings[SettingAppName] = "TBS Group"
	sess, _ = svc.Build(context.Background(), profile, "en-US")
	if sess.Language != i18n.Vietnamese || !sess.DarkMode || sess.AppName != "TBS Group" {
		t.Fatalf("stored preferences must win, got %+v", sess)
	}
}

func TestUpdatePreferences(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, "TBS CRM")
	ctx := context.Background()

	dark := true
	prefs, err := svc.UpdatePreferences(ctx, "u1", "", PreferencesPatch{DarkMode: &dark})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if prefs.Language != i18n.Vietnamese || !prefs.DarkMode {
		t.Fatalf("unexpected prefs %+v", prefs)
	}

	bad := "fr"
	if _, err := svc.UpdatePreferences(ctx, "u1", "", PreferencesPatch{Language: &bad}); !errors.Is(err, ErrInvalidLanguage) {
		t.Fatalf("expected invalid language, got %v", err)
	}
	if store.prefs["u1"].Language != i18n.Vietnamese {
		t.Fatal("rejected update must not be stored")
	}
}

func TestAppName(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, "TBS CRM")
	ctx := context.Background()

	if _, err := svc.SetAppName(ctx, "   "); !errors.Is(err, ErrInvalidAppName) {
		t.Fatalf("expected invalid name, got %v", err)
	}
	if _, err := svc.SetAppName(ctx, " TBS Group "); err != nil {
		t.Fatalf("set: %v", err)
	}
	if name, _ := svc.AppName(ctx); name != "TBS Group" {
		t.Fatalf("expected stored name, got %s", name)
	}
	store.fail = true
	if name, _ := svc.AppName(ctx); name != "TBS CRM" {
		t.Fatalf("expected default on failure, got %s", name)
	}
}

func TestNavigation(t *testing.T) {
	items := Navigation(i18n.English, auth.PolicyFor(auth.RoleAdmin))
	if len(items) != 6 || items[0].Label != "Dashboard" || items[5].Path != "/settings" {
		t.Fatalf("unexpected admin navigation %+v", items)
	}
	for _, item := range Navigation(i18n.Vietnamese, auth.PolicyFor(auth.RoleViewer)) {
		if item.Section == auth.SectionSettings || item.Section == auth.SectionEmployees {
			t.Fatalf("viewer must not see %s", item.Section)
		}
	}
}
