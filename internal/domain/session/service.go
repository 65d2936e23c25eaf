package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"tbscrm/internal/domain/auth"
	"tbscrm/internal/platform/i18n"
)

type Service struct {
	store          StoreAPI
	defaultAppName string
}

func NewService(store StoreAPI, defaultAppName string) *Service {
	return &Service{store: store, defaultAppName: defaultAppName}
}

// Build assembles the session for a resolved profile. Without a stored
// language preference the Accept-Language header decides.
func (s *Service) Build(ctx context.Context, profile auth.Profile, acceptLanguage string) (Session, error) {
	policy := auth.PolicyFor(profile.Role)
	sess := Session{
		User: User{
			ID:           profile.UserID,
			Name:         profile.FullName,
			Email:        profile.Email,
			Role:         policy.Role,
			Avatar:       profile.AvatarURL,
			DepartmentID: profile.DepartmentID,
		},
		Language:    i18n.Negotiate(acceptLanguage),
		Sections:    policy.Sections,
		Permissions: policy.Permissions,
		Fallback:    profile.Fallback,
	}

	prefs, found, err := s.store.GetPreferences(ctx, profile.UserID)
	if err != nil {
		return Session{}, fmt.Errorf("load preferences: %w", err)
	}
	if found {
		if lang, ok := i18n.Parse(string(prefs.Language)); ok {
			sess.Language = lang
		}
		sess.DarkMode = prefs.DarkMode
	}

	name, err := s.AppName(ctx)
	if err != nil {
		return Session{}, err
	}
	sess.AppName = name
	return sess, nil
}

func (s *Service) Preferences(ctx context.Context, userID, acceptLanguage string) (Preferences, error) {
	prefs, found, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		return Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	if !found {
		return Preferences{Language: i18n.Negotiate(acceptLanguage)}, nil
	}
	if _, ok := i18n.Parse(string(prefs.Language)); !ok {
		prefs.Language = i18n.Negotiate(acceptLanguage)
	}
	return prefs, nil
}

func (s *Service) UpdatePreferences(ctx context.Context, userID, acceptLanguage string, patch PreferencesPatch) (Preferences, error) {
	prefs, err := s.Preferences(ctx, userID, acceptLanguage)
	if err != nil {
		return Preferences{}, err
	}
	if patch.Language != nil {
		lang, ok := i18n.Parse(*patch.Language)
		if !ok {
			return Preferences{}, ErrInvalidLanguage
		}
		prefs.Language = lang
	}
	if patch.DarkMode != nil {
		prefs.DarkMode = *patch.DarkMode
	}
	if err := s.store.SavePreferences(ctx, userID, prefs); err != nil {
		return Preferences{}, fmt.Errorf("save preferences: %w", err)
	}
	return prefs, nil
}

// AppName falls back to the configured default when no name was stored or
// the settings table cannot be read.
func (s *Service) AppName(ctx context.Context) (string, error) {
	name, found, err := s.store.GetSetting(ctx, SettingAppName)
	if err != nil {
		slog.Warn("app name lookup failed", "err", err)
		return s.defaultAppName, nil
	}
	if !found || strings.TrimSpace(name) == "" {
		return s.defaultAppName, nil
	}
	return name, nil
}

func (s *Service) SetAppName(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > 80 {
		return "", ErrInvalidAppName
	}
	if err := s.store.SetSetting(ctx, SettingAppName, name); err != nil {
		return "", fmt.Errorf("save app name: %w", err)
	}
	return name, nil
}

var sectionPaths = map[string]string{
	auth.SectionDashboard:   "/",
	auth.SectionReports:     "/reports",
	auth.SectionEmployees:   "/employees",
	auth.SectionTasks:       "/tasks",
	auth.SectionDepartments: "/departments",
	auth.SectionSettings:    "/settings",
}

// Navigation lists the sections a policy enables, labelled in lang.
func Navigation(lang i18n.Lang, policy auth.Policy) []NavItem {
	out := make([]NavItem, 0, len(policy.Sections))
	for _, section := range policy.Sections {
		out = append(out, NavItem{Section: section, Label: i18n.T(lang, section), Path: sectionPaths[section]})
	}
	return out
}
