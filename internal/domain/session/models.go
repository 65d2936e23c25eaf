package session

import "tbscrm/internal/platform/i18n"

const SettingAppName = "app_name"

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Avatar       string `json:"avatar,omitempty"`
	DepartmentID string `json:"departmentId,omitempty"`
}

type Preferences struct {
	Language i18n.Lang `json:"language"`
	DarkMode bool      `json:"darkMode"`
}

// PreferencesPatch carries optional updates; nil fields are left unchanged.
type PreferencesPatch struct {
	Language *string `json:"language"`
	DarkMode *bool   `json:"darkMode"`
}

// Session is the application state handed to a signed-in client.
type Session struct {
	User        User      `json:"user"`
	Language    i18n.Lang `json:"language"`
	DarkMode    bool      `json:"darkMode"`
	AppName     string    `json:"appName"`
	Sections    []string  `json:"sections"`
	Permissions []string  `json:"permissions"`
	Fallback    bool      `json:"fallbackProfile,omitempty"`
}

type NavItem struct {
	Section string `json:"section"`
	Label   string `json:"label"`
	Path    string `json:"path"`
}
