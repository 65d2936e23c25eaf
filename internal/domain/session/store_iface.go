package session

import "context"

type StoreAPI interface {
	GetPreferences(ctx context.Context, userID string) (Preferences, bool, error)
	SavePreferences(ctx context.Context, userID string, prefs Preferences) error
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}
