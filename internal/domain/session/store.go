package session

import (
	"context"

	"tbscrm/internal/platform/db"
	"tbscrm/internal/platform/i18n"
)

type Store struct {
	DB db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{DB: q}
}

func (s *Store) GetPreferences(ctx context.Context, userID string) (Preferences, bool, error) {
	var lang string
	var prefs Preferences
	err := s.DB.QueryRow(ctx, `
    SELECT language, dark_mode FROM user_preferences WHERE user_id = $1
  `, userID).Scan(&lang, &prefs.DarkMode)
	if db.IsNoRows(err) {
		return Preferences{}, false, nil
	}
	if err != nil {
		return Preferences{}, false, err
	}
	prefs.Language = i18n.Lang(lang)
	return prefs, true, nil
}

func (s *Store) SavePreferences(ctx context.Context, userID string, prefs Preferences) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO user_preferences (user_id, language, dark_mode)
    VALUES ($1, $2, $3)
    ON CONFLICT (user_id) DO UPDATE SET
      language = EXCLUDED.language,
      dark_mode = EXCLUDED.dark_mode,
      updated_at = now()
  `, userID, string(prefs.Language), prefs.DarkMode)
	return err
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.DB.QueryRow(ctx, "SELECT value FROM app_settings WHERE key = $1", key).Scan(&value)
	if db.IsNoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO app_settings (key, value) VALUES ($1, $2)
    ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
  `, key, value)
	return err
}
