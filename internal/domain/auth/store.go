package auth

import (
	"context"
	"fmt"
	"time"

	"tbscrm/internal/platform/db"
)

type Store struct {
	DB db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{DB: q}
}

func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	var out AuthUser
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, email, password_hash, status
    FROM users
    WHERE lower(email) = lower($1) AND status = $2
  `, email, UserStatusActive).Scan(&out.ID, &out.Email, &out.Password, &out.Status)
	if db.IsNoRows(err) {
		return AuthUser{}, ErrUserNotFound
	}
	return out, err
}

func (s *Store) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var out Profile
	err := s.DB.QueryRow(ctx, `
    SELECT p.user_id::text, u.email, p.full_name, p.role,
           COALESCE(p.avatar_url, ''), COALESCE(p.department_id, '')
    FROM profiles p
    JOIN users u ON u.id = p.user_id
    WHERE p.user_id = $1
  `, userID).Scan(&out.UserID, &out.Email, &out.FullName, &out.Role, &out.AvatarURL, &out.DepartmentID)
	if db.IsNoRows(err) {
		return Profile{}, ErrProfileNotFound
	}
	return out, err
}

func (s *Store) CreateAccount(ctx context.Context, acct Account, passwordHash string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, `
    WITH u AS (
      INSERT INTO users (email, password_hash, status)
      VALUES ($1, $2, $3)
      RETURNING id
    )
    INSERT INTO profiles (user_id, full_name, role, avatar_url, department_id)
    SELECT u.id, $4, $5, NULLIF($6, ''), NULLIF($7, '') FROM u
    RETURNING user_id::text
  `, acct.Email, passwordHash, UserStatusActive, acct.FullName, acct.Role, acct.AvatarURL, acct.DepartmentID).Scan(&userID)
	if db.IsUniqueViolation(err) {
		return "", ErrEmailTaken
	}
	if err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}
	return userID, nil
}

func (s *Store) CreateSession(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO sessions (user_id, token_hash, expires_at)
    VALUES ($1, $2, $3)
  `, userID, tokenHash, expires)
	return err
}

func (s *Store) SessionValid(ctx context.Context, userID, tokenHash string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM sessions
    WHERE user_id = $1 AND token_hash = $2 AND expires_at > now() AND revoked_at IS NULL
  `, userID, tokenHash).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) RotateSession(ctx context.Context, userID, oldHash, newHash string, expires time.Time) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE sessions
    SET token_hash = $1, expires_at = $2, rotated_at = now()
    WHERE user_id = $3 AND token_hash = $4 AND revoked_at IS NULL
  `, newHash, expires, userID, oldHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionExpired
	}
	return nil
}

func (s *Store) RevokeSession(ctx context.Context, userID, tokenHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND token_hash = $2", userID, tokenHash)
	return err
}

func (s *Store) RevokeUserSessions(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL", userID)
	return err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

func (s *Store) UserIDByEmail(ctx context.Context, email string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, "SELECT id::text FROM users WHERE lower(email) = lower($1) AND status = $2", email, UserStatusActive).Scan(&userID)
	if db.IsNoRows(err) {
		return "", ErrUserNotFound
	}
	return userID, err
}

func (s *Store) CreatePasswordReset(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, "INSERT INTO password_resets (user_id, token_hash, expires_at) VALUES ($1, $2, $3)", userID, tokenHash, expires)
	return err
}

func (s *Store) ConsumePasswordReset(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, `
    UPDATE password_resets
    SET used_at = now()
    WHERE token_hash = $1 AND used_at IS NULL AND expires_at > now()
    RETURNING user_id::text
  `, tokenHash).Scan(&userID)
	if db.IsNoRows(err) {
		return "", ErrResetTokenInvalid
	}
	return userID, err
}

func (s *Store) UpdateUserPassword(ctx context.Context, userID, hash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", hash, userID)
	return err
}
