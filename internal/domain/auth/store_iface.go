package auth

import (
	"context"
	"time"
)

type StoreAPI interface {
	FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error)
	GetProfile(ctx context.Context, userID string) (Profile, error)
	CreateAccount(ctx context.Context, acct Account, passwordHash string) (string, error)
	CreateSession(ctx context.Context, userID, tokenHash string, expires time.Time) error
	SessionValid(ctx context.Context, userID, tokenHash string) (bool, error)
	RotateSession(ctx context.Context, userID, oldHash, newHash string, expires time.Time) error
	RevokeSession(ctx context.Context, userID, tokenHash string) error
	RevokeUserSessions(ctx context.Context, userID string) error
	UpdateLastLogin(ctx context.Context, userID string) error
	UserIDByEmail(ctx context.Context, email string) (string, error)
	CreatePasswordReset(ctx context.Context, userID, tokenHash string, expires time.Time) error
	// ConsumePasswordReset marks a live reset token used and returns its
	// user. A token can be consumed once.
	ConsumePasswordReset(ctx context.Context, tokenHash string) (string, error)
	UpdateUserPassword(ctx context.Context, userID, hash string) error
}
