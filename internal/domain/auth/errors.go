package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrProfileUnavailable = errors.New("profile unavailable")
	ErrSessionExpired     = errors.New("session expired")
	ErrWeakPassword       = errors.New("password must be at least 8 characters and contain upper case, lower case and a digit")
	ErrPasswordMismatch   = errors.New("password confirmation does not match")
	ErrResetTokenInvalid  = errors.New("reset token invalid or expired")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidRole        = errors.New("invalid role")
)
