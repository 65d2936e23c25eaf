package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// Mailer delivers plain-text messages.
type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Options struct {
	Secret string
	// TokenTTL bounds both the JWT and its session row.
	TokenTTL time.Duration
	ResetTTL time.Duration
	// DenyWithoutProfile refuses sign-in when the profile cannot be read
	// instead of degrading to VIEWER.
	DenyWithoutProfile bool
	ResetURL           string
	MailFrom           string
}

type Service struct {
	store  StoreAPI
	mailer Mailer
	opts   Options
	now    func() time.Time
}

func NewService(store StoreAPI, mailer Mailer, opts Options) *Service {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 8 * time.Hour
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = time.Hour
	}
	return &Service{store: store, mailer: mailer, opts: opts, now: time.Now}
}

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	user, err := s.store.FindActiveUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("find user: %w", err)
	}
	if err := CheckPassword(user.Password, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	profile, err := s.ResolveProfile(ctx, user.ID, user.Email)
	if err != nil {
		return LoginResult{}, err
	}

	sessionID, err := NewOpaqueToken()
	if err != nil {
		return LoginResult{}, fmt.Errorf("session token: %w", err)
	}
	expires := s.now().Add(s.opts.TokenTTL)
	if err := s.store.CreateSession(ctx, user.ID, HashToken(sessionID), expires); err != nil {
		return LoginResult{}, fmt.Errorf("create session: %w", err)
	}

	token, err := s.issue(profile, sessionID)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("update last_login failed", "userId", user.ID, "err", err)
	}
	return LoginResult{Token: token, ExpiresAt: expires, Profile: profile}, nil
}

// ResolveProfile loads the profile of a signed-in user. A failed lookup
// yields a VIEWER profile named "User" unless DenyWithoutProfile is set.
func (s *Service) ResolveProfile(ctx context.Context, userID, email string) (Profile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err == nil {
		profile.Role = NormalizeRole(profile.Role)
		if strings.TrimSpace(profile.FullName) == "" {
			profile.FullName = profile.Email
		}
		return profile, nil
	}
	if s.opts.DenyWithoutProfile {
		return Profile{}, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}
	slog.Warn("profile lookup failed, using viewer fallback", "userId", userID, "err", err)
	return Profile{
		UserID:   userID,
		Email:    email,
		FullName: FallbackDisplayName,
		Role:     RoleViewer,
		Fallback: true,
	}, nil
}

func (s *Service) Logout(ctx context.Context, user UserContext) error {
	if user.SessionID == "" {
		return nil
	}
	return s.store.RevokeSession(ctx, user.UserID, HashToken(user.SessionID))
}

// SessionActive backs the auth middleware so revoked tokens stop working
// before they expire.
func (s *Service) SessionActive(ctx context.Context, user UserContext) (bool, error) {
	if user.SessionID == "" {
		return false, nil
	}
	return s.store.SessionValid(ctx, user.UserID, HashToken(user.SessionID))
}

func (s *Service) Refresh(ctx context.Context, tokenString string) (LoginResult, error) {
	claims, err := ParseToken(s.opts.Secret, tokenString)
	if err != nil {
		return LoginResult{}, ErrSessionExpired
	}
	oldHash := HashToken(claims.SessionID)
	valid, err := s.store.SessionValid(ctx, claims.UserID, oldHash)
	if err != nil {
		return LoginResult{}, fmt.Errorf("check session: %w", err)
	}
	if !valid {
		return LoginResult{}, ErrSessionExpired
	}

	profile, err := s.ResolveProfile(ctx, claims.UserID, claims.Email)
	if err != nil {
		return LoginResult{}, err
	}

	sessionID, err := NewOpaqueToken()
	if err != nil {
		return LoginResult{}, fmt.Errorf("session token: %w", err)
	}
	expires := s.now().Add(s.opts.TokenTTL)
	if err := s.store.RotateSession(ctx, claims.UserID, oldHash, HashToken(sessionID), expires); err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return LoginResult{}, err
		}
		return LoginResult{}, fmt.Errorf("rotate session: %w", err)
	}
	token, err := s.issue(profile, sessionID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, ExpiresAt: expires, Profile: profile}, nil
}

// RequestReset mails a one-time recovery link. Unknown addresses succeed
// silently.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}
	userID, err := s.store.UserIDByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	token, err := NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("reset token: %w", err)
	}
	if err := s.store.CreatePasswordReset(ctx, userID, HashToken(token), s.now().Add(s.opts.ResetTTL)); err != nil {
		return fmt.Errorf("store reset: %w", err)
	}
	if s.mailer == nil {
		return nil
	}
	body := fmt.Sprintf("Use the link below to choose a new password. It expires in %s.\n\n%s\n", s.opts.ResetTTL, resetLink(s.opts.ResetURL, token))
	if err := s.mailer.Send(ctx, s.opts.MailFrom, email, "Password reset", body); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	tokenHash := HashToken(strings.TrimSpace(token))
	userID, err := s.store.ConsumePasswordReset(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrResetTokenInvalid) {
			return err
		}
		return fmt.Errorf("consume reset: %w", err)
	}
	if err := s.setPassword(ctx, userID, newPassword); err != nil {
		return err
	}
	if err := s.store.RevokeUserSessions(ctx, userID); err != nil {
		slog.Warn("revoke sessions after reset failed", "userId", userID, "err", err)
	}
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, newPassword, confirm string) error {
	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	return s.setPassword(ctx, userID, newPassword)
}

func (s *Service) CreateAccount(ctx context.Context, acct Account) (string, error) {
	acct.Email = normalizeEmail(acct.Email)
	acct.FullName = strings.TrimSpace(acct.FullName)
	acct.Role = strings.ToUpper(strings.TrimSpace(acct.Role))
	if !ValidRole(acct.Role) {
		return "", ErrInvalidRole
	}
	if err := ValidatePassword(acct.Password); err != nil {
		return "", err
	}
	hash, err := HashPassword(acct.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return s.store.CreateAccount(ctx, acct, hash)
}

func (s *Service) setPassword(ctx context.Context, userID, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *Service) issue(profile Profile, sessionID string) (string, error) {
	token, err := GenerateToken(s.opts.Secret, Claims{
		UserID:       profile.UserID,
		Email:        profile.Email,
		RoleName:     profile.Role,
		DepartmentID: profile.DepartmentID,
		SessionID:    sessionID,
	}, s.opts.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func resetLink(base, token string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
